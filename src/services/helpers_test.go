package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/gateway"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

func init() {
	logger.InitLogger("error")
}

func setupTestDB(t *testing.T) {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "services_test.db"))
	t.Cleanup(func() { database.DB.Close() })
}

func seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, user.HashPassword("secret123"))
	require.NoError(t, user.CreateUser(database.DB, "tok-"+username, time.Now().Add(24*time.Hour)))
	return user
}

type stubCHGateway struct {
	outcome  *gateway.Outcome
	err      error
	calls    int
	gotClass string
	gotKeys  []govtalk.Key
	gotBody  string
}

func (s *stubCHGateway) Submit(_ context.Context, class string, keys []govtalk.Key, body string) (*gateway.Outcome, error) {
	s.calls++
	s.gotClass = class
	s.gotKeys = keys
	s.gotBody = body
	return s.outcome, s.err
}

type stubHMRCGateway struct {
	outcome         *gateway.Outcome
	err             error
	calls           int
	gotClass        string
	gotKeys         []govtalk.Key
	provisionalBody string
	finalBody       string
}

func (s *stubHMRCGateway) Submit(_ context.Context, class string, keys []govtalk.Key, bodyFor func(irmark string) string) (*gateway.Outcome, error) {
	s.calls++
	s.gotClass = class
	s.gotKeys = keys
	s.provisionalBody = bodyFor("")
	s.finalBody = bodyFor("TESTMARK")
	return s.outcome, s.err
}

type stubEmailService struct {
	outcomes []*models.SubmissionResult
}

func (s *stubEmailService) SendVerificationEmail(toEmail, username, token string) error {
	return nil
}

func (s *stubEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	return nil
}

func (s *stubEmailService) SendFilingOutcomeEmail(toEmail, username string, result *models.SubmissionResult) error {
	s.outcomes = append(s.outcomes, result)
	return nil
}

func acceptedOutcome(reference string) *gateway.Outcome {
	return &gateway.Outcome{
		RequestXML: "<GovTalkMessage>request</GovTalkMessage>",
		Response: &govtalk.Response{
			Raw:           "<GovTalkMessage>reply</GovTalkMessage>",
			Qualifier:     govtalk.QualifierResponse,
			CorrelationID: "A1B2C3D4",
			Reference:     reference,
		},
	}
}

func rejectedOutcome(code, text string) *gateway.Outcome {
	return &gateway.Outcome{
		RequestXML: "<GovTalkMessage>request</GovTalkMessage>",
		Response: &govtalk.Response{
			Raw:           "<GovTalkMessage>reply</GovTalkMessage>",
			Qualifier:     govtalk.QualifierError,
			CorrelationID: "A1B2C3D4",
			Errors: []govtalk.ResponseError{
				{RaisedBy: "Department", Number: code, Type: "business", Text: text},
			},
		},
	}
}

func validStatementData() models.ConfirmationStatementData {
	return models.ConfirmationStatementData{
		CompanyNumber:   "12345678",
		CompanyName:     "Granite Trading Ltd",
		CompanyAuthCode: "AUTH123",
		MadeUpDate:      "2024-06-01",
		SICCodes:        []string{"62012"},
		Officers: []models.Officer{
			{Type: "director", FirstName: "Jane", LastName: "Smith"},
		},
		ShareClasses: []models.ShareClass{
			{ClassName: "Ordinary", SharesIssued: 100, AggregateNominalValue: "100.00"},
		},
		Shareholders: []models.Shareholder{
			{Name: "Jane Smith", ShareClass: "Ordinary", Shares: 100},
		},
		ContactEmail: "jane@example.com",
	}
}

func validAccountsData() models.AccountsData {
	return models.AccountsData{
		Context: models.FilingContext{
			CompanyNumber:    "12345678",
			CompanyName:      "Granite Trading Ltd",
			TaxReference:     "1234567890",
			PeriodStart:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			BalanceSheetDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			Currency:         "GBP",
			EntitySize:       models.EntitySizeSmall,
		},
		Statements: models.FinancialStatementSet{
			BalanceSheet: models.BalanceSheet{
				Current: models.BalanceSheetFigures{
					FixedAssets:            decimal.NewFromInt(100000),
					CurrentAssets:          decimal.NewFromInt(50000),
					CreditorsWithinOneYear: decimal.NewFromInt(30000),
					ShareCapital:           decimal.NewFromInt(10000),
					ProfitLossReserve:      decimal.NewFromInt(110000),
				},
			},
			ProfitAndLoss: models.ProfitAndLoss{
				Current: models.ProfitAndLossFigures{
					Turnover:    decimal.NewFromInt(250000),
					CostOfSales: decimal.NewFromInt(100000),
				},
			},
		},
	}
}

func testCreditService() CreditService {
	return NewCreditService(decimal.RequireFromString("12.50"))
}
