package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/filings"
	"github.com/username/regfolio/backend/src/gateway"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

func TestAccountsSubmit_Accepted(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "accountant")

	gw := &stubHMRCGateway{outcome: acceptedOutcome("CT-REF-1")}
	email := &stubEmailService{}
	svc := NewAccountsFilingService(gw, email)

	result, err := svc.Submit(context.Background(), user.ID, validAccountsData())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.FilingTypeAnnualAccounts, result.FilingType)
	assert.Equal(t, "CT-REF-1", result.GatewayReference)
	assert.Equal(t, int64(0), result.CreditsCharged)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, filings.ClassCompanyTaxReturn, gw.gotClass)
	require.Len(t, gw.gotKeys, 1)
	assert.Equal(t, "UTR", gw.gotKeys[0].Type)
	assert.Equal(t, "1234567890", gw.gotKeys[0].Value)

	// The mark pass regenerates the body with only the mark text changed.
	assert.Contains(t, gw.provisionalBody, "<IRmark Type=\"generic\"></IRmark>")
	assert.Contains(t, gw.finalBody, "<IRmark Type=\"generic\">TESTMARK</IRmark>")
	assert.Contains(t, gw.finalBody, "<EncodedDocument")

	stored, err := model.GetFilingBySubmissionID(database.DB, user.ID, result.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusAccepted, stored.Status)
	assert.Equal(t, int64(0), stored.CreditsCharged)

	require.Len(t, email.outcomes, 1)
}

func TestAccountsSubmit_UnbalancedSheetNeverReachesGateway(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "imbalanced")

	gw := &stubHMRCGateway{outcome: acceptedOutcome("CT-REF-1")}
	svc := NewAccountsFilingService(gw, &stubEmailService{})

	data := validAccountsData()
	data.Statements.BalanceSheet.Current.ProfitLossReserve = decimal.NewFromInt(109000)

	_, err := svc.Submit(context.Background(), user.ID, data)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "1000")

	assert.Equal(t, 0, gw.calls)
	rows, err := model.ListFilingsByUser(database.DB, user.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAccountsSubmit_RejectionRecordsErrors(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "ctrejected")

	gw := &stubHMRCGateway{outcome: rejectedOutcome("3001", "The IRmark is invalid")}
	svc := NewAccountsFilingService(gw, &stubEmailService{})

	result, err := svc.Submit(context.Background(), user.ID, validAccountsData())
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "3001", result.Errors[0].Code)

	stored, err := model.GetFilingBySubmissionID(database.DB, user.ID, result.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusRejected, stored.Status)
	assert.Contains(t, stored.ErrorsJSON, "IRmark")
}

func TestAccountsSubmit_TransportFailureRecordsFailed(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "offline")

	gw := &stubHMRCGateway{
		outcome: &gateway.Outcome{RequestXML: "<GovTalkMessage>request</GovTalkMessage>"},
		err:     gateway.NewTransportError(gateway.ErrorConnection, "hmrc", "connection failed", nil),
	}
	email := &stubEmailService{}
	svc := NewAccountsFilingService(gw, email)

	_, err := svc.Submit(context.Background(), user.ID, validAccountsData())
	require.ErrorIs(t, err, ErrSubmissionFailed)

	rows, err := model.ListFilingsByUser(database.DB, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.FilingStatusFailed, rows[0].Status)
	assert.False(t, rows[0].CreditsRefunded)
	assert.Empty(t, email.outcomes)
}
