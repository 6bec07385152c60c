package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/filings"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/ixbrl"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
	"github.com/username/regfolio/backend/src/packaging"
)

type accountsServiceImpl struct {
	gw    HMRCSubmitter
	email EmailService
}

// NewAccountsFilingService wires the annual accounts orchestrator. Accounts
// filings carry no credit precondition.
func NewAccountsFilingService(gw HMRCSubmitter, email EmailService) AccountsFilingService {
	return &accountsServiceImpl{gw: gw, email: email}
}

func (s *accountsServiceImpl) Submit(ctx context.Context, userID int, data models.AccountsData) (*models.SubmissionResult, error) {
	if err := filings.ValidateAccounts(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	doc, err := ixbrl.Generate(data.Context, data.Statements)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	packaged, err := packaging.Package([]ixbrl.Document{*doc}, data.Context.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to package accounts: %w", err)
	}

	submissionID := uuid.New().String()
	rec := &model.FilingRecord{
		UserID:        userID,
		SubmissionID:  submissionID,
		FilingType:    string(models.FilingTypeAnnualAccounts),
		CompanyNumber: data.Context.CompanyNumber,
		Status:        models.FilingStatusPending,
	}
	if err := s.recordPending(rec); err != nil {
		return nil, err
	}

	provisional, err := filings.BuildAccountsBody(data, packaged, "")
	if err != nil {
		s.abandon(rec)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	// The provisional pass proved the body serializes; the mark pass only
	// swaps one text node.
	bodyFor := func(irmark string) string {
		if irmark == "" {
			return provisional
		}
		body, _ := filings.BuildAccountsBody(data, packaged, irmark)
		return body
	}

	logger.L.Info("submitting annual accounts",
		"userID", userID, "submissionID", submissionID,
		"companyNumber", data.Context.CompanyNumber, "periodEnd", data.Context.PeriodEnd.Format("2006-01-02"))

	keys := []govtalk.Key{{Type: "UTR", Value: data.Context.TaxReference}}
	outcome, err := s.gw.Submit(ctx, filings.ClassCompanyTaxReturn, keys, bodyFor)

	now := time.Now()
	rec.SubmittedAt = &now
	captureExchange(rec, outcome)

	if err != nil {
		rec.Status = models.FilingStatusFailed
		persistOutcome(rec)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	errs := applyVerdict(rec, outcome.Response)
	persistOutcome(rec)

	result := resultFromRecord(rec, models.FilingTypeAnnualAccounts, errs)
	logger.L.Info("annual accounts verdict",
		"submissionID", submissionID, "status", rec.Status, "gatewayReference", rec.GatewayReference)
	notifyFilingOutcome(s.email, userID, result)
	return result, nil
}

// recordPending stores the filing before the exchange so an interrupted
// submission still leaves a trace.
func (s *accountsServiceImpl) recordPending(rec *model.FilingRecord) error {
	tx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to start filing transaction: %w", err)
	}
	if err := model.InsertFiling(tx, rec); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record filing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit filing record: %w", err)
	}
	return nil
}

// abandon closes out a recorded filing that never reached the gateway.
func (s *accountsServiceImpl) abandon(rec *model.FilingRecord) {
	rec.Status = models.FilingStatusFailed
	persistOutcome(rec)
}
