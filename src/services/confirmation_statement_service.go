package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/regfolio/backend/src/filings"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

type confirmationStatementServiceImpl struct {
	gw      CompaniesHouseSubmitter
	credits CreditService
	email   EmailService
	cost    int64
}

// NewConfirmationStatementService wires the CS01 orchestrator. cost is the
// credit price of one filing; the charge happens before anything leaves the
// machine and is refunded only when no gateway verdict was obtained.
func NewConfirmationStatementService(gw CompaniesHouseSubmitter, credits CreditService, email EmailService, cost int64) ConfirmationStatementService {
	return &confirmationStatementServiceImpl{
		gw:      gw,
		credits: credits,
		email:   email,
		cost:    cost,
	}
}

func (s *confirmationStatementServiceImpl) Submit(ctx context.Context, userID int, data models.ConfirmationStatementData) (*models.SubmissionResult, error) {
	if err := filings.ValidateConfirmationStatement(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	submissionID := uuid.New().String()
	rec := &model.FilingRecord{
		UserID:        userID,
		SubmissionID:  submissionID,
		FilingType:    string(models.FilingTypeConfirmationStatement),
		CompanyNumber: data.CompanyNumber,
		Status:        models.FilingStatusPending,
	}
	if err := s.credits.ChargeFiling(userID, s.cost, rec); err != nil {
		return nil, err
	}

	body, err := filings.BuildConfirmationStatementBody(data, submissionID)
	if err != nil {
		s.abandon(rec)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	logger.L.Info("submitting confirmation statement",
		"userID", userID, "submissionID", submissionID, "companyNumber", data.CompanyNumber)

	keys := []govtalk.Key{{Type: "CompanyNumber", Value: data.CompanyNumber}}
	outcome, err := s.gw.Submit(ctx, filings.ClassConfirmationStatement, keys, body)

	now := time.Now()
	rec.SubmittedAt = &now
	captureExchange(rec, outcome)

	if err != nil {
		rec.Status = models.FilingStatusFailed
		if rerr := s.credits.RefundFiling(rec); rerr != nil {
			logger.L.Error("refund after transport failure did not go through",
				"userID", userID, "submissionID", submissionID, "error", rerr)
		}
		persistOutcome(rec)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	errs := applyVerdict(rec, outcome.Response)
	persistOutcome(rec)

	result := resultFromRecord(rec, models.FilingTypeConfirmationStatement, errs)
	logger.L.Info("confirmation statement verdict",
		"submissionID", submissionID, "status", rec.Status, "gatewayReference", rec.GatewayReference)
	notifyFilingOutcome(s.email, userID, result)
	return result, nil
}

// abandon closes out a charged filing that never reached the gateway.
func (s *confirmationStatementServiceImpl) abandon(rec *model.FilingRecord) {
	rec.Status = models.FilingStatusFailed
	if err := s.credits.RefundFiling(rec); err != nil {
		logger.L.Error("refund of abandoned filing did not go through",
			"submissionID", rec.SubmissionID, "error", err)
	}
	persistOutcome(rec)
}
