package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/regfolio/backend/src/gateway"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

var (
	// ErrValidationFailed wraps the field-level problems found in a payload.
	ErrValidationFailed = errors.New("filing validation failed")
	// ErrInsufficientCredits means the user's ledger cannot cover the filing.
	ErrInsufficientCredits = errors.New("insufficient filing credits")
	// ErrSubmissionFailed wraps transport-level failures where no gateway
	// verdict was obtained. The filing is recorded and any charge refunded.
	ErrSubmissionFailed = errors.New("submission could not be completed")
)

// CompaniesHouseSubmitter is the slice of the registrar gateway the
// confirmation statement service uses. *gateway.CompaniesHouseGateway
// satisfies it.
type CompaniesHouseSubmitter interface {
	Submit(ctx context.Context, class string, keys []govtalk.Key, body string) (*gateway.Outcome, error)
}

// HMRCSubmitter is the slice of the transaction engine gateway the accounts
// service uses. *gateway.HMRCGateway satisfies it.
type HMRCSubmitter interface {
	Submit(ctx context.Context, class string, keys []govtalk.Key, bodyFor func(irmark string) string) (*gateway.Outcome, error)
}

// ConfirmationStatementService validates, charges and submits CS01 filings.
type ConfirmationStatementService interface {
	Submit(ctx context.Context, userID int, data models.ConfirmationStatementData) (*models.SubmissionResult, error)
}

// AccountsFilingService generates, packages and submits annual accounts.
type AccountsFilingService interface {
	Submit(ctx context.Context, userID int, data models.AccountsData) (*models.SubmissionResult, error)
}

// CreditService manages the filing credit ledger.
type CreditService interface {
	Balance(userID int) (models.CreditBalance, error)
	Purchase(userID int, quantity int64) (models.CreditBalance, error)
	Entries(userID int) ([]model.CreditEntry, error)
	// ChargeFiling atomically debits the ledger and records the pending
	// filing. A zero cost records the filing without a ledger entry.
	ChargeFiling(userID int, cost int64, rec *model.FilingRecord) error
	// RefundFiling credits back what a filing charged and flags the record.
	RefundFiling(rec *model.FilingRecord) error
}

// FilingStatus is the API shape for a submission status query.
type FilingStatus struct {
	SubmissionID     string                   `json:"submission_id"`
	FilingType       string                   `json:"filing_type"`
	CompanyNumber    string                   `json:"company_number"`
	Status           string                   `json:"status"`
	GatewayReference string                   `json:"gateway_reference,omitempty"`
	CorrelationID    string                   `json:"correlation_id,omitempty"`
	Errors           []models.SubmissionError `json:"errors,omitempty"`
	SubmittedAt      *time.Time               `json:"submitted_at,omitempty"`
}

// StatusService answers submission status queries, serving terminal statuses
// from cache.
type StatusService interface {
	GetStatus(userID int, submissionID string) (*FilingStatus, error)
}
