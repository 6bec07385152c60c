package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FilingType identifies which statutory document a submission carries.
type FilingType string

const (
	FilingTypeConfirmationStatement FilingType = "confirmation-statement"
	FilingTypeAnnualAccounts        FilingType = "annual-accounts"
)

// Filing lifecycle statuses. Pending means charged and recorded but no final
// gateway verdict yet; failed means the exchange itself broke down.
const (
	FilingStatusPending  = "pending"
	FilingStatusAccepted = "accepted"
	FilingStatusRejected = "rejected"
	FilingStatusFailed   = "failed"
)

// EntitySize is the size classification used to pick the accounts regime.
type EntitySize string

const (
	EntitySizeMicro  EntitySize = "micro"
	EntitySizeSmall  EntitySize = "small"
	EntitySizeMedium EntitySize = "medium"
	EntitySizeLarge  EntitySize = "large"
)

// Valid reports whether the size is one of the recognised classifications.
func (s EntitySize) Valid() bool {
	switch s {
	case EntitySizeMicro, EntitySizeSmall, EntitySizeMedium, EntitySizeLarge:
		return true
	}
	return false
}

// SupportedCurrencies lists the reporting currencies accepted for accounts filings.
var SupportedCurrencies = []string{"GBP", "EUR", "USD"}

// FilingContext carries the entity and period information shared by every
// document in an accounts filing.
type FilingContext struct {
	CompanyNumber    string     `json:"company_number"`
	CompanyName      string     `json:"company_name"`
	TaxReference     string     `json:"tax_reference"` // 10-digit UTR for HMRC submissions
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	BalanceSheetDate time.Time  `json:"balance_sheet_date"`
	Currency         string     `json:"currency"` // ISO 4217 code
	EntitySize       EntitySize `json:"entity_size"`
	PriorPeriodStart time.Time  `json:"prior_period_start,omitempty"`
	PriorPeriodEnd   time.Time  `json:"prior_period_end,omitempty"`
}

// HasPriorPeriod reports whether comparative-period dates were supplied.
func (c FilingContext) HasPriorPeriod() bool {
	return !c.PriorPeriodStart.IsZero() && !c.PriorPeriodEnd.IsZero()
}

// SubmissionError is a single structured error extracted from a gateway reply.
type SubmissionError struct {
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// SubmissionResult is what a filing submission produces for the caller,
// whether the gateway accepted or rejected the document.
type SubmissionResult struct {
	Success          bool              `json:"success"`
	SubmissionID     string            `json:"submission_id"`
	FilingType       FilingType        `json:"filing_type"`
	GatewayReference string            `json:"gateway_reference,omitempty"`
	CorrelationID    string            `json:"correlation_id,omitempty"`
	Errors           []SubmissionError `json:"errors,omitempty"`
	CreditsCharged   int64             `json:"credits_charged,omitempty"`
	CreditsRefunded  bool              `json:"credits_refunded,omitempty"`
	SubmittedAt      time.Time         `json:"submitted_at"`
	RequestXML       string            `json:"-"` // retained for audit, not serialized to API clients
	ResponseXML      string            `json:"-"`
}

// CreditBalance is the API shape for a user's filing credit position.
type CreditBalance struct {
	Balance   int64           `json:"balance"`
	Purchased int64           `json:"purchased"`
	Spent     int64           `json:"spent"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
