package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/regfolio/backend/src/models"
)

func TestFilingOutcomeContent_Accepted(t *testing.T) {
	result := &models.SubmissionResult{
		Success:          true,
		SubmissionID:     "sub-email-1",
		FilingType:       models.FilingTypeConfirmationStatement,
		GatewayReference: "S777",
	}

	subject, plain, html := filingOutcomeContent("jane", result)
	assert.Equal(t, "Your confirmation statement was accepted", subject)
	assert.Contains(t, plain, "S777")
	assert.Contains(t, plain, "sub-email-1")
	assert.Contains(t, html, "<b>S777</b>")
}

func TestFilingOutcomeContent_RejectedListsErrorsAndRefund(t *testing.T) {
	result := &models.SubmissionResult{
		Success:      false,
		SubmissionID: "sub-email-2",
		FilingType:   models.FilingTypeAnnualAccounts,
		Errors: []models.SubmissionError{
			{Code: "3001", Message: "The IRmark is invalid"},
			{Message: "Schema validation failed"},
		},
		CreditsCharged:  1,
		CreditsRefunded: true,
	}

	subject, plain, html := filingOutcomeContent("jane", result)
	assert.Equal(t, "Your annual accounts was rejected", subject)
	assert.Contains(t, plain, "[3001] The IRmark is invalid")
	assert.Contains(t, plain, "- Schema validation failed")
	assert.Contains(t, plain, "refunded")
	assert.Contains(t, html, "<li>[3001] The IRmark is invalid</li>")
	assert.Contains(t, html, "refunded")
}
