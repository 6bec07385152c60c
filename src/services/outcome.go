package services

import (
	"encoding/json"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/gateway"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

// submissionErrors flattens a gateway reply's error block into the API shape.
func submissionErrors(resp *govtalk.Response) []models.SubmissionError {
	if resp == nil || len(resp.Errors) == 0 {
		return nil
	}
	errs := make([]models.SubmissionError, 0, len(resp.Errors))
	for _, re := range resp.Errors {
		msg := re.Text
		if msg == "" {
			msg = "the gateway rejected the submission without a message"
		}
		errs = append(errs, models.SubmissionError{
			Code:    re.Number,
			Type:    re.Type,
			Message: msg,
		})
	}
	return errs
}

// encodeSubmissionErrors serializes gateway errors for the filings table.
func encodeSubmissionErrors(errs []models.SubmissionError) string {
	if len(errs) == 0 {
		return ""
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		logger.L.Error("failed to encode submission errors", "error", err)
		return ""
	}
	return string(raw)
}

// decodeSubmissionErrors is the inverse, used when replaying stored filings.
func decodeSubmissionErrors(raw string) []models.SubmissionError {
	if raw == "" {
		return nil
	}
	var errs []models.SubmissionError
	if err := json.Unmarshal([]byte(raw), &errs); err != nil {
		logger.L.Error("failed to decode stored submission errors", "error", err)
		return nil
	}
	return errs
}

// captureExchange copies whatever the gateway exchange produced onto the
// filing record. The request XML is present even when the exchange failed.
func captureExchange(rec *model.FilingRecord, outcome *gateway.Outcome) {
	if outcome == nil {
		return
	}
	rec.RequestXML = outcome.RequestXML
	if outcome.Response != nil {
		rec.ResponseXML = outcome.Response.Raw
		rec.CorrelationID = outcome.Response.CorrelationID
	}
}

// applyVerdict maps a final gateway reply onto the record and returns the
// structured errors for the caller.
func applyVerdict(rec *model.FilingRecord, resp *govtalk.Response) []models.SubmissionError {
	errs := submissionErrors(resp)
	if resp.Accepted() {
		rec.Status = models.FilingStatusAccepted
		rec.GatewayReference = resp.BestReference()
		return nil
	}
	rec.Status = models.FilingStatusRejected
	rec.ErrorsJSON = encodeSubmissionErrors(errs)
	return errs
}

// persistOutcome stores the final record state. Persistence problems are
// logged, not surfaced: the gateway verdict already stands.
func persistOutcome(rec *model.FilingRecord) {
	if err := model.UpdateFilingResult(database.DB, rec); err != nil {
		logger.L.Error("failed to persist filing outcome",
			"submissionID", rec.SubmissionID, "status", rec.Status, "error", err)
	}
}

// resultFromRecord builds the caller-facing result from the stored record.
func resultFromRecord(rec *model.FilingRecord, filingType models.FilingType, errs []models.SubmissionError) *models.SubmissionResult {
	result := &models.SubmissionResult{
		Success:          rec.Status == models.FilingStatusAccepted,
		SubmissionID:     rec.SubmissionID,
		FilingType:       filingType,
		GatewayReference: rec.GatewayReference,
		CorrelationID:    rec.CorrelationID,
		Errors:           errs,
		CreditsCharged:   rec.CreditsCharged,
		CreditsRefunded:  rec.CreditsRefunded,
		RequestXML:       rec.RequestXML,
		ResponseXML:      rec.ResponseXML,
	}
	if rec.SubmittedAt != nil {
		result.SubmittedAt = *rec.SubmittedAt
	}
	return result
}

// notifyFilingOutcome emails the user about the verdict. Failures are logged
// and never affect the submission result.
func notifyFilingOutcome(email EmailService, userID int, result *models.SubmissionResult) {
	if email == nil {
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("cannot notify filing outcome, user lookup failed", "userID", userID, "error", err)
		return
	}
	if err := email.SendFilingOutcomeEmail(user.Email, user.Username, result); err != nil {
		logger.L.Error("failed to send filing outcome email",
			"userID", userID, "submissionID", result.SubmissionID, "error", err)
	}
}
