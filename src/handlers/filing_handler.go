// backend/src/handlers/filing_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
	"github.com/username/regfolio/backend/src/services"
	"github.com/username/regfolio/backend/src/utils"
)

type FilingHandler struct {
	statementService services.ConfirmationStatementService
	accountsService  services.AccountsFilingService
	statusService    services.StatusService
}

func NewFilingHandler(
	statementService services.ConfirmationStatementService,
	accountsService services.AccountsFilingService,
	statusService services.StatusService,
) *FilingHandler {
	return &FilingHandler{
		statementService: statementService,
		accountsService:  accountsService,
		statusService:    statusService,
	}
}

// writeSubmissionError maps service failures onto HTTP statuses. A gateway
// rejection is not an error here: the submission completed and the verdict is
// in the result body.
func writeSubmissionError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Filing validation failed",
			"fields": validationErr.Errors,
		})
	case errors.Is(err, services.ErrValidationFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrInsufficientCredits):
		utils.SendJSONError(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, services.ErrSubmissionFailed):
		utils.SendJSONError(w, "The filing could not be delivered to the gateway. Any charged credit has been refunded.", http.StatusBadGateway)
	default:
		utils.SendJSONError(w, "Failed to process filing", http.StatusInternalServerError)
	}
}

func (h *FilingHandler) HandleSubmitConfirmationStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxRequestBodyBytes)
	var data models.ConfirmationStatementData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.statementService.Submit(r.Context(), int(userID), data)
	if err != nil {
		logger.L.Warn("Confirmation statement submission failed", "userID", userID, "error", err)
		writeSubmissionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *FilingHandler) HandleSubmitAnnualAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxRequestBodyBytes)
	var data models.AccountsData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.accountsService.Submit(r.Context(), int(userID), data)
	if err != nil {
		logger.L.Warn("Annual accounts submission failed", "userID", userID, "error", err)
		writeSubmissionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleListFilings returns the user's filing history, newest first. Replies
// 304 when the client's ETag still matches.
func (h *FilingHandler) HandleListFilings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	filings, err := model.ListFilingsByUser(database.DB, int(userID))
	if err != nil {
		logger.L.Error("Failed to list filings", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve filings", http.StatusInternalServerError)
		return
	}
	if filings == nil {
		filings = []model.FilingRecord{}
	}

	etag, err := utils.GenerateETag(filings)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filings)
}

func (h *FilingHandler) HandleGetFiling(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	submissionID := r.PathValue("submissionID")
	filing, err := model.GetFilingBySubmissionID(database.DB, int(userID), submissionID)
	if err != nil {
		if errors.Is(err, model.ErrFilingNotFound) {
			utils.SendJSONError(w, "Filing not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to get filing", "userID", userID, "submissionID", submissionID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve filing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filing)
}

// HandleGetFilingXML returns the stored request and response envelopes for
// audit. These are kept out of the regular JSON payloads.
func (h *FilingHandler) HandleGetFilingXML(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	submissionID := r.PathValue("submissionID")
	filing, err := model.GetFilingBySubmissionID(database.DB, int(userID), submissionID)
	if err != nil {
		if errors.Is(err, model.ErrFilingNotFound) {
			utils.SendJSONError(w, "Filing not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to get filing XML", "userID", userID, "submissionID", submissionID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve filing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"submission_id": filing.SubmissionID,
		"request_xml":   filing.RequestXML,
		"response_xml":  filing.ResponseXML,
	})
}

func (h *FilingHandler) HandleGetFilingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	submissionID := r.PathValue("submissionID")
	status, err := h.statusService.GetStatus(int(userID), submissionID)
	if err != nil {
		if errors.Is(err, model.ErrFilingNotFound) {
			utils.SendJSONError(w, "Filing not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to get filing status", "userID", userID, "submissionID", submissionID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve filing status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
