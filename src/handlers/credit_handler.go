// backend/src/handlers/credit_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/services"
	"github.com/username/regfolio/backend/src/utils"
)

type CreditHandler struct {
	creditService services.CreditService
}

func NewCreditHandler(creditService services.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

func (h *CreditHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	balance, err := h.creditService.Balance(int(userID))
	if err != nil {
		logger.L.Error("Failed to get credit balance", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve credit balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

func (h *CreditHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	entries, err := h.creditService.Entries(int(userID))
	if err != nil {
		logger.L.Error("Failed to list credit entries", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve credit entries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// HandlePurchase records a credit top-up. Payment capture happens elsewhere;
// this endpoint only appends the purchase to the ledger.
func (h *CreditHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var requestBody struct {
		Quantity int64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.Quantity <= 0 {
		utils.SendJSONError(w, "Quantity must be a positive number of credits", http.StatusBadRequest)
		return
	}

	balance, err := h.creditService.Purchase(int(userID), requestBody.Quantity)
	if err != nil {
		logger.L.Error("Failed to purchase credits", "userID", userID, "quantity", requestBody.Quantity, "error", err)
		utils.SendJSONError(w, "Failed to purchase credits", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Credits purchased", "userID", userID, "quantity", requestBody.Quantity)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}
