package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

type creditServiceImpl struct {
	unitPrice decimal.Decimal
}

// NewCreditService creates the ledger-backed credit service. unitPrice is
// what one credit costs the user, reported alongside the balance.
func NewCreditService(unitPrice decimal.Decimal) CreditService {
	return &creditServiceImpl{unitPrice: unitPrice}
}

func (s *creditServiceImpl) Balance(userID int) (models.CreditBalance, error) {
	balance, purchased, spent, err := model.GetCreditBalance(database.DB, userID)
	if err != nil {
		return models.CreditBalance{}, fmt.Errorf("failed to read credit balance: %w", err)
	}
	return models.CreditBalance{
		Balance:   balance,
		Purchased: purchased,
		Spent:     spent,
		UnitPrice: s.unitPrice,
	}, nil
}

func (s *creditServiceImpl) Purchase(userID int, quantity int64) (models.CreditBalance, error) {
	if quantity <= 0 {
		return models.CreditBalance{}, fmt.Errorf("purchase quantity must be positive, got %d", quantity)
	}

	tx, err := database.DB.Begin()
	if err != nil {
		return models.CreditBalance{}, fmt.Errorf("failed to start purchase transaction: %w", err)
	}
	entry := &model.CreditEntry{
		UserID: userID,
		Delta:  quantity,
		Reason: model.CreditReasonPurchase,
	}
	if err := model.InsertCreditEntry(tx, entry); err != nil {
		tx.Rollback()
		return models.CreditBalance{}, fmt.Errorf("failed to record credit purchase: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.CreditBalance{}, fmt.Errorf("failed to commit credit purchase: %w", err)
	}

	logger.L.Info("credits purchased", "userID", userID, "quantity", quantity)
	return s.Balance(userID)
}

func (s *creditServiceImpl) Entries(userID int) ([]model.CreditEntry, error) {
	return model.ListCreditEntries(database.DB, userID)
}

// ChargeFiling debits the ledger and inserts the pending filing row in one
// transaction, so a charge is never visible without the filing it paid for.
func (s *creditServiceImpl) ChargeFiling(userID int, cost int64, rec *model.FilingRecord) error {
	if cost < 0 {
		return fmt.Errorf("filing cost must not be negative, got %d", cost)
	}

	tx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to start charge transaction: %w", err)
	}

	if cost > 0 {
		balance, err := model.GetCreditBalanceTx(tx, userID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to read balance for charge: %w", err)
		}
		if balance < cost {
			tx.Rollback()
			return fmt.Errorf("%w: balance %d, filing costs %d", ErrInsufficientCredits, balance, cost)
		}
		entry := &model.CreditEntry{
			UserID:       userID,
			Delta:        -cost,
			Reason:       model.CreditReasonFiling,
			SubmissionID: rec.SubmissionID,
		}
		if err := model.InsertCreditEntry(tx, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record filing charge: %w", err)
		}
	}

	rec.CreditsCharged = cost
	if err := model.InsertFiling(tx, rec); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record filing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit filing charge: %w", err)
	}

	if cost > 0 {
		logger.L.Info("filing credit charged", "userID", userID, "submissionID", rec.SubmissionID, "cost", cost)
	}
	return nil
}

// RefundFiling writes the compensating ledger entry and flags the filing
// record, both in one transaction. Refunding a free or already refunded
// filing is a no-op.
func (s *creditServiceImpl) RefundFiling(rec *model.FilingRecord) error {
	if rec.CreditsCharged == 0 || rec.CreditsRefunded {
		return nil
	}

	tx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to start refund transaction: %w", err)
	}
	entry := &model.CreditEntry{
		UserID:       rec.UserID,
		Delta:        rec.CreditsCharged,
		Reason:       model.CreditReasonRefund,
		SubmissionID: rec.SubmissionID,
	}
	if err := model.InsertCreditEntry(tx, entry); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record refund: %w", err)
	}
	if err := model.MarkFilingRefunded(tx, rec.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to flag filing as refunded: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refund: %w", err)
	}

	rec.CreditsRefunded = true
	logger.L.Info("filing credit refunded",
		"userID", rec.UserID, "submissionID", rec.SubmissionID, "amount", rec.CreditsCharged)
	return nil
}
