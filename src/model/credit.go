package model

import (
	"database/sql"
	"time"
)

// Ledger reasons for credit entries. Balances are derived by summing deltas,
// never stored, so a crash between entries can only lose an entry, not
// corrupt a total.
const (
	CreditReasonPurchase = "purchase"
	CreditReasonFiling   = "filing"
	CreditReasonRefund   = "refund"
)

type CreditEntry struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Delta        int64     `json:"delta"`
	Reason       string    `json:"reason"`
	SubmissionID string    `json:"submission_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsertCreditEntry appends to the ledger inside the caller's transaction.
func InsertCreditEntry(tx *sql.Tx, entry *CreditEntry) error {
	query := `
	INSERT INTO credit_entries (user_id, delta, reason, submission_id, created_at)
	VALUES (?, ?, ?, ?, ?)`

	entry.CreatedAt = time.Now()
	var submissionID interface{}
	if entry.SubmissionID != "" {
		submissionID = entry.SubmissionID
	}
	res, err := tx.Exec(query, entry.UserID, entry.Delta, entry.Reason, submissionID, entry.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = int(id)
	return nil
}

// GetCreditBalance sums the ledger for a user. Purchased counts positive
// deltas, spent counts negative ones (as a positive number).
func GetCreditBalance(db *sql.DB, userID int) (balance, purchased, spent int64, err error) {
	query := `
	SELECT COALESCE(SUM(delta), 0),
	       COALESCE(SUM(CASE WHEN delta > 0 THEN delta ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN delta < 0 THEN -delta ELSE 0 END), 0)
	FROM credit_entries
	WHERE user_id = ?`

	row := db.QueryRow(query, userID)
	err = row.Scan(&balance, &purchased, &spent)
	return balance, purchased, spent, err
}

// GetCreditBalanceTx is the transactional variant used when deciding whether
// a spend is allowed, so the read and the debit share one transaction.
func GetCreditBalanceTx(tx *sql.Tx, userID int) (int64, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_entries WHERE user_id = ?`
	var balance int64
	err := tx.QueryRow(query, userID).Scan(&balance)
	return balance, err
}

// ListCreditEntries returns a user's ledger, newest first.
func ListCreditEntries(db *sql.DB, userID int) ([]CreditEntry, error) {
	query := `
	SELECT id, user_id, delta, reason, submission_id, created_at
	FROM credit_entries
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []CreditEntry
	for rows.Next() {
		var entry CreditEntry
		var submissionID sql.NullString
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Delta, &entry.Reason, &submissionID, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entry.SubmissionID = submissionID.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
