package model

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrFilingNotFound = errors.New("filing not found")

// FilingRecord is one submission attempt as persisted. RequestXML and
// ResponseXML hold the raw envelopes for audit; ErrorsJSON holds the
// gateway's error list when the filing was rejected.
type FilingRecord struct {
	ID               int        `json:"id"`
	UserID           int        `json:"user_id"`
	SubmissionID     string     `json:"submission_id"`
	FilingType       string     `json:"filing_type"`
	CompanyNumber    string     `json:"company_number"`
	Status           string     `json:"status"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	CorrelationID    string     `json:"correlation_id,omitempty"`
	ErrorsJSON       string     `json:"errors_json,omitempty"`
	RequestXML       string     `json:"-"`
	ResponseXML      string     `json:"-"`
	CreditsCharged   int64      `json:"credits_charged"`
	CreditsRefunded  bool       `json:"credits_refunded"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// InsertFiling records a filing before it is sent to the gateway, inside the
// transaction that charges the credit, so a charged-but-unsubmitted filing is
// always visible afterwards.
func InsertFiling(tx *sql.Tx, f *FilingRecord) error {
	query := `
	INSERT INTO filings (user_id, submission_id, filing_type, company_number, status, credits_charged, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	f.CreatedAt = time.Now()
	res, err := tx.Exec(query, f.UserID, f.SubmissionID, f.FilingType, f.CompanyNumber, f.Status, f.CreditsCharged, f.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = int(id)
	return nil
}

// MarkFilingRefunded flags the record inside the transaction that writes the
// refund ledger entry.
func MarkFilingRefunded(tx *sql.Tx, filingID int) error {
	_, err := tx.Exec(`UPDATE filings SET credits_refunded = TRUE WHERE id = ?`, filingID)
	return err
}

// UpdateFilingResult stores the outcome of a submission attempt.
func UpdateFilingResult(db *sql.DB, f *FilingRecord) error {
	query := `
	UPDATE filings
	SET status = ?, gateway_reference = ?, correlation_id = ?, errors_json = ?,
	    request_xml = ?, response_xml = ?, credits_refunded = ?, submitted_at = ?
	WHERE id = ?`

	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		f.Status,
		f.GatewayReference,
		f.CorrelationID,
		f.ErrorsJSON,
		f.RequestXML,
		f.ResponseXML,
		f.CreditsRefunded,
		f.SubmittedAt,
		f.ID,
	)
	return err
}

// ListFilingsByUser returns a user's filings, newest first.
func ListFilingsByUser(db *sql.DB, userID int) ([]FilingRecord, error) {
	query := `
	SELECT id, user_id, submission_id, filing_type, company_number, status,
	       gateway_reference, correlation_id, errors_json, credits_charged,
	       credits_refunded, submitted_at, created_at
	FROM filings
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filings []FilingRecord
	for rows.Next() {
		var f FilingRecord
		var gatewayRef, correlationID, errorsJSON sql.NullString
		var submittedAt sql.NullTime
		err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.SubmissionID,
			&f.FilingType,
			&f.CompanyNumber,
			&f.Status,
			&gatewayRef,
			&correlationID,
			&errorsJSON,
			&f.CreditsCharged,
			&f.CreditsRefunded,
			&submittedAt,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		f.GatewayReference = gatewayRef.String
		f.CorrelationID = correlationID.String
		f.ErrorsJSON = errorsJSON.String
		if submittedAt.Valid {
			f.SubmittedAt = &submittedAt.Time
		}
		filings = append(filings, f)
	}
	return filings, rows.Err()
}

// CountFilingsByUser reports how many filings a user has recorded.
func CountFilingsByUser(db *sql.DB, userID int) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM filings WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// GetFilingBySubmissionID retrieves one filing, scoped to its owner.
func GetFilingBySubmissionID(db *sql.DB, userID int, submissionID string) (*FilingRecord, error) {
	query := `
	SELECT id, user_id, submission_id, filing_type, company_number, status,
	       gateway_reference, correlation_id, errors_json, request_xml, response_xml,
	       credits_charged, credits_refunded, submitted_at, created_at
	FROM filings
	WHERE user_id = ? AND submission_id = ?`

	row := db.QueryRow(query, userID, submissionID)
	var f FilingRecord
	var gatewayRef, correlationID, errorsJSON, requestXML, responseXML sql.NullString
	var submittedAt sql.NullTime
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.SubmissionID,
		&f.FilingType,
		&f.CompanyNumber,
		&f.Status,
		&gatewayRef,
		&correlationID,
		&errorsJSON,
		&requestXML,
		&responseXML,
		&f.CreditsCharged,
		&f.CreditsRefunded,
		&submittedAt,
		&f.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFilingNotFound
		}
		return nil, err
	}
	f.GatewayReference = gatewayRef.String
	f.CorrelationID = correlationID.String
	f.ErrorsJSON = errorsJSON.String
	f.RequestXML = requestXML.String
	f.ResponseXML = responseXML.String
	if submittedAt.Valid {
		f.SubmittedAt = &submittedAt.Time
	}
	return &f, nil
}

// GetFilingsBySubmissionIDs retrieves several filings in one query, keyed by
// submission id. IDs with no row are simply absent from the map.
func GetFilingsBySubmissionIDs(db *sql.DB, userID int, submissionIDs []string) (map[string]FilingRecord, error) {
	result := make(map[string]FilingRecord)
	if len(submissionIDs) == 0 {
		return result, nil
	}

	query := `
	SELECT id, user_id, submission_id, filing_type, company_number, status,
	       gateway_reference, correlation_id, errors_json, credits_charged,
	       credits_refunded, submitted_at, created_at
	FROM filings
	WHERE user_id = ? AND submission_id IN (?` + strings.Repeat(",?", len(submissionIDs)-1) + `)`

	args := make([]interface{}, 0, len(submissionIDs)+1)
	args = append(args, userID)
	for _, id := range submissionIDs {
		args = append(args, id)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f FilingRecord
		var gatewayRef, correlationID, errorsJSON sql.NullString
		var submittedAt sql.NullTime
		err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.SubmissionID,
			&f.FilingType,
			&f.CompanyNumber,
			&f.Status,
			&gatewayRef,
			&correlationID,
			&errorsJSON,
			&f.CreditsCharged,
			&f.CreditsRefunded,
			&submittedAt,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		f.GatewayReference = gatewayRef.String
		f.CorrelationID = correlationID.String
		f.ErrorsJSON = errorsJSON.String
		if submittedAt.Valid {
			f.SubmittedAt = &submittedAt.Time
		}
		result[f.SubmissionID] = f
	}
	return result, rows.Err()
}
