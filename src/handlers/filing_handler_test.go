package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
	"github.com/username/regfolio/backend/src/services"
)

type stubStatementService struct {
	result    *models.SubmissionResult
	err       error
	gotUserID int
}

func (s *stubStatementService) Submit(ctx context.Context, userID int, data models.ConfirmationStatementData) (*models.SubmissionResult, error) {
	s.gotUserID = userID
	return s.result, s.err
}

type stubAccountsService struct {
	result    *models.SubmissionResult
	err       error
	gotUserID int
}

func (s *stubAccountsService) Submit(ctx context.Context, userID int, data models.AccountsData) (*models.SubmissionResult, error) {
	s.gotUserID = userID
	return s.result, s.err
}

type stubStatusService struct {
	status *services.FilingStatus
	err    error
}

func (s *stubStatusService) GetStatus(userID int, submissionID string) (*services.FilingStatus, error) {
	return s.status, s.err
}

func newTestFilingHandler(stmt *stubStatementService, acc *stubAccountsService, status *stubStatusService) *FilingHandler {
	if stmt == nil {
		stmt = &stubStatementService{}
	}
	if acc == nil {
		acc = &stubAccountsService{}
	}
	if status == nil {
		status = &stubStatusService{}
	}
	return NewFilingHandler(stmt, acc, status)
}

func seedFiling(t *testing.T, userID int, submissionID, status string) *model.FilingRecord {
	t.Helper()
	rec := &model.FilingRecord{
		UserID:        userID,
		SubmissionID:  submissionID,
		FilingType:    string(models.FilingTypeConfirmationStatement),
		CompanyNumber: "12345678",
		Status:        status,
	}
	tx, err := database.DB.Begin()
	require.NoError(t, err)
	require.NoError(t, model.InsertFiling(tx, rec))
	require.NoError(t, tx.Commit())
	return rec
}

func TestHandleSubmitConfirmationStatement_Success(t *testing.T) {
	setupHandlerTest(t)
	stmt := &stubStatementService{
		result: &models.SubmissionResult{
			Success:          true,
			SubmissionID:     "sub-123",
			FilingType:       models.FilingTypeConfirmationStatement,
			GatewayReference: "REF-1",
			SubmittedAt:      time.Now(),
		},
	}
	h := newTestFilingHandler(stmt, nil, nil)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/filings/confirmation-statement",
		map[string]string{"company_number": "12345678"}), 42)
	rec := httptest.NewRecorder()
	h.HandleSubmitConfirmationStatement(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 42, stmt.gotUserID)

	var resp models.SubmissionResult
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "sub-123", resp.SubmissionID)
	assert.Equal(t, "REF-1", resp.GatewayReference)
}

func TestHandleSubmitConfirmationStatement_GatewayRejectionIsStillOK(t *testing.T) {
	setupHandlerTest(t)
	stmt := &stubStatementService{
		result: &models.SubmissionResult{
			Success:      false,
			SubmissionID: "sub-124",
			FilingType:   models.FilingTypeConfirmationStatement,
			Errors: []models.SubmissionError{
				{Code: "502", Type: "business", Message: "Authentication Failure"},
			},
		},
	}
	h := newTestFilingHandler(stmt, nil, nil)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/filings/confirmation-statement",
		map[string]string{"company_number": "12345678"}), 42)
	rec := httptest.NewRecorder()
	h.HandleSubmitConfirmationStatement(rec, req)

	// The exchange completed; the verdict travels in the body.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SubmissionResult
	decodeJSON(t, rec, &resp)
	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "502", resp.Errors[0].Code)
}

func TestHandleSubmitConfirmationStatement_ErrorMapping(t *testing.T) {
	setupHandlerTest(t)

	valErr := &models.ValidationError{}
	valErr.Add("company_number", "must be 8 characters")

	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", fmt.Errorf("%w: %w", services.ErrValidationFailed, valErr), http.StatusBadRequest},
		{"insufficient credits", fmt.Errorf("%w: balance 0, filing costs 1", services.ErrInsufficientCredits), http.StatusPaymentRequired},
		{"transport failure", fmt.Errorf("%w: %w", services.ErrSubmissionFailed, fmt.Errorf("connection refused")), http.StatusBadGateway},
		{"unexpected", fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestFilingHandler(&stubStatementService{err: tc.err}, nil, nil)
			req := asUser(jsonRequest(t, http.MethodPost, "/api/filings/confirmation-statement",
				map[string]string{"company_number": "x"}), 42)
			rec := httptest.NewRecorder()
			h.HandleSubmitConfirmationStatement(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleSubmitConfirmationStatement_ValidationFieldsInBody(t *testing.T) {
	setupHandlerTest(t)
	valErr := &models.ValidationError{}
	valErr.Add("made_up_date", "must be YYYY-MM-DD")
	h := newTestFilingHandler(&stubStatementService{
		err: fmt.Errorf("%w: %w", services.ErrValidationFailed, valErr),
	}, nil, nil)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/filings/confirmation-statement",
		map[string]string{"company_number": "x"}), 42)
	rec := httptest.NewRecorder()
	h.HandleSubmitConfirmationStatement(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error  string              `json:"error"`
		Fields []models.FieldError `json:"fields"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "made_up_date", resp.Fields[0].Field)
}

func TestHandleSubmitConfirmationStatement_RequiresAuth(t *testing.T) {
	setupHandlerTest(t)
	h := newTestFilingHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleSubmitConfirmationStatement(rec, jsonRequest(t, http.MethodPost,
		"/api/filings/confirmation-statement", map[string]string{}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSubmitAnnualAccounts_Success(t *testing.T) {
	setupHandlerTest(t)
	acc := &stubAccountsService{
		result: &models.SubmissionResult{
			Success:          true,
			SubmissionID:     "sub-acc-1",
			FilingType:       models.FilingTypeAnnualAccounts,
			GatewayReference: "IRREF-7",
		},
	}
	h := newTestFilingHandler(nil, acc, nil)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/filings/accounts",
		map[string]interface{}{"context": map[string]string{"company_number": "12345678"}}), 7)
	rec := httptest.NewRecorder()
	h.HandleSubmitAnnualAccounts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 7, acc.gotUserID)
	var resp models.SubmissionResult
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "IRREF-7", resp.GatewayReference)
}

func TestHandleListFilings_ETag(t *testing.T) {
	setupHandlerTest(t)
	user := seedVerifiedUser(t, "lister", "a long enough password")
	seedFiling(t, user.ID, "sub-l1", "accepted")
	seedFiling(t, user.ID, "sub-l2", "pending")
	h := newTestFilingHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleListFilings(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/filings", nil), user.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var filings []model.FilingRecord
	decodeJSON(t, rec, &filings)
	require.Len(t, filings, 2)
	assert.Equal(t, "sub-l2", filings[0].SubmissionID)

	// Replaying with the ETag yields 304 and no body.
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/filings", nil), user.ID)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.HandleListFilings(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestHandleListFilings_EmptyIsAnArray(t *testing.T) {
	setupHandlerTest(t)
	user := seedVerifiedUser(t, "empty", "a long enough password")
	h := newTestFilingHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleListFilings(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/filings", nil), user.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleGetFiling(t *testing.T) {
	setupHandlerTest(t)
	user := seedVerifiedUser(t, "getter", "a long enough password")
	stored := seedFiling(t, user.ID, "sub-g1", "accepted")
	stored.RequestXML = "<GovTalkMessage>request</GovTalkMessage>"
	stored.ResponseXML = "<GovTalkMessage>reply</GovTalkMessage>"
	stored.GatewayReference = "REF-G"
	require.NoError(t, model.UpdateFilingResult(database.DB, stored))
	h := newTestFilingHandler(nil, nil, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-g1", nil), user.ID)
	req.SetPathValue("submissionID", "sub-g1")
	rec := httptest.NewRecorder()
	h.HandleGetFiling(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The envelopes stay out of the regular JSON payload.
	var resp map[string]interface{}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "sub-g1", resp["submission_id"])
	assert.Equal(t, "REF-G", resp["gateway_reference"])
	assert.NotContains(t, resp, "request_xml")
	assert.NotContains(t, resp, "response_xml")

	// Unknown ids and other users' filings both read as absent.
	req = asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-unknown", nil), user.ID)
	req.SetPathValue("submissionID", "sub-unknown")
	rec = httptest.NewRecorder()
	h.HandleGetFiling(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-g1", nil), user.ID+1)
	req.SetPathValue("submissionID", "sub-g1")
	rec = httptest.NewRecorder()
	h.HandleGetFiling(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetFilingXML(t *testing.T) {
	setupHandlerTest(t)
	user := seedVerifiedUser(t, "auditor", "a long enough password")
	stored := seedFiling(t, user.ID, "sub-x1", "accepted")
	stored.RequestXML = "<GovTalkMessage>request</GovTalkMessage>"
	stored.ResponseXML = "<GovTalkMessage>reply</GovTalkMessage>"
	require.NoError(t, model.UpdateFilingResult(database.DB, stored))
	h := newTestFilingHandler(nil, nil, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-x1/xml", nil), user.ID)
	req.SetPathValue("submissionID", "sub-x1")
	rec := httptest.NewRecorder()
	h.HandleGetFilingXML(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "<GovTalkMessage>request</GovTalkMessage>", resp["request_xml"])
	assert.Equal(t, "<GovTalkMessage>reply</GovTalkMessage>", resp["response_xml"])
}

func TestHandleGetFilingStatus(t *testing.T) {
	setupHandlerTest(t)
	submitted := time.Now()
	status := &stubStatusService{
		status: &services.FilingStatus{
			SubmissionID:     "sub-s1",
			FilingType:       string(models.FilingTypeConfirmationStatement),
			CompanyNumber:    "12345678",
			Status:           "accepted",
			GatewayReference: "REF-S",
			SubmittedAt:      &submitted,
		},
	}
	h := newTestFilingHandler(nil, nil, status)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-s1/status", nil), 42)
	req.SetPathValue("submissionID", "sub-s1")
	rec := httptest.NewRecorder()
	h.HandleGetFilingStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.FilingStatus
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, "REF-S", resp.GatewayReference)

	// Missing filings surface as 404.
	h = newTestFilingHandler(nil, nil, &stubStatusService{err: model.ErrFilingNotFound})
	req = asUser(httptest.NewRequest(http.MethodGet, "/api/filings/sub-s2/status", nil), 42)
	req.SetPathValue("submissionID", "sub-s2")
	rec = httptest.NewRecorder()
	h.HandleGetFilingStatus(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
