package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
	"github.com/username/regfolio/backend/src/security"
)

func init() {
	logger.InitLogger("error")
}

func setupHandlerTest(t *testing.T) {
	t.Helper()
	config.Cfg = &config.AppConfig{
		JWTSecret:                       "test-jwt-secret-key-0123456789abcdef",
		CSRFAuthKey:                     []byte("0123456789abcdef0123456789abcdef"),
		AccessTokenExpiry:               time.Hour,
		RefreshTokenExpiry:              24 * time.Hour,
		VerificationTokenExpiry:         24 * time.Hour,
		PasswordResetTokenExpiry:        time.Hour,
		MaxRequestBodyBytes:             1 << 20,
		ConfirmationStatementCreditCost: 1,
		CreditUnitPrice:                 decimal.RequireFromString("12.50"),
	}
	database.InitDB(filepath.Join(t.TempDir(), "handlers_test.db"))
	t.Cleanup(func() { database.DB.Close() })
}

// recordingEmailService captures outbound tokens so tests can follow the
// links a real user would click.
type recordingEmailService struct {
	verificationTokens map[string]string
	resetTokens        map[string]string
	outcomes           []*models.SubmissionResult
}

func newRecordingEmailService() *recordingEmailService {
	return &recordingEmailService{
		verificationTokens: make(map[string]string),
		resetTokens:        make(map[string]string),
	}
}

func (s *recordingEmailService) SendVerificationEmail(toEmail, username, token string) error {
	s.verificationTokens[toEmail] = token
	return nil
}

func (s *recordingEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	s.resetTokens[toEmail] = token
	return nil
}

func (s *recordingEmailService) SendFilingOutcomeEmail(toEmail, username string, result *models.SubmissionResult) error {
	s.outcomes = append(s.outcomes, result)
	return nil
}

func newTestUserHandler(emails *recordingEmailService) *UserHandler {
	return NewUserHandler(security.NewAuthService(config.Cfg.JWTSecret), emails)
}

// seedVerifiedUser creates a user straight through the model layer, already
// verified, so login-dependent tests don't repeat the registration dance.
func seedVerifiedUser(t *testing.T, username, password string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, user.HashPassword(password))
	token := "seed-token-" + username
	require.NoError(t, user.CreateUser(database.DB, token, time.Now().Add(time.Hour)))
	require.NoError(t, model.VerifyUserEmail(database.DB, token))
	user.IsEmailVerified = true
	return user
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser attaches the user id the way AuthMiddleware would.
func asUser(r *http.Request, userID int) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDContextKey, int64(userID)))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

// loginAs drives LoginUserHandler and returns the issued token pair.
func loginAs(t *testing.T, h *UserHandler, username, password string) (accessToken, refreshToken string) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	h.LoginUserHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "login should succeed: %s", rec.Body.String())

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeJSON(t, rec, &resp)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	return resp.AccessToken, resp.RefreshToken
}
