// backend/src/handlers/user_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/security"
	"github.com/username/regfolio/backend/src/services"
	"github.com/username/regfolio/backend/src/utils"
)

// Context keys use an unexported type to avoid collisions with other packages.
type contextKey string

const userIDContextKey contextKey = "userID"

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

func validUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return errors.New("username must be between 3 and 30 characters")
	}
	for _, r := range username {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-') {
			return errors.New("username may only contain letters, digits, '.', '_' and '-'")
		}
	}
	return nil
}

func validPassword(password string) error {
	if len(password) < 10 {
		return errors.New("password must be at least 10 characters")
	}
	// bcrypt only hashes the first 72 bytes
	if len(password) > 72 {
		return errors.New("password must be at most 72 characters")
	}
	return nil
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Username = strings.TrimSpace(credentials.Username)
	credentials.Email = strings.TrimSpace(credentials.Email)

	if err := validUsername(credentials.Username); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(credentials.Email); err != nil {
		utils.SendJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if err := validPassword(credentials.Password); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(credentials.Password)
	if err != nil {
		logger.L.Error("Failed to hash password during registration", "error", err)
		utils.SendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	verificationToken, err := security.GenerateSecureToken()
	if err != nil {
		logger.L.Error("Failed to generate verification token", "error", err)
		utils.SendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username: credentials.Username,
		Email:    credentials.Email,
		Password: hashedPassword,
	}

	tokenExpiresAt := time.Now().Add(config.Cfg.VerificationTokenExpiry)
	if err := user.CreateUser(database.DB, verificationToken, tokenExpiresAt); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			utils.SendJSONError(w, "Username already exists", http.StatusConflict)
			return
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			utils.SendJSONError(w, "Email already registered", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create user", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendVerificationEmail(user.Email, user.Username, verificationToken); err != nil {
		// The account exists; the user can request the email again later.
		logger.L.Error("Failed to send verification email", "userID", user.ID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "User registered successfully. Please check your email to verify your account.",
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err != nil {
		logger.L.Debug("Login failed: user lookup", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Debug("Login failed: password mismatch", "username", credentials.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if !user.IsEmailVerified {
		utils.SendJSONError(w, "Email not verified. Please check your inbox.", http.StatusForbidden)
		return
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		logger.L.Error("Failed to generate access token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User logged in", "userID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	// Refresh tokens are opaque; the session row is their source of truth.
	session, err := model.GetSessionByRefreshToken(database.DB, requestBody.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh failed: session lookup", "error", err)
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	newAccessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new access token", http.StatusInternalServerError)
		return
	}
	newRefreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new refresh token", http.StatusInternalServerError)
		return
	}

	newSession := &model.Session{
		UserID:       session.UserID,
		Token:        newAccessToken,
		RefreshToken: newRefreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, newSession); err != nil {
		utils.SendJSONError(w, "Failed to create new session on refresh", http.StatusInternalServerError)
		return
	}

	// Rotate: the old pair stops working once the new one is issued.
	if err := model.DeleteSessionByToken(database.DB, session.Token); err != nil {
		logger.L.Warn("Failed to delete rotated session", "userID", session.UserID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Warn("Logout: failed to delete session", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyEmailHandler confirms an address from the link sent at registration.
// The token arrives as a query parameter.
func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.SendJSONError(w, "Verification token is required", http.StatusBadRequest)
		return
	}

	if err := model.VerifyUserEmail(database.DB, token); err != nil {
		if errors.Is(err, model.ErrTokenInvalid) {
			utils.SendJSONError(w, "Verification token is invalid or has expired", http.StatusBadRequest)
			return
		}
		logger.L.Error("Email verification failed", "error", err)
		utils.SendJSONError(w, "Failed to verify email", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Email verified successfully. You can now log in.",
	})
}

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Always answer the same way so the endpoint cannot be used to probe
	// which addresses have accounts.
	respond := func() {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "If an account exists for that email, a password reset link has been sent.",
		})
	}

	user, err := model.GetUserByEmail(database.DB, strings.TrimSpace(requestBody.Email))
	if err != nil {
		logger.L.Debug("Password reset requested for unknown email")
		respond()
		return
	}

	resetToken, err := security.GenerateSecureToken()
	if err != nil {
		logger.L.Error("Failed to generate password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}

	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if err := model.SetPasswordResetToken(database.DB, user.ID, resetToken, expiresAt); err != nil {
		logger.L.Error("Failed to store password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}

	if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, resetToken); err != nil {
		logger.L.Error("Failed to send password reset email", "userID", user.ID, "error", err)
	}
	respond()
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.Token == "" {
		utils.SendJSONError(w, "Reset token is required", http.StatusBadRequest)
		return
	}
	if err := validPassword(requestBody.NewPassword); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(requestBody.NewPassword)
	if err != nil {
		logger.L.Error("Failed to hash password during reset", "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	if err := model.ResetPasswordByToken(database.DB, requestBody.Token, hashedPassword); err != nil {
		if errors.Is(err, model.ErrTokenInvalid) {
			utils.SendJSONError(w, "Reset token is invalid or has expired", http.StatusBadRequest)
			return
		}
		logger.L.Error("Password reset failed", "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Password has been reset. You can now log in with your new password.",
	})
}

// HandleCheckUserData reports whether the user has filed anything yet, so the
// frontend can choose between an empty state and the filings dashboard.
func (h *UserHandler) HandleCheckUserData(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	count, err := model.CountFilingsByUser(database.DB, int(userID))
	if err != nil {
		logger.L.Error("Failed to count filings", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to check user data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"hasData": count > 0})
}

// GetUserIDFromContext retrieves the userID placed by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}
