package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/utils"
)

// bearerToken extracts the token from the Authorization header. Clients that
// omit the Bearer prefix still work.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// AuthMiddleware validates the access token and its backing session, then
// places the user id on the request context.
func (h *UserHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			logger.L.Debug("AuthMiddleware: Authorization header missing or empty", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		userIDStr, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			logger.L.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// A valid JWT is not enough: logout and refresh rotation revoke the
		// session row, so the row must still exist.
		if _, err := model.GetSessionByToken(database.DB, tokenString); err != nil {
			logger.L.Warn("AuthMiddleware: Session validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired session", http.StatusUnauthorized)
			return
		}

		userIDInt, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			logger.L.Error("AuthMiddleware: Invalid user ID format in token", "userIDStr", userIDStr, "error", err)
			utils.SendJSONError(w, "Invalid user ID in token", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userIDInt)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
