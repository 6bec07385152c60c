package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/utils"
)

const csrfCookieName = "_csrf_token"

// signCSRFPayload binds a random payload to the server's CSRF key so a token
// cannot be minted by anyone who can set cookies for our origin.
func signCSRFPayload(authKey, payload []byte) string {
	mac := hmac.New(sha256.New, authKey)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validCSRFToken(authKey []byte, token string) bool {
	payloadPart, macPart, found := strings.Cut(token, ".")
	if !found {
		return false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return false
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), gotMAC)
}

// GetCSRFToken issues a signed token in both a cookie and the response, for
// the double-submit check performed by CSRFMiddleware.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	payload := make([]byte, 32)
	if _, err := rand.Read(payload); err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}
	token := signCSRFPayload(config.Cfg.CSRFAuthKey, payload)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // set true behind HTTPS
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)
	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}

// CSRFMiddleware enforces the double-submit pattern on state-changing
// requests: the X-CSRF-Token header must match the cookie and carry a valid
// signature. Safe methods pass through, matching gorilla/csrf semantics.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken == "" || err != nil {
				logger.L.Warn("CSRF validation failed: token or cookie missing",
					"method", r.Method, "path", r.URL.Path, "hasHeader", headerToken != "", "cookieErr", err)
				utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			if subtleCompare(headerToken, cookie.Value) && validCSRFToken(authKey, headerToken) {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed: token mismatch or bad signature",
				"method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
			utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}

func subtleCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
