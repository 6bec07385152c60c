package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found, expired, or blocked")
	ErrTokenInvalid    = errors.New("token invalid or expired")
)

type User struct {
	ID              int       `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Session struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Token        string    `json:"token"`         // Access Token
	RefreshToken string    `json:"refresh_token"` // Refresh Token
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user with a pending email verification token.
func (u *User) CreateUser(db *sql.DB, verificationToken string, tokenExpiresAt time.Time) error {
	query := `
	INSERT INTO users (username, password, email, email_verification_token, email_verification_token_expires_at)
	VALUES (?, ?, ?, ?, ?)`

	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Username, u.Password, u.Email, verificationToken, tokenExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

// GetUserByUsername retrieves a user from the database by their username.
func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	query := `
	SELECT id, username, password, email, is_email_verified
	FROM users
	WHERE username = ?`

	row := db.QueryRow(query, username)
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.IsEmailVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user from the database by their id.
func GetUserByID(db *sql.DB, id int) (*User, error) {
	query := `
	SELECT id, username, password, email, is_email_verified
	FROM users
	WHERE id = ?`

	row := db.QueryRow(query, id)
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.IsEmailVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user from the database by their email address.
func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	query := `
	SELECT id, username, password, email, is_email_verified
	FROM users
	WHERE email = ?`

	row := db.QueryRow(query, email)
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.IsEmailVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// VerifyUserEmail marks the account verified when the token matches and has
// not expired, clearing the token so it cannot be replayed.
func VerifyUserEmail(db *sql.DB, token string) error {
	query := `
	UPDATE users
	SET is_email_verified = TRUE,
	    email_verification_token = NULL,
	    email_verification_token_expires_at = NULL,
	    updated_at = CURRENT_TIMESTAMP
	WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`

	res, err := db.Exec(query, token, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenInvalid
	}
	return nil
}

// SetPasswordResetToken stores a reset token and its expiry for a user.
func SetPasswordResetToken(db *sql.DB, userID int, token string, expiresAt time.Time) error {
	query := `
	UPDATE users
	SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

	_, err := db.Exec(query, token, expiresAt, userID)
	return err
}

// ResetPasswordByToken replaces the password for the account holding a live
// reset token and clears the token.
func ResetPasswordByToken(db *sql.DB, token, hashedPassword string) error {
	query := `
	UPDATE users
	SET password = ?,
	    password_reset_token = NULL,
	    password_reset_token_expires_at = NULL,
	    updated_at = CURRENT_TIMESTAMP
	WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`

	res, err := db.Exec(query, hashedPassword, token, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenInvalid
	}
	return nil
}

// CreateSession inserts a new session into the database.
func CreateSession(db *sql.DB, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`

	row := db.QueryRow(query, token, time.Now())
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByRefreshToken retrieves an active, non-blocked session by its
// refresh token. Refresh tokens are opaque random strings, not JWTs, so the
// only way to validate one is to find its session row.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`

	row := db.QueryRow(query, refreshToken, time.Now())
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// DeleteSessionByToken removes a session from the database based on the access token.
// A missing row is not an error: the session may already have expired.
func DeleteSessionByToken(db *sql.DB, token string) error {
	query := `DELETE FROM sessions WHERE token = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(token)
	return err
}
