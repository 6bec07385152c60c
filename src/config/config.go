package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type AppConfig struct {
	JWTSecret           string
	Port                string
	DatabasePath        string
	LogLevel            string
	CSRFAuthKey         []byte
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	MaxRequestBodyBytes int64

	// Companies House XML gateway.
	CHGatewayEnv     string // "test" or "live"
	CHGatewayURL     string
	CHPresenterID    string
	CHPresenterAuth  string
	CHPackageVersion string

	// HMRC transaction engine.
	HMRCGatewayEnv     string // "test" or "live"
	HMRCGatewayURL     string
	HMRCSenderID       string
	HMRCSenderPassword string
	HMRCVendorID       string
	ContactName        string
	ContactEmail       string

	GatewayTimeout     time.Duration
	GatewayMaxAttempts int
	GatewayBackoffBase time.Duration
	GatewayRateLimit   int

	ConfirmationStatementCreditCost int64
	CreditUnitPrice                 decimal.Decimal

	EmailServiceProvider string

	VerificationEmailBaseURL string
	VerificationTokenExpiry  time.Duration
	PasswordResetBaseURL     string // e.g., http://localhost:3000/reset-password
	PasswordResetTokenExpiry time.Duration

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string
}

var Cfg *AppConfig

const (
	chGatewayURLDefault = "https://xmlgw.companieshouse.gov.uk/v1-0/xmlgw/Gateway"
	hmrcGatewayURLTest  = "https://test-transaction-engine.tax.service.gov.uk/submission"
	hmrcGatewayURLLive  = "https://transaction-engine.tax.service.gov.uk/submission"
	GatewayEnvTest      = "test"
	GatewayEnvLive      = "live"
)

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	csrfAuthKeyStr := getEnv("CSRF_AUTH_KEY", "a-very-secure-32-byte-long-key-must-be-32-bytes!")
	if csrfAuthKeyStr == "a-very-secure-32-byte-long-key-must-be-32-bytes!" {
		log.Println("WARNING: Using default insecure CSRF_AUTH_KEY. Set CSRF_AUTH_KEY environment variable for production.")
	}
	if len(csrfAuthKeyStr) < 32 {
		log.Fatalf("FATAL: CSRF_AUTH_KEY must be at least 32 bytes long. Current length: %d", len(csrfAuthKeyStr))
	}

	accessTokenExpiryStr := getEnv("ACCESS_TOKEN_EXPIRY", "60m")
	refreshTokenExpiryStr := getEnv("REFRESH_TOKEN_EXPIRY", "168h")
	accessTokenExpiry, err := time.ParseDuration(accessTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid ACCESS_TOKEN_EXPIRY format '%s'. Using default 60m. Error: %v", accessTokenExpiryStr, err)
		accessTokenExpiry = 60 * time.Minute
	}
	refreshTokenExpiry, err := time.ParseDuration(refreshTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid REFRESH_TOKEN_EXPIRY format '%s'. Using default 7d (168h). Error: %v", refreshTokenExpiryStr, err)
		refreshTokenExpiry = 7 * 24 * time.Hour
	}

	maxRequestBodyBytesStr := getEnv("MAX_REQUEST_BODY_BYTES", "10485760")
	maxRequestBodyBytes, err := strconv.ParseInt(maxRequestBodyBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_REQUEST_BODY_BYTES format '%s'. Using default 10MB. Error: %v", maxRequestBodyBytesStr, err)
		maxRequestBodyBytes = 10 * 1024 * 1024
	}

	chGatewayEnv := getEnv("CH_GATEWAY_ENV", GatewayEnvTest)
	if chGatewayEnv != GatewayEnvTest && chGatewayEnv != GatewayEnvLive {
		log.Fatalf("FATAL: CH_GATEWAY_ENV must be '%s' or '%s', got '%s'.", GatewayEnvTest, GatewayEnvLive, chGatewayEnv)
	}

	hmrcGatewayEnv := getEnv("HMRC_GATEWAY_ENV", GatewayEnvTest)
	if hmrcGatewayEnv != GatewayEnvTest && hmrcGatewayEnv != GatewayEnvLive {
		log.Fatalf("FATAL: HMRC_GATEWAY_ENV must be '%s' or '%s', got '%s'.", GatewayEnvTest, GatewayEnvLive, hmrcGatewayEnv)
	}
	hmrcURLDefault := hmrcGatewayURLTest
	if hmrcGatewayEnv == GatewayEnvLive {
		hmrcURLDefault = hmrcGatewayURLLive
	}

	verificationTokenExpiryStr := getEnv("VERIFICATION_TOKEN_EXPIRY", "24h")
	verificationTokenExpiry, err := time.ParseDuration(verificationTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid VERIFICATION_TOKEN_EXPIRY format '%s'. Using default 24h. Error: %v", verificationTokenExpiryStr, err)
		verificationTokenExpiry = 24 * time.Hour
	}

	passwordResetTokenExpiryStr := getEnv("PASSWORD_RESET_TOKEN_EXPIRY", "1h")
	passwordResetTokenExpiry, err := time.ParseDuration(passwordResetTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid PASSWORD_RESET_TOKEN_EXPIRY format '%s'. Using default 1h. Error: %v", passwordResetTokenExpiryStr, err)
		passwordResetTokenExpiry = 1 * time.Hour
	}

	creditCostStr := getEnv("CONFIRMATION_STATEMENT_CREDIT_COST", "1")
	creditCost, err := strconv.ParseInt(creditCostStr, 10, 64)
	if err != nil || creditCost < 0 {
		log.Printf("WARNING: Invalid CONFIRMATION_STATEMENT_CREDIT_COST '%s'. Using default 1. Error: %v", creditCostStr, err)
		creditCost = 1
	}

	creditUnitPriceStr := getEnv("CREDIT_UNIT_PRICE_GBP", "12.50")
	creditUnitPrice, err := decimal.NewFromString(creditUnitPriceStr)
	if err != nil || creditUnitPrice.IsNegative() {
		log.Printf("WARNING: Invalid CREDIT_UNIT_PRICE_GBP '%s'. Using default 12.50. Error: %v", creditUnitPriceStr, err)
		creditUnitPrice = decimal.NewFromFloat(12.50)
	}

	Cfg = &AppConfig{
		JWTSecret:           jwtSecret,
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "./regfolio.db"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CSRFAuthKey:         []byte(csrfAuthKeyStr),
		AccessTokenExpiry:   accessTokenExpiry,
		RefreshTokenExpiry:  refreshTokenExpiry,
		MaxRequestBodyBytes: maxRequestBodyBytes,

		CHGatewayEnv:     chGatewayEnv,
		CHGatewayURL:     getEnv("CH_GATEWAY_URL", chGatewayURLDefault),
		CHPresenterID:    getEnv("CH_PRESENTER_ID", ""),
		CHPresenterAuth:  getEnv("CH_PRESENTER_AUTH", ""),
		CHPackageVersion: getEnv("CH_PACKAGE_VERSION", "1.0"),

		HMRCGatewayEnv:     hmrcGatewayEnv,
		HMRCGatewayURL:     getEnv("HMRC_GATEWAY_URL", hmrcURLDefault),
		HMRCSenderID:       getEnv("HMRC_SENDER_ID", ""),
		HMRCSenderPassword: getEnv("HMRC_SENDER_PASSWORD", ""),
		HMRCVendorID:       getEnv("HMRC_VENDOR_ID", "0000"),
		ContactName:        getEnv("GATEWAY_CONTACT_NAME", ""),
		ContactEmail:       getEnv("GATEWAY_CONTACT_EMAIL", ""),

		GatewayTimeout:     getEnvAsDuration("GATEWAY_TIMEOUT", 60*time.Second),
		GatewayMaxAttempts: getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 4),
		GatewayBackoffBase: getEnvAsDuration("GATEWAY_BACKOFF_BASE", 2*time.Second),
		GatewayRateLimit:   getEnvAsInt("GATEWAY_RATE_LIMIT", 2),

		ConfirmationStatementCreditCost: creditCost,
		CreditUnitPrice:                 creditUnitPrice,

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		VerificationEmailBaseURL: getEnv("VERIFICATION_EMAIL_BASE_URL", "http://localhost:3000/verify-email"),
		VerificationTokenExpiry:  verificationTokenExpiry,
		PasswordResetBaseURL:     getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:3000/reset-password"),
		PasswordResetTokenExpiry: passwordResetTokenExpiry,

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "Regfolio App"),
	}

	if Cfg.CHGatewayEnv == GatewayEnvLive {
		if Cfg.CHPresenterID == "" {
			log.Fatalf("FATAL: CH_PRESENTER_ID is required when CH_GATEWAY_ENV is 'live', but it's not set in environment or .env file.")
		}
		if Cfg.CHPresenterAuth == "" {
			log.Fatalf("FATAL: CH_PRESENTER_AUTH is required when CH_GATEWAY_ENV is 'live', but it's not set in environment or .env file.")
		}
	}

	if Cfg.HMRCGatewayEnv == GatewayEnvLive {
		if Cfg.HMRCSenderID == "" {
			log.Fatalf("FATAL: HMRC_SENDER_ID is required when HMRC_GATEWAY_ENV is 'live', but it's not set in environment or .env file.")
		}
		if Cfg.HMRCSenderPassword == "" {
			log.Fatalf("FATAL: HMRC_SENDER_PASSWORD is required when HMRC_GATEWAY_ENV is 'live', but it's not set in environment or .env file.")
		}
		if Cfg.ContactEmail == "" {
			log.Fatalf("FATAL: GATEWAY_CONTACT_EMAIL must be configured when HMRC_GATEWAY_ENV is 'live'.")
		}
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.SenderEmail == "noreply@example.com" || Cfg.SenderEmail == "" {
			log.Fatalf("FATAL: SENDER_EMAIL must be configured properly (e.g., your Mailgun sender) when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, CHGatewayEnv=%s, HMRCGatewayEnv=%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.CHGatewayEnv, Cfg.HMRCGatewayEnv, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
