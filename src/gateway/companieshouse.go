package gateway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
)

// Outcome pairs the rendered request document with the parsed gateway reply.
// The request XML is retained even when the exchange fails so callers can
// store it for audit.
type Outcome struct {
	RequestXML string
	Response   *govtalk.Response
}

// CompaniesHouseConfig carries the presenter credentials and transport knobs
// for the registrar gateway.
type CompaniesHouseConfig struct {
	PresenterID   string
	PresenterAuth string
	Email         string
	Environment   string // config.GatewayEnvTest or config.GatewayEnvLive
	Endpoint      string
	Timeout       time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	RateLimit     int
}

// CompaniesHouseConfigFromApp maps the loaded application config onto the
// registrar gateway config.
func CompaniesHouseConfigFromApp(app *config.AppConfig) CompaniesHouseConfig {
	return CompaniesHouseConfig{
		PresenterID:   app.CHPresenterID,
		PresenterAuth: app.CHPresenterAuth,
		Email:         app.ContactEmail,
		Environment:   app.CHGatewayEnv,
		Endpoint:      app.CHGatewayURL,
		Timeout:       app.GatewayTimeout,
		MaxAttempts:   app.GatewayMaxAttempts,
		BackoffBase:   app.GatewayBackoffBase,
		RateLimit:     app.GatewayRateLimit,
	}
}

// CompaniesHouseGateway authenticates submissions with the presenter's
// hashed auth code. The hash is computed once per envelope; no second build
// pass is needed.
type CompaniesHouseGateway struct {
	cfg    CompaniesHouseConfig
	client *Client
}

// NewCompaniesHouseGateway validates the configuration and builds the
// gateway. Live mode without complete presenter credentials is a
// configuration error.
func NewCompaniesHouseGateway(cfg CompaniesHouseConfig) (*CompaniesHouseGateway, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: registrar endpoint is not set", ErrConfiguration)
	}
	if cfg.Environment == config.GatewayEnvLive {
		if cfg.PresenterID == "" {
			return nil, fmt.Errorf("%w: presenter id is required in live mode", ErrConfiguration)
		}
		if cfg.PresenterAuth == "" {
			return nil, fmt.Errorf("%w: presenter auth code is required in live mode", ErrConfiguration)
		}
	}

	client := NewClient(ClientConfig{
		Name:            "companies-house",
		Endpoint:        cfg.Endpoint,
		ContentType:     "text/xml; charset=UTF-8",
		EnvelopeVersion: "1.0",
		GatewayTest:     cfg.Environment != config.GatewayEnvLive,
		Timeout:         cfg.Timeout,
		MaxAttempts:     cfg.MaxAttempts,
		BackoffBase:     cfg.BackoffBase,
		RateLimit:       cfg.RateLimit,
	})
	return &CompaniesHouseGateway{cfg: cfg, client: client}, nil
}

// Submit wraps the body in a presenter-authenticated envelope and exchanges
// it with the registrar, polling when the reply is an acknowledgement.
func (g *CompaniesHouseGateway) Submit(ctx context.Context, class string, keys []govtalk.Key, body string) (*Outcome, error) {
	env := &govtalk.Envelope{
		EnvelopeVersion: "1.0",
		Class:           class,
		Qualifier:       govtalk.QualifierRequest,
		TransactionID:   govtalk.NewTransactionID(),
		GatewayTest:     g.cfg.Environment != config.GatewayEnvLive,
		Sender: &govtalk.SenderDetails{
			SenderID: g.cfg.PresenterID,
			Authentication: govtalk.Authentication{
				Method: govtalk.AuthMethodCHMD5,
				Value:  g.presenterDigest(),
			},
			EmailAddress: g.cfg.Email,
		},
		Keys: keys,
		Body: body,
	}

	xml, err := env.Build()
	if err != nil {
		return nil, err
	}

	logger.L.Info("submitting to registrar gateway",
		"class", class, "transactionID", env.TransactionID, "test", env.GatewayTest)

	resp, err := g.client.SubmitAndPoll(ctx, xml)
	return &Outcome{RequestXML: xml, Response: resp}, err
}

// presenterDigest is the lowercase hex MD5 of the presenter auth code, the
// form the registrar expects in the authentication value.
func (g *CompaniesHouseGateway) presenterDigest() string {
	sum := md5.Sum([]byte(g.cfg.PresenterAuth))
	return hex.EncodeToString(sum[:])
}
