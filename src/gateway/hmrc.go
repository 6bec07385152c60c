package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
)

const (
	productName    = "Regfolio"
	productVersion = "1.0.0"
)

// HMRCConfig carries the sender credentials and transport knobs for the
// transaction engine.
type HMRCConfig struct {
	SenderID     string
	Password     string
	VendorID     string
	ContactName  string
	ContactEmail string
	Environment  string // config.GatewayEnvTest or config.GatewayEnvLive
	Endpoint     string
	Timeout      time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
	RateLimit    int
}

// HMRCConfigFromApp maps the loaded application config onto the transaction
// engine gateway config.
func HMRCConfigFromApp(app *config.AppConfig) HMRCConfig {
	return HMRCConfig{
		SenderID:     app.HMRCSenderID,
		Password:     app.HMRCSenderPassword,
		VendorID:     app.HMRCVendorID,
		ContactName:  app.ContactName,
		ContactEmail: app.ContactEmail,
		Environment:  app.HMRCGatewayEnv,
		Endpoint:     app.HMRCGatewayURL,
		Timeout:      app.GatewayTimeout,
		MaxAttempts:  app.GatewayMaxAttempts,
		BackoffBase:  app.GatewayBackoffBase,
		RateLimit:    app.GatewayRateLimit,
	}
}

// HMRCGateway authenticates submissions with the sender credentials and an
// integrity mark computed over the message body.
type HMRCGateway struct {
	cfg    HMRCConfig
	client *Client
}

// NewHMRCGateway validates the configuration and builds the gateway. Live
// mode without complete sender credentials is a configuration error.
func NewHMRCGateway(cfg HMRCConfig) (*HMRCGateway, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: transaction engine endpoint is not set", ErrConfiguration)
	}
	if cfg.Environment == config.GatewayEnvLive {
		if cfg.SenderID == "" {
			return nil, fmt.Errorf("%w: sender id is required in live mode", ErrConfiguration)
		}
		if cfg.Password == "" {
			return nil, fmt.Errorf("%w: sender password is required in live mode", ErrConfiguration)
		}
	}

	client := NewClient(ClientConfig{
		Name:            "hmrc",
		Endpoint:        cfg.Endpoint,
		ContentType:     "application/xml; charset=UTF-8",
		EnvelopeVersion: "2.0",
		GatewayTest:     cfg.Environment != config.GatewayEnvLive,
		Timeout:         cfg.Timeout,
		MaxAttempts:     cfg.MaxAttempts,
		BackoffBase:     cfg.BackoffBase,
		RateLimit:       cfg.RateLimit,
	})
	return &HMRCGateway{cfg: cfg, client: client}, nil
}

// Submit builds the envelope twice: a provisional render with an empty mark
// feeds the integrity-mark computation, then the final envelope embeds the
// mark and is exchanged, polling acknowledgements until the reply is final.
// bodyFor must return the same body for the same mark input.
func (g *HMRCGateway) Submit(ctx context.Context, class string, keys []govtalk.Key, bodyFor func(irmark string) string) (*Outcome, error) {
	transactionID := govtalk.NewTransactionID()

	provisionalEnv := g.envelope(class, keys, transactionID, bodyFor(""))
	provisional, err := provisionalEnv.Build()
	if err != nil {
		return nil, err
	}

	mark, err := govtalk.ComputeIRmark([]byte(provisional))
	if err != nil {
		return nil, err
	}

	finalEnv := g.envelope(class, keys, transactionID, bodyFor(mark))
	finalXML, err := finalEnv.Build()
	if err != nil {
		return nil, err
	}

	logger.L.Info("submitting to transaction engine",
		"class", class, "transactionID", transactionID, "irmark", mark, "test", finalEnv.GatewayTest)

	resp, err := g.client.SubmitAndPoll(ctx, finalXML)
	return &Outcome{RequestXML: finalXML, Response: resp}, err
}

func (g *HMRCGateway) envelope(class string, keys []govtalk.Key, transactionID, body string) *govtalk.Envelope {
	return &govtalk.Envelope{
		EnvelopeVersion: "2.0",
		Class:           class,
		Qualifier:       govtalk.QualifierRequest,
		TransactionID:   transactionID,
		GatewayTest:     g.cfg.Environment != config.GatewayEnvLive,
		Sender: &govtalk.SenderDetails{
			SenderID: g.cfg.SenderID,
			Authentication: govtalk.Authentication{
				Method: govtalk.AuthMethodClear,
				Role:   "principal",
				Value:  g.cfg.Password,
			},
			EmailAddress: g.cfg.ContactEmail,
		},
		Keys: keys,
		Channel: &govtalk.Channel{
			URI:     g.cfg.VendorID,
			Product: productName,
			Version: productVersion,
		},
		Body: body,
	}
}
