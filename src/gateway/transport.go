// backend/src/gateway/transport.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/username/regfolio/backend/src/govtalk"
	"github.com/username/regfolio/backend/src/logger"
	"golang.org/x/time/rate"
)

// ClientConfig carries everything a transport client needs for one gateway.
type ClientConfig struct {
	Name            string // gateway name used in logs and errors
	Endpoint        string
	ContentType     string
	EnvelopeVersion string
	GatewayTest     bool
	Timeout         time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	RateLimit       int // requests per second, 0 disables pacing
	MaxPolls        int
}

// Client POSTs envelopes to a gateway endpoint with bounded retries,
// exponential backoff and optional request pacing.
type Client struct {
	httpClient      http.Client
	name            string
	endpoint        string
	contentType     string
	envelopeVersion string
	gatewayTest     bool
	maxAttempts     int
	backoffBase     time.Duration
	maxPolls        int
	limiter         *rate.Limiter
}

// NewClient builds a transport client. Zero values fall back to safe defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/xml; charset=UTF-8"
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 30
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}
	return &Client{
		httpClient:      http.Client{Timeout: cfg.Timeout},
		name:            cfg.Name,
		endpoint:        cfg.Endpoint,
		contentType:     cfg.ContentType,
		envelopeVersion: cfg.EnvelopeVersion,
		gatewayTest:     cfg.GatewayTest,
		maxAttempts:     cfg.MaxAttempts,
		backoffBase:     cfg.BackoffBase,
		maxPolls:        cfg.MaxPolls,
		limiter:         limiter,
	}
}

// Submit POSTs the envelope to the gateway endpoint. Timeouts, broken
// connections, 429 and 502/503 replies are retried with doubling delays up
// to the attempt bound; any other failure is returned immediately.
func (c *Client) Submit(ctx context.Context, envelopeXML string) (*govtalk.Response, error) {
	return c.exchange(ctx, c.endpoint, envelopeXML)
}

func (c *Client) exchange(ctx context.Context, endpoint, envelopeXML string) (*govtalk.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		raw, err := c.post(ctx, endpoint, envelopeXML)
		if err == nil {
			resp, perr := govtalk.ParseResponse(raw)
			if perr != nil {
				return nil, NewTransportError(ErrorBadReply, c.name, "reply could not be parsed", perr)
			}
			logger.L.Debug("gateway reply received", "gateway", c.name, "qualifier", string(resp.Qualifier), "attempt", attempt)
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			var te *TransportError
			if errors.As(err, &te) {
				te.Attempts = attempt
			}
			return nil, err
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoffBase << (attempt - 1)
		logger.L.Warn("gateway exchange failed, backing off",
			"gateway", c.name, "attempt", attempt, "delay", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	var te *TransportError
	if errors.As(lastErr, &te) {
		te.Attempts = c.maxAttempts
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint, envelopeXML string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelopeXML))
	if err != nil {
		return "", NewTransportError(ErrorInternal, c.name, "failed to build request", err)
	}
	req.Header.Set("Content-Type", c.contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", NewTransportError(ErrorTimeout, c.name, "request timed out", err)
		}
		return "", NewTransportError(ErrorConnection, c.name, "connection failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTransportError(ErrorBadReply, c.name, "failed to read reply body", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return string(body), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", NewTransportError(ErrorRateLimited, c.name,
			fmt.Sprintf("gateway rate limited (status %d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable:
		return "", NewTransportError(ErrorGatewayOutage, c.name,
			fmt.Sprintf("gateway unavailable (status %d)", resp.StatusCode), nil)
	default:
		return "", NewTransportError(ErrorHTTPStatus, c.name,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, snippet(body)), nil)
	}
}

// SubmitAndPoll submits the envelope and, when the gateway answers with an
// acknowledgement, re-polls at the gateway-suggested interval until a final
// reply arrives or the poll bound is hit.
func (c *Client) SubmitAndPoll(ctx context.Context, envelopeXML string) (*govtalk.Response, error) {
	resp, err := c.Submit(ctx, envelopeXML)
	if err != nil {
		return nil, err
	}
	if resp.Final() {
		return resp, nil
	}
	return c.pollUntilFinal(ctx, resp)
}

func (c *Client) pollUntilFinal(ctx context.Context, initial *govtalk.Response) (*govtalk.Response, error) {
	resp := initial
	for polls := 0; !resp.Final(); polls++ {
		if polls >= c.maxPolls {
			return resp, fmt.Errorf("%w: correlation %s after %d polls", ErrPollLimit, resp.CorrelationID, polls)
		}

		interval := resp.PollInterval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(interval):
		}

		pollEnv := &govtalk.Envelope{
			EnvelopeVersion: c.envelopeVersion,
			Class:           resp.Class,
			Qualifier:       govtalk.QualifierPoll,
			Function:        "submit",
			CorrelationID:   resp.CorrelationID,
			GatewayTest:     c.gatewayTest,
		}
		pollXML, err := pollEnv.Build()
		if err != nil {
			return resp, NewTransportError(ErrorInternal, c.name, "failed to build poll message", err)
		}

		endpoint := resp.ResponseEndPoint
		if endpoint == "" {
			endpoint = c.endpoint
		}
		logger.L.Debug("polling gateway for final reply",
			"gateway", c.name, "correlationID", resp.CorrelationID, "poll", polls+1)

		next, err := c.exchange(ctx, endpoint, pollXML)
		if err != nil {
			return resp, err
		}
		resp = next
	}
	return resp, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
