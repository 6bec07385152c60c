package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/config"
	"github.com/username/regfolio/backend/src/govtalk"
)

func hmrcTestConfig(endpoint string) HMRCConfig {
	return HMRCConfig{
		SenderID:     "SENDER1",
		Password:     "hunter2",
		VendorID:     "4321",
		ContactEmail: "filings@example.com",
		Environment:  config.GatewayEnvTest,
		Endpoint:     endpoint,
		Timeout:      2 * time.Second,
		MaxAttempts:  2,
		BackoffBase:  time.Millisecond,
	}
}

func taxBodyFor(mark string) string {
	return `<IRenvelope xmlns="http://www.govtalk.gov.uk/taxation/CT/5">
<IRheader><Keys><Key Type="UTR">1234567890</Key></Keys><IRmark Type="generic">` + mark + `</IRmark><Sender>Company</Sender></IRheader>
<CompanyTaxReturn><CompanyName>Acme Widgets Ltd</CompanyName></CompanyTaxReturn>
</IRenvelope>`
}

func TestNewHMRCGateway_LiveRequiresCredentials(t *testing.T) {
	cfg := hmrcTestConfig("https://example.com")
	cfg.Environment = config.GatewayEnvLive
	cfg.Password = ""

	_, err := NewHMRCGateway(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg.Password = "secret"
	cfg.SenderID = ""
	_, err = NewHMRCGateway(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHMRCSubmit_EmbedsVerifiableMark(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = readBody(t, r)
		assert.Equal(t, "application/xml; charset=UTF-8", r.Header.Get("Content-Type"))
		fmt.Fprint(w, finalReply("CORX", "ACC-REF-1"))
	}))
	defer server.Close()

	g, err := NewHMRCGateway(hmrcTestConfig(server.URL))
	require.NoError(t, err)

	outcome, err := g.Submit(context.Background(), "HMRC-CT-CT600",
		[]govtalk.Key{{Type: "UTR", Value: "1234567890"}}, taxBodyFor)
	require.NoError(t, err)
	assert.Equal(t, captured, outcome.RequestXML)

	ok, err := govtalk.VerifyIRmark([]byte(captured))
	require.NoError(t, err)
	assert.True(t, ok, "the transmitted document carries a mark that matches its own body")

	assert.Contains(t, captured, "<Method>clear</Method>")
	assert.Contains(t, captured, "<Value>hunter2</Value>")
	assert.Contains(t, captured, "<URI>4321</URI>")
	assert.NotContains(t, captured, `<IRmark Type="generic"></IRmark>`, "the placeholder mark never leaves the building process")
}

func TestHMRCSubmit_SameTransactionIDAcrossPasses(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodies = append(bodies, readBody(t, r))
		fmt.Fprint(w, finalReply("CORY", "ACC-REF-2"))
	}))
	defer server.Close()

	g, err := NewHMRCGateway(hmrcTestConfig(server.URL))
	require.NoError(t, err)

	outcome, err := g.Submit(context.Background(), "HMRC-CT-CT600", nil, taxBodyFor)
	require.NoError(t, err)

	// only the final render is transmitted; the provisional pass stays local
	require.Len(t, bodies, 1)
	assert.Equal(t, outcome.RequestXML, bodies[0])

	mark, err := govtalk.ComputeIRmark([]byte(outcome.RequestXML))
	require.NoError(t, err)
	assert.True(t, strings.Contains(outcome.RequestXML, ">"+mark+"<"), "embedded mark equals the recomputed digest")
}

func TestHMRCSubmit_GatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>2.0</EnvelopeVersion>
<Header><MessageDetails><Class>HMRC-CT-CT600</Class><Qualifier>error</Qualifier><CorrelationID>CORZ</CorrelationID></MessageDetails><SenderDetails/></Header>
<GovTalkDetails><GovTalkErrors><Error><Number>3001</Number><Type>business</Type><Text>The submission failed validation</Text></Error></GovTalkErrors></GovTalkDetails>
<Body/></GovTalkMessage>`)
	}))
	defer server.Close()

	g, err := NewHMRCGateway(hmrcTestConfig(server.URL))
	require.NoError(t, err)

	outcome, err := g.Submit(context.Background(), "HMRC-CT-CT600", nil, taxBodyFor)
	require.NoError(t, err, "a gateway rejection is a parsed reply, not a transport failure")
	require.NotNil(t, outcome.Response)
	assert.False(t, outcome.Response.Accepted())
	require.Len(t, outcome.Response.Errors, 1)
	assert.Equal(t, "3001", outcome.Response.Errors[0].Number)
}
