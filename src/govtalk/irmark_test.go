package govtalk

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markedEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>2.0</EnvelopeVersion>
<Header><MessageDetails><Class>HMRC-CT-CT600</Class><Qualifier>request</Qualifier></MessageDetails></Header>
<GovTalkDetails><Keys/></GovTalkDetails>
<Body>
<IRenvelope xmlns="http://www.govtalk.gov.uk/taxation/CT/5">
<IRheader>
<Keys><Key Type="UTR">1234567890</Key></Keys>
<IRmark Type="generic">STALEMARKSTALEMARKSTALEMARK=</IRmark>
<Sender>Company</Sender>
</IRheader>
<CompanyTaxReturn>
<CompanyName>Acme Widgets Ltd</CompanyName>
</CompanyTaxReturn>
</IRenvelope>
</Body>
</GovTalkMessage>`

func TestComputeIRmark_Deterministic(t *testing.T) {
	first, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)
	second, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// base64 of a SHA-1 digest is always 28 characters with one pad byte.
	assert.Len(t, first, 28)
	assert.True(t, strings.HasSuffix(first, "="))
}

func TestComputeIRmark_IgnoresExistingMarks(t *testing.T) {
	withMark, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	without := strings.Replace(markedEnvelope, "<IRmark Type=\"generic\">STALEMARKSTALEMARKSTALEMARK=</IRmark>", "", 1)
	withoutMark, err := ComputeIRmark([]byte(without))
	require.NoError(t, err)

	assert.Equal(t, withoutMark, withMark, "a stale mark must not affect the digest")
}

func TestComputeIRmark_IgnoresMultipleMarks(t *testing.T) {
	base, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	doubled := strings.Replace(markedEnvelope,
		"<Sender>Company</Sender>",
		"<Sender>Company</Sender><IRmark>ANOTHERMARK=</IRmark>", 1)
	doubledMark, err := ComputeIRmark([]byte(doubled))
	require.NoError(t, err)

	assert.Equal(t, base, doubledMark, "every mark element is stripped before digesting")
}

func TestComputeIRmark_SensitiveToBodyContent(t *testing.T) {
	base, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	changed := strings.Replace(markedEnvelope, "Acme Widgets Ltd", "Acme Widgets Limited", 1)
	changedMark, err := ComputeIRmark([]byte(changed))
	require.NoError(t, err)

	assert.NotEqual(t, base, changedMark)
}

func TestComputeIRmark_CommentsDropped(t *testing.T) {
	base, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	commented := strings.Replace(markedEnvelope,
		"<CompanyName>Acme Widgets Ltd</CompanyName>",
		"<!-- draft --><CompanyName>Acme Widgets Ltd</CompanyName>", 1)
	commentedMark, err := ComputeIRmark([]byte(commented))
	require.NoError(t, err)

	assert.Equal(t, base, commentedMark)
}

func TestComputeIRmark_LineEndingsNormalized(t *testing.T) {
	base, err := ComputeIRmark([]byte(markedEnvelope))
	require.NoError(t, err)

	crlf := strings.ReplaceAll(markedEnvelope, "\n", "\r\n")
	crlfMark, err := ComputeIRmark([]byte(crlf))
	require.NoError(t, err)

	assert.Equal(t, base, crlfMark)
}

func TestComputeIRmark_AttributeOrderIrrelevant(t *testing.T) {
	a := `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope"><Body><Doc b="2" a="1">x</Doc></Body></GovTalkMessage>`
	b := `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope"><Body><Doc a="1" b="2">x</Doc></Body></GovTalkMessage>`

	markA, err := ComputeIRmark([]byte(a))
	require.NoError(t, err)
	markB, err := ComputeIRmark([]byte(b))
	require.NoError(t, err)

	assert.Equal(t, markA, markB)
}

func TestComputeIRmark_MissingBody(t *testing.T) {
	_, err := ComputeIRmark([]byte(`<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope"><Header/></GovTalkMessage>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBody))

	var canonErr *CanonicalizationError
	require.True(t, errors.As(err, &canonErr))
	assert.Equal(t, "locate-body", canonErr.Stage)
}

func TestComputeIRmark_MalformedInput(t *testing.T) {
	_, err := ComputeIRmark([]byte(`<GovTalkMessage><Body>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedXML))
}

func TestVerifyIRmark_RoundTrip(t *testing.T) {
	env := &Envelope{
		Class:         "HMRC-CT-CT600",
		Qualifier:     QualifierRequest,
		TransactionID: "abc123",
		GatewayTest:   true,
		Body: `<IRenvelope xmlns="http://www.govtalk.gov.uk/taxation/CT/5">
<IRheader><Keys><Key Type="UTR">1234567890</Key></Keys><IRmark Type="generic"></IRmark><Sender>Company</Sender></IRheader>
<CompanyTaxReturn><CompanyName>Acme Widgets Ltd</CompanyName></CompanyTaxReturn>
</IRenvelope>`,
	}

	provisional, err := env.Build()
	require.NoError(t, err)

	mark, err := ComputeIRmark([]byte(provisional))
	require.NoError(t, err)

	final := strings.Replace(provisional,
		`<IRmark Type="generic"></IRmark>`,
		`<IRmark Type="generic">`+mark+`</IRmark>`, 1)
	require.NotEqual(t, provisional, final, "mark must be embedded for the verification round trip")

	ok, err := VerifyIRmark([]byte(final))
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := strings.Replace(final, "Acme Widgets Ltd", "Acme Gadgets Ltd", 1)
	ok, err = VerifyIRmark([]byte(tampered))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyIRmark_NoMarkPresent(t *testing.T) {
	plain := `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope"><Body><Doc>x</Doc></Body></GovTalkMessage>`
	ok, err := VerifyIRmark([]byte(plain))
	require.NoError(t, err)
	assert.False(t, ok)
}
