package govtalk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ackReply = `<?xml version="1.0" encoding="UTF-8"?>
<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>2.0</EnvelopeVersion>
<Header>
<MessageDetails>
<Class>HMRC-CT-CT600</Class>
<Qualifier>acknowledgement</Qualifier>
<Function>submit</Function>
<TransactionID></TransactionID>
<CorrelationID>A1B2C3D4E5</CorrelationID>
<ResponseEndPoint PollInterval="10">https://transaction-engine.tax.service.gov.uk/poll</ResponseEndPoint>
<GatewayTimestamp>2026-01-10T10:00:00.000</GatewayTimestamp>
</MessageDetails>
<SenderDetails/>
</Header>
<GovTalkDetails><Keys/></GovTalkDetails>
<Body/>
</GovTalkMessage>`

const errorReply = `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>2.0</EnvelopeVersion>
<Header><MessageDetails>
<Class>HMRC-CT-CT600</Class>
<Qualifier>error</Qualifier>
<CorrelationID>A1B2C3D4E5</CorrelationID>
</MessageDetails><SenderDetails/></Header>
<GovTalkDetails>
<GovTalkErrors>
<Error>
<RaisedBy>Gateway</RaisedBy>
<Number>1046</Number>
<Type>fatal</Type>
<Text>Authentication Failure. The supplied user credentials failed validation.</Text>
</Error>
</GovTalkErrors>
</GovTalkDetails>
<Body/>
</GovTalkMessage>`

const successReply = `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>1.0</EnvelopeVersion>
<Header><MessageDetails>
<Class>ConfirmationStatement</Class>
<Qualifier>response</Qualifier>
<CorrelationID>CCDD1122</CorrelationID>
</MessageDetails><SenderDetails/></Header>
<GovTalkDetails><Keys/></GovTalkDetails>
<Body>
<SubmissionStatus>
<Status>ACCEPTED</Status>
<SubmissionNumber>SUB-90210</SubmissionNumber>
</SubmissionStatus>
</Body>
</GovTalkMessage>`

const rejectionReply = `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<EnvelopeVersion>1.0</EnvelopeVersion>
<Header><MessageDetails>
<Class>ConfirmationStatement</Class>
<Qualifier>response</Qualifier>
<CorrelationID>CCDD1122</CorrelationID>
</MessageDetails><SenderDetails/></Header>
<GovTalkDetails><Keys/></GovTalkDetails>
<Body>
<SubmissionStatus>
<Status>REJECT</Status>
<Rejections>
<Reject><RejectCode>9001</RejectCode><Description>Made up date is in the future</Description></Reject>
<Reject><RejectCode>9002</RejectCode><Description>Missing shareholder records</Description></Reject>
</Rejections>
</SubmissionStatus>
</Body>
</GovTalkMessage>`

func TestParseResponse_Acknowledgement(t *testing.T) {
	resp, err := ParseResponse(ackReply)
	require.NoError(t, err)

	assert.Equal(t, QualifierAcknowledgement, resp.Qualifier)
	assert.Equal(t, "A1B2C3D4E5", resp.CorrelationID)
	assert.Equal(t, "https://transaction-engine.tax.service.gov.uk/poll", resp.ResponseEndPoint)
	assert.Equal(t, 10*time.Second, resp.PollInterval)
	assert.True(t, resp.Accepted())
	assert.False(t, resp.Final(), "an acknowledgement leaves the submission pending")
	assert.Equal(t, "A1B2C3D4E5", resp.BestReference())
}

func TestParseResponse_GatewayError(t *testing.T) {
	resp, err := ParseResponse(errorReply)
	require.NoError(t, err)

	assert.Equal(t, QualifierError, resp.Qualifier)
	assert.False(t, resp.Accepted())
	assert.True(t, resp.Final())
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "1046", resp.Errors[0].Number)
	assert.Equal(t, "fatal", resp.Errors[0].Type)
	assert.Contains(t, resp.Errors[0].Text, "Authentication Failure")
}

func TestParseResponse_SuccessWithReference(t *testing.T) {
	resp, err := ParseResponse(successReply)
	require.NoError(t, err)

	assert.Equal(t, QualifierResponse, resp.Qualifier)
	assert.True(t, resp.Accepted())
	assert.True(t, resp.Final())
	assert.Equal(t, "SUB-90210", resp.Reference)
	assert.Equal(t, "SUB-90210", resp.BestReference())
	assert.Empty(t, resp.Errors)
}

func TestParseResponse_BodyRejections(t *testing.T) {
	resp, err := ParseResponse(rejectionReply)
	require.NoError(t, err)

	assert.Equal(t, QualifierResponse, resp.Qualifier)
	assert.False(t, resp.Accepted(), "body rejections override the response qualifier")
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "9001", resp.Errors[0].Number)
	assert.Equal(t, "business", resp.Errors[0].Type)
	assert.Equal(t, "Made up date is in the future", resp.Errors[0].Text)
	assert.Equal(t, "9002", resp.Errors[1].Number)
}

func TestParseResponse_UnknownQualifier(t *testing.T) {
	reply := `<GovTalkMessage xmlns="http://www.govtalk.gov.uk/CM/envelope">
<Header><MessageDetails><Class>X</Class><Qualifier>shout</Qualifier></MessageDetails></Header>
<Body/></GovTalkMessage>`
	_, err := ParseResponse(reply)
	assert.ErrorIs(t, err, ErrUnknownQualifier)
}

func TestParseResponse_NotGovTalk(t *testing.T) {
	_, err := ParseResponse(`<html><body>502 Bad Gateway</body></html>`)
	assert.ErrorIs(t, err, ErrNotGovTalk)
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := ParseResponse(`this is not xml at all`)
	assert.ErrorIs(t, err, ErrMalformedXML)
}
