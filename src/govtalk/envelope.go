package govtalk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Qualifier is the GovTalk message qualifier. The set is closed; anything
// else in a received message is rejected at parse time.
type Qualifier string

const (
	QualifierRequest         Qualifier = "request"
	QualifierAcknowledgement Qualifier = "acknowledgement"
	QualifierResponse        Qualifier = "response"
	QualifierPoll            Qualifier = "poll"
	QualifierError           Qualifier = "error"
)

// Valid reports whether q is one of the recognised qualifiers.
func (q Qualifier) Valid() bool {
	switch q {
	case QualifierRequest, QualifierAcknowledgement, QualifierResponse, QualifierPoll, QualifierError:
		return true
	}
	return false
}

// Authentication method values used by the gateways this module talks to.
const (
	AuthMethodClear = "clear"
	AuthMethodCHMD5 = "CHMD5"
)

// ErrInvalidEnvelope reports an envelope that cannot be rendered.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Key is one classification key in the GovTalkDetails section. Keys keep
// their insertion order when rendered.
type Key struct {
	Type  string
	Value string
}

// Authentication is the credential block inside SenderDetails.
type Authentication struct {
	Method string
	Role   string
	Value  string
}

// SenderDetails identifies the submitting party.
type SenderDetails struct {
	SenderID       string
	Authentication Authentication
	EmailAddress   string
}

// Channel identifies the software product on HMRC submissions.
type Channel struct {
	URI     string
	Product string
	Version string
}

// Envelope is a GovTalk message ready to be rendered. The body fragment is
// carried verbatim; building never alters its content.
type Envelope struct {
	EnvelopeVersion string // "1.0" for the registrar, "2.0" for HMRC
	Class           string
	Qualifier       Qualifier
	Function        string // defaults to "submit"
	TransactionID   string
	CorrelationID   string
	Transformation  string // defaults to "XML"
	GatewayTest     bool
	Sender          *SenderDetails
	Keys            []Key
	Channel         *Channel
	Body            string // well-formed XML fragment, may be empty
}

// NewTransactionID returns a fresh 32-character gateway transaction id.
func NewTransactionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Build renders the envelope as a GovTalkMessage document. Output is
// deterministic for identical input, which the integrity-mark computation
// relies on.
func (e *Envelope) Build() (string, error) {
	if e.Class == "" {
		return "", fmt.Errorf("%w: message class is required", ErrInvalidEnvelope)
	}
	if !e.Qualifier.Valid() {
		return "", fmt.Errorf("%w: unknown qualifier %q", ErrInvalidEnvelope, string(e.Qualifier))
	}

	version := e.EnvelopeVersion
	if version == "" {
		version = "2.0"
	}
	function := e.Function
	if function == "" {
		function = "submit"
	}
	transformation := e.Transformation
	if transformation == "" {
		transformation = "XML"
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("GovTalkMessage")
	root.CreateAttr("xmlns", Namespace)
	root.CreateElement("EnvelopeVersion").SetText(version)

	header := root.CreateElement("Header")
	md := header.CreateElement("MessageDetails")
	md.CreateElement("Class").SetText(e.Class)
	md.CreateElement("Qualifier").SetText(string(e.Qualifier))
	md.CreateElement("Function").SetText(function)
	md.CreateElement("TransactionID").SetText(e.TransactionID)
	md.CreateElement("CorrelationID").SetText(e.CorrelationID)
	md.CreateElement("Transformation").SetText(transformation)
	if e.GatewayTest {
		md.CreateElement("GatewayTest").SetText("1")
	} else {
		md.CreateElement("GatewayTest").SetText("0")
	}

	sender := header.CreateElement("SenderDetails")
	if e.Sender != nil {
		ida := sender.CreateElement("IDAuthentication")
		ida.CreateElement("SenderID").SetText(e.Sender.SenderID)
		auth := ida.CreateElement("Authentication")
		auth.CreateElement("Method").SetText(e.Sender.Authentication.Method)
		if e.Sender.Authentication.Role != "" {
			auth.CreateElement("Role").SetText(e.Sender.Authentication.Role)
		}
		auth.CreateElement("Value").SetText(e.Sender.Authentication.Value)
		if e.Sender.EmailAddress != "" {
			sender.CreateElement("EmailAddress").SetText(e.Sender.EmailAddress)
		}
	}

	details := root.CreateElement("GovTalkDetails")
	keys := details.CreateElement("Keys")
	for _, k := range e.Keys {
		key := keys.CreateElement("Key")
		key.CreateAttr("Type", k.Type)
		key.SetText(k.Value)
	}
	if e.Channel != nil {
		routing := details.CreateElement("ChannelRouting")
		channel := routing.CreateElement("Channel")
		channel.CreateElement("URI").SetText(e.Channel.URI)
		if e.Channel.Product != "" {
			channel.CreateElement("Product").SetText(e.Channel.Product)
		}
		if e.Channel.Version != "" {
			channel.CreateElement("Version").SetText(e.Channel.Version)
		}
	}

	body := root.CreateElement("Body")
	if trimmed := strings.TrimSpace(e.Body); trimmed != "" {
		fragment := etree.NewDocument()
		if err := fragment.ReadFromString(trimmed); err != nil {
			return "", fmt.Errorf("%w: body fragment is not well-formed: %v", ErrInvalidEnvelope, err)
		}
		fragRoot := fragment.Root()
		if fragRoot == nil {
			return "", fmt.Errorf("%w: body fragment has no root element", ErrInvalidEnvelope)
		}
		body.AddChild(fragRoot)
	}

	doc.WriteSettings = etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	return doc.WriteToString()
}
