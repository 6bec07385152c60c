package govtalk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

var (
	// ErrNotGovTalk reports a reply whose root is not a GovTalkMessage.
	ErrNotGovTalk = errors.New("reply is not a govtalk message")
	// ErrUnknownQualifier reports a qualifier outside the closed set.
	ErrUnknownQualifier = errors.New("unknown message qualifier")
)

// ResponseError is one structured error extracted from a gateway reply,
// either from the envelope error block or from a rejection in the body.
type ResponseError struct {
	RaisedBy string
	Number   string
	Type     string
	Text     string
	Location string
}

// Response is a parsed gateway reply.
type Response struct {
	Raw              string
	EnvelopeVersion  string
	Class            string
	Qualifier        Qualifier
	TransactionID    string
	CorrelationID    string
	ResponseEndPoint string
	PollInterval     time.Duration
	GatewayTimestamp string
	Reference        string
	Errors           []ResponseError
}

// referenceElements is the ordered list of body element names tried when
// extracting the gateway's reference for an accepted submission.
var referenceElements = []string{"SubmissionNumber", "SubmissionID", "DocumentID", "Receipt"}

// ParseResponse decodes a gateway reply. Success markers are evaluated in a
// fixed order: the qualifier decides first, then the presence of a reference
// element; error details are collected from the envelope error block and any
// rejection section in the body.
func ParseResponse(raw string) (*Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrMalformedXML
	}
	if root.Tag != "GovTalkMessage" {
		return nil, fmt.Errorf("%w: got <%s>", ErrNotGovTalk, root.Tag)
	}

	resp := &Response{Raw: raw}
	resp.EnvelopeVersion = childText(root, "EnvelopeVersion")

	md := findFirstElement(root, "MessageDetails")
	if md == nil {
		return nil, fmt.Errorf("%w: missing MessageDetails", ErrNotGovTalk)
	}
	resp.Class = childText(md, "Class")
	resp.TransactionID = childText(md, "TransactionID")
	resp.CorrelationID = childText(md, "CorrelationID")
	resp.GatewayTimestamp = childText(md, "GatewayTimestamp")

	qualifier := Qualifier(childText(md, "Qualifier"))
	if !qualifier.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQualifier, string(qualifier))
	}
	resp.Qualifier = qualifier

	if ep := md.SelectElement("ResponseEndPoint"); ep != nil {
		resp.ResponseEndPoint = strings.TrimSpace(ep.Text())
		if interval := ep.SelectAttrValue("PollInterval", ""); interval != "" {
			if secs, err := strconv.Atoi(interval); err == nil && secs > 0 {
				resp.PollInterval = time.Duration(secs) * time.Second
			}
		}
	}

	resp.Errors = append(resp.Errors, envelopeErrors(root)...)

	if body := findFirstElement(root, "Body"); body != nil {
		resp.Errors = append(resp.Errors, bodyRejections(body)...)
		resp.Reference = extractReference(body)
	}

	return resp, nil
}

// Accepted reports whether the reply marks the submission as taken. The
// qualifier is checked first; a reference element alone is accepted only for
// replies that carry neither a decisive qualifier nor errors.
func (r *Response) Accepted() bool {
	if r.Qualifier == QualifierError {
		return false
	}
	if len(r.Errors) > 0 {
		return false
	}
	if r.Qualifier == QualifierResponse || r.Qualifier == QualifierAcknowledgement {
		return true
	}
	return r.Reference != ""
}

// Final reports whether the reply ends the exchange. Acknowledgements leave
// the submission pending and must be polled.
func (r *Response) Final() bool {
	return r.Qualifier == QualifierResponse || r.Qualifier == QualifierError
}

// BestReference returns the extracted reference, falling back to the
// correlation id when the body carried none.
func (r *Response) BestReference() string {
	if r.Reference != "" {
		return r.Reference
	}
	return r.CorrelationID
}

func envelopeErrors(root *etree.Element) []ResponseError {
	block := findFirstElement(root, "GovTalkErrors")
	if block == nil {
		return nil
	}
	var out []ResponseError
	for _, el := range block.ChildElements() {
		if el.Tag != "Error" {
			continue
		}
		out = append(out, ResponseError{
			RaisedBy: childText(el, "RaisedBy"),
			Number:   childText(el, "Number"),
			Type:     childText(el, "Type"),
			Text:     childText(el, "Text"),
			Location: childText(el, "Location"),
		})
	}
	return out
}

// bodyRejections extracts business rejections from the reply body. Both the
// registrar's Rejections/Reject shape and HMRC's ErrorResponse/Error shape
// are understood.
func bodyRejections(body *etree.Element) []ResponseError {
	var out []ResponseError
	if rejections := findFirstElement(body, "Rejections"); rejections != nil {
		for _, reject := range rejections.ChildElements() {
			if reject.Tag != "Reject" {
				continue
			}
			out = append(out, ResponseError{
				Number: firstNonEmpty(childText(reject, "RejectCode"), childText(reject, "Code")),
				Type:   "business",
				Text:   firstNonEmpty(childText(reject, "Description"), strings.TrimSpace(reject.Text())),
			})
		}
	}
	if errResp := findFirstElement(body, "ErrorResponse"); errResp != nil {
		for _, el := range errResp.ChildElements() {
			if el.Tag != "Error" {
				continue
			}
			out = append(out, ResponseError{
				RaisedBy: childText(el, "RaisedBy"),
				Number:   childText(el, "Number"),
				Type:     childText(el, "Type"),
				Text:     childText(el, "Text"),
				Location: childText(el, "Location"),
			})
		}
	}
	return out
}

func extractReference(body *etree.Element) string {
	for _, name := range referenceElements {
		if el := findFirstElement(body, name); el != nil {
			if text := strings.TrimSpace(el.Text()); text != "" {
				return text
			}
			if number := childText(el, "Number"); number != "" {
				return number
			}
		}
	}
	return ""
}

// findFirstElement returns the first descendant with the given local name,
// in document order, or nil.
func findFirstElement(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
		if found := findFirstElement(child, local); found != nil {
			return found
		}
	}
	return nil
}

func childText(el *etree.Element, local string) string {
	if child := el.SelectElement(local); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
