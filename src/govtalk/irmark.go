package govtalk

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Namespace is the GovTalk envelope namespace every message is rooted in.
const Namespace = "http://www.govtalk.gov.uk/CM/envelope"

// IRmarkElement is the local name of the integrity mark element.
const IRmarkElement = "IRmark"

var (
	// ErrMalformedXML reports input that could not be parsed.
	ErrMalformedXML = errors.New("malformed xml input")
	// ErrNoBody reports an envelope without a Body element.
	ErrNoBody = errors.New("envelope has no body element")
)

// CanonicalizationError wraps a failure in the mark computation pipeline with
// the stage that produced it.
type CanonicalizationError struct {
	Stage string
	Err   error
}

func (e *CanonicalizationError) Error() string {
	return fmt.Sprintf("canonicalization failed at %s: %v", e.Stage, e.Err)
}

func (e *CanonicalizationError) Unwrap() error {
	return e.Err
}

// ComputeIRmark derives the integrity mark for a complete envelope document:
// the Body element is located, every IRmark element beneath it is removed,
// the remaining subtree is canonicalized with its inherited namespace
// context, and the SHA-1 digest of those bytes is returned base64 encoded.
// The same envelope always yields the same mark.
func ComputeIRmark(envelopeXML []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelopeXML); err != nil {
		return "", &CanonicalizationError{Stage: "parse", Err: fmt.Errorf("%w: %v", ErrMalformedXML, err)}
	}
	root := doc.Root()
	if root == nil {
		return "", &CanonicalizationError{Stage: "parse", Err: ErrMalformedXML}
	}

	body := findBody(root)
	if body == nil {
		return "", &CanonicalizationError{Stage: "locate-body", Err: ErrNoBody}
	}

	// Existing marks are stripped wherever they appear so recomputing over a
	// marked document reproduces the original digest input.
	stripIRmarks(body)

	canonical, err := canonicalize(body)
	if err != nil {
		return "", &CanonicalizationError{Stage: "canonicalize", Err: err}
	}

	sum := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// findBody returns the first descendant element local-named Body in the
// GovTalk namespace, or any Body when no namespaced one exists.
func findBody(root *etree.Element) *etree.Element {
	var fallback *etree.Element
	var walk func(el *etree.Element) *etree.Element
	walk = func(el *etree.Element) *etree.Element {
		for _, child := range el.ChildElements() {
			if child.Tag == "Body" {
				if child.NamespaceURI() == Namespace {
					return child
				}
				if fallback == nil {
					fallback = child
				}
			}
			if found := walk(child); found != nil {
				return found
			}
		}
		return nil
	}
	if found := walk(root); found != nil {
		return found
	}
	return fallback
}

// stripIRmarks removes every element local-named IRmark beneath el,
// regardless of namespace or nesting depth.
func stripIRmarks(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == IRmarkElement {
			el.RemoveChild(child)
			continue
		}
		stripIRmarks(child)
	}
}

// VerifyIRmark recomputes the mark of a marked envelope and compares it to
// the mark the document carries. Used on received documents and in audit.
func VerifyIRmark(envelopeXML []byte) (bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelopeXML); err != nil {
		return false, &CanonicalizationError{Stage: "parse", Err: fmt.Errorf("%w: %v", ErrMalformedXML, err)}
	}
	root := doc.Root()
	if root == nil {
		return false, &CanonicalizationError{Stage: "parse", Err: ErrMalformedXML}
	}
	body := findBody(root)
	if body == nil {
		return false, &CanonicalizationError{Stage: "locate-body", Err: ErrNoBody}
	}
	carried := ""
	if mark := findFirstElement(body, IRmarkElement); mark != nil {
		carried = strings.TrimSpace(mark.Text())
	}
	if carried == "" {
		return false, nil
	}
	computed, err := ComputeIRmark(envelopeXML)
	if err != nil {
		return false, err
	}
	return carried == computed, nil
}
