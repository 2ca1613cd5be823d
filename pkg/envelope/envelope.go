// Package envelope implements the runtime SOAP envelope and the message
// encoder set: parsing and serializing SOAP 1.1/1.2 envelopes at a
// negotiated text encoding, with optional WS-Addressing 1.0 headers.
package envelope

import (
	"net/http"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Version represents the SOAP protocol version.
type Version string

// SOAP versions.
const (
	Soap11 Version = "1.1"
	Soap12 Version = "1.2"
)

// SOAP namespace URIs.
const (
	Namespace11 = "http://schemas.xmlsoap.org/soap/envelope/"
	Namespace12 = "http://www.w3.org/2003/05/soap-envelope"
)

// Content types for SOAP versions.
const (
	ContentType11 = "text/xml"
	ContentType12 = "application/soap+xml"
)

// Addressing represents the WS-Addressing version in use.
type Addressing string

// Addressing versions.
const (
	AddressingNone Addressing = "none"
	AddressingWS10 Addressing = "wsaddressing10"
)

// AddressingNamespace is the WS-Addressing 1.0 namespace.
const AddressingNamespace = "http://www.w3.org/2005/08/addressing"

// Namespace returns the envelope namespace for a version.
func (v Version) Namespace() string {
	if v == Soap12 {
		return Namespace12
	}
	return Namespace11
}

// MediaType returns the bare media type for a version.
func (v Version) MediaType() string {
	if v == Soap12 {
		return ContentType12
	}
	return ContentType11
}

// Headers exposes the parsed header block of an envelope.
type Headers struct {
	// Action is the WS-Addressing action, when present in the envelope.
	Action string

	// MessageID, RelatesTo, To and ReplyTo are WS-Addressing 1.0 fields.
	MessageID string
	RelatesTo string
	To        string
	ReplyTo   string

	// Elements are the raw header children in document order.
	Elements []*etree.Element
}

// PropHTTPResponse is the envelope property key carrying an
// *HTTPResponseOverride attached by user code.
const PropHTTPResponse = "httpResponse"

// HTTPResponseOverride carries HTTP response fields attached to an envelope
// by user code. It is applied uniformly on success and fault paths.
type HTTPResponseOverride struct {
	StatusCode   int
	ReasonPhrase string
	Headers      http.Header
}

// Envelope is a parsed or under-construction SOAP message.
type Envelope struct {
	Version Version
	Headers Headers

	// IsEmpty is true when the envelope has no body content.
	IsEmpty bool

	// Properties carries arbitrary attached values, such as HTTP response
	// overrides from user code.
	Properties map[string]any

	doc          *etree.Document
	header       *etree.Element
	body         *etree.Element
	bodyConsumed bool
}

// New creates an empty envelope for building a response.
func New(version Version) *Envelope {
	doc := etree.NewDocument()
	root := doc.CreateElement("soap:Envelope")
	root.CreateAttr("xmlns:soap", version.Namespace())
	body := root.CreateElement("soap:Body")
	return &Envelope{
		Version:    version,
		Properties: make(map[string]any),
		doc:        doc,
		body:       body,
		IsEmpty:    true,
	}
}

// Document returns the underlying XML document.
func (e *Envelope) Document() *etree.Document { return e.doc }

// Body returns the body element.
func (e *Envelope) Body() *etree.Element { return e.body }

// BodyElements returns the body's child elements, positioned before the body
// root. It may be called at most once per envelope; a second call fails with
// ErrBodyConsumed.
func (e *Envelope) BodyElements() ([]*etree.Element, error) {
	if e.bodyConsumed {
		return nil, ErrBodyConsumed
	}
	e.bodyConsumed = true
	if e.body == nil {
		return nil, nil
	}
	return e.body.ChildElements(), nil
}

// BodyRootName returns the local name of the first body element without
// consuming the body reader, or "" for an empty body.
func (e *Envelope) BodyRootName() string {
	if e.body == nil {
		return ""
	}
	children := e.body.ChildElements()
	if len(children) == 0 {
		return ""
	}
	return children[0].Tag
}

// AddHeaderElement appends el to the envelope's header block, creating the
// block before the body when absent.
func (e *Envelope) AddHeaderElement(el *etree.Element) {
	if e.header == nil {
		root := e.doc.Root()
		e.header = etree.NewElement("soap:Header")
		root.InsertChildAt(0, e.header)
	}
	e.header.AddChild(el)
	e.Headers.Elements = append(e.Headers.Elements, el)
}

// AddBodyElement appends el to the envelope body.
func (e *Envelope) AddBodyElement(el *etree.Element) {
	e.body.AddChild(el)
	e.IsEmpty = false
}

// SetAction records the envelope action.
func (e *Envelope) SetAction(action string) {
	e.Headers.Action = action
}

// SetAddressing adds WS-Addressing 1.0 headers to a response envelope:
// Action, a freshly minted MessageID, and RelatesTo/To when non-empty.
func (e *Envelope) SetAddressing(action, relatesTo, to string) {
	e.Headers.Action = action
	e.Headers.MessageID = "urn:uuid:" + uuid.NewString()
	e.Headers.RelatesTo = relatesTo
	e.Headers.To = to

	e.doc.Root().CreateAttr("xmlns:wsa", AddressingNamespace)
	add := func(name, text string) {
		el := etree.NewElement("wsa:" + name)
		el.SetText(text)
		e.AddHeaderElement(el)
	}
	if action != "" {
		add("Action", action)
	}
	add("MessageID", e.Headers.MessageID)
	if relatesTo != "" {
		add("RelatesTo", relatesTo)
	}
	if to != "" {
		add("To", to)
	}
}

// HTTPOverride returns the HTTP response override attached to the envelope,
// or nil.
func (e *Envelope) HTTPOverride() *HTTPResponseOverride {
	if e.Properties == nil {
		return nil
	}
	o, _ := e.Properties[PropHTTPResponse].(*HTTPResponseOverride)
	return o
}

// SetHTTPOverride attaches an HTTP response override to the envelope.
func (e *Envelope) SetHTTPOverride(o *HTTPResponseOverride) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[PropHTTPResponse] = o
}

// parseHeaders decodes WS-Addressing fields from raw header elements.
func parseHeaders(header *etree.Element) Headers {
	h := Headers{}
	if header == nil {
		return h
	}
	h.Elements = header.ChildElements()
	for _, el := range h.Elements {
		if el.NamespaceURI() != AddressingNamespace {
			continue
		}
		switch el.Tag {
		case "Action":
			h.Action = el.Text()
		case "MessageID":
			h.MessageID = el.Text()
		case "RelatesTo":
			h.RelatesTo = el.Text()
		case "To":
			h.To = el.Text()
		case "ReplyTo":
			if addr := childByLocal(el, "Address"); addr != nil {
				h.ReplyTo = addr.Text()
			} else {
				h.ReplyTo = el.Text()
			}
		}
	}
	return h
}

func childByLocal(parent *etree.Element, local string) *etree.Element {
	for _, el := range parent.ChildElements() {
		if el.Tag == local {
			return el
		}
	}
	return nil
}
