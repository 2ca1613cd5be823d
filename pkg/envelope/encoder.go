package envelope

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Reader limit defaults.
const (
	// DefaultMaxEnvelopeBytes bounds the request body read (10MB).
	DefaultMaxEnvelopeBytes = 10 << 20

	// DefaultMaxDepth bounds element nesting.
	DefaultMaxDepth = 64
)

// ReaderLimits bounds envelope parsing.
type ReaderLimits struct {
	// MaxEnvelopeBytes caps the request body size. Zero means
	// DefaultMaxEnvelopeBytes.
	MaxEnvelopeBytes int64 `json:"maxEnvelopeBytes,omitempty" yaml:"maxEnvelopeBytes,omitempty"`

	// MaxDepth caps element nesting. Zero means DefaultMaxDepth.
	MaxDepth int `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
}

// EncoderOptions configures one message encoder.
type EncoderOptions struct {
	// Version is the SOAP version the encoder speaks.
	Version Version `json:"version,omitempty" yaml:"version,omitempty"`

	// Addressing selects the WS-Addressing version.
	Addressing Addressing `json:"addressing,omitempty" yaml:"addressing,omitempty"`

	// WriteEncoding is the IANA name of the output text encoding.
	// Empty means utf-8.
	WriteEncoding string `json:"writeEncoding,omitempty" yaml:"writeEncoding,omitempty"`

	// OmitXmlDeclaration suppresses the leading XML declaration.
	OmitXmlDeclaration bool `json:"omitXmlDeclaration,omitempty" yaml:"omitXmlDeclaration,omitempty"`

	// IndentXml pretty-prints serialized envelopes.
	IndentXml bool `json:"indentXml,omitempty" yaml:"indentXml,omitempty"`

	// ReaderLimits bounds envelope parsing.
	ReaderLimits ReaderLimits `json:"readerLimits,omitempty" yaml:"readerLimits,omitempty"`

	// PrefixOverrides maps namespace URIs to preferred prefixes on output.
	PrefixOverrides map[string]string `json:"prefixOverrides,omitempty" yaml:"prefixOverrides,omitempty"`
}

// Encoder parses and serializes SOAP envelopes at a fixed version and text
// encoding.
type Encoder struct {
	opts        EncoderOptions
	charsetName string
	textEnc     encoding.Encoding
}

// NewEncoder creates an encoder. The write encoding must resolve through the
// IANA registry.
func NewEncoder(opts EncoderOptions) (*Encoder, error) {
	if opts.Version == "" {
		opts.Version = Soap11
	}
	if opts.Addressing == "" {
		opts.Addressing = AddressingNone
	}
	name := opts.WriteEncoding
	if name == "" {
		name = "utf-8"
	}
	textEnc, err := resolveEncoding(name)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		opts:        opts,
		charsetName: strings.ToLower(name),
		textEnc:     textEnc,
	}, nil
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Version returns the encoder's SOAP version.
func (e *Encoder) Version() Version { return e.opts.Version }

// Addressing returns the encoder's WS-Addressing version.
func (e *Encoder) Addressing() Addressing { return e.opts.Addressing }

// Options returns a copy of the encoder options.
func (e *Encoder) Options() EncoderOptions { return e.opts }

// ContentType returns the response content type for this encoder.
func (e *Encoder) ContentType() string {
	return e.opts.Version.MediaType() + "; charset=" + e.charsetName
}

// ContentTypeMatches reports whether the encoder accepts the request's
// content type.
func (e *Encoder) ContentTypeMatches(contentType string) bool {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return media == e.opts.Version.MediaType()
}

// Read consumes the request body up to the configured bound and returns the
// parsed envelope. XML errors and version mismatches fail with
// ErrMalformedEnvelope-class sentinels.
func (e *Encoder) Read(r io.Reader, contentType string) (*Envelope, error) {
	limit := e.opts.ReaderLimits.MaxEnvelopeBytes
	if limit <= 0 {
		limit = DefaultMaxEnvelopeBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading envelope: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrEnvelopeTooLarge
	}

	data, err = e.decodeCharset(data, contentType)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedEnvelope)
	}
	if root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: root element must be Envelope, got %s", ErrMalformedEnvelope, root.Tag)
	}
	if ns := root.NamespaceURI(); ns != e.opts.Version.Namespace() {
		return nil, fmt.Errorf("%w: got namespace %q", ErrVersionMismatch, ns)
	}

	maxDepth := e.opts.ReaderLimits.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if depthOf(root, 1) > maxDepth {
		return nil, ErrEnvelopeTooDeep
	}

	var header, body *etree.Element
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "Header":
			header = el
		case "Body":
			body = el
		}
	}

	env := &Envelope{
		Version:    e.opts.Version,
		Headers:    parseHeaders(header),
		Properties: make(map[string]any),
		doc:        doc,
		header:     header,
		body:       body,
		IsEmpty:    body == nil || len(body.ChildElements()) == 0,
	}
	return env, nil
}

// decodeCharset converts the payload to UTF-8 per the content-type charset
// parameter, falling back to the encoder's own charset.
func (e *Encoder) decodeCharset(data []byte, contentType string) ([]byte, error) {
	name := e.charsetName
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" {
			name = strings.ToLower(cs)
		}
	}
	if name == "utf-8" || name == "us-ascii" {
		return data, nil
	}
	enc, err := resolveEncoding(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %s: %v", ErrMalformedEnvelope, name, err)
	}
	return out, nil
}

// Write serializes env to w, honoring the write encoding, XML declaration
// and indentation options.
func (e *Encoder) Write(w io.Writer, env *Envelope) error {
	doc := env.Document()
	if len(e.opts.PrefixOverrides) > 0 {
		applyPrefixOverrides(doc, e.opts.PrefixOverrides)
	}
	if e.opts.IndentXml {
		doc.Indent(2)
	}

	out := w
	if e.charsetName != "utf-8" {
		tw := transform.NewWriter(w, e.textEnc.NewEncoder())
		defer func() { _ = tw.Close() }()
		out = tw
	}

	if !e.opts.OmitXmlDeclaration {
		decl := `<?xml version="1.0" encoding="` + strings.ToUpper(e.charsetName) + `"?>`
		if e.opts.IndentXml {
			decl += "\n"
		}
		if _, err := io.WriteString(out, decl); err != nil {
			return err
		}
	}

	_, err := doc.WriteTo(out)
	return err
}

func depthOf(el *etree.Element, depth int) int {
	max := depth
	for _, child := range el.ChildElements() {
		if d := depthOf(child, depth+1); d > max {
			max = d
		}
	}
	return max
}

// applyPrefixOverrides renames namespace prefixes declared on the root
// element to the configured preferred prefixes.
func applyPrefixOverrides(doc *etree.Document, overrides map[string]string) {
	root := doc.Root()
	if root == nil {
		return
	}
	for i, attr := range root.Attr {
		if attr.Space != "xmlns" {
			continue
		}
		newPrefix, ok := overrides[attr.Value]
		if !ok || newPrefix == "" || newPrefix == attr.Key {
			continue
		}
		old := attr.Key
		root.Attr[i].Key = newPrefix
		renamePrefix(root, old, newPrefix)
	}
}

func renamePrefix(el *etree.Element, old, new string) {
	if el.Space == old {
		el.Space = new
	}
	for _, child := range el.ChildElements() {
		renamePrefix(child, old, new)
	}
}

// ActionFromContentType extracts the action parameter from a SOAP 1.2
// content type, with surrounding quotes removed.
func ActionFromContentType(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.Trim(params["action"], "\"")
}

// Set is an ordered list of encoders; the first is the default.
type Set struct {
	encoders []*Encoder
}

// NewSet creates an encoder set from the given options in declared order.
// An empty list yields a single default SOAP 1.1 encoder.
func NewSet(optList ...EncoderOptions) (*Set, error) {
	if len(optList) == 0 {
		optList = []EncoderOptions{{Version: Soap11}}
	}
	s := &Set{}
	for _, opts := range optList {
		enc, err := NewEncoder(opts)
		if err != nil {
			return nil, err
		}
		s.encoders = append(s.encoders, enc)
	}
	return s, nil
}

// Select returns the first encoder whose content-type predicate accepts ct,
// falling back to the default encoder.
func (s *Set) Select(ct string) *Encoder {
	for _, enc := range s.encoders {
		if enc.ContentTypeMatches(ct) {
			return enc
		}
	}
	return s.encoders[0]
}

// Default returns the first encoder.
func (s *Set) Default() *Encoder { return s.encoders[0] }

// Encoders returns the encoders in declared order.
func (s *Set) Encoders() []*Encoder { return s.encoders }
