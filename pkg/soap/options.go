package soap

import (
	"log/slog"
	"net/http"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/soapmodel"
	"github.com/getsoapd/soapd/pkg/wsdl"
)

// Options configures an endpoint. The declarative fields carry yaml/json
// tags so they can be loaded from configuration files; the function and
// interface fields are wired programmatically.
type Options struct {
	// Path is the endpoint URL path.
	Path string `json:"path" yaml:"path"`

	// CaseInsensitivePath compares the request path case-insensitively.
	CaseInsensitivePath bool `json:"caseInsensitivePath,omitempty" yaml:"caseInsensitivePath,omitempty"`

	// Encoders configures the message encoders in declared order; the first
	// is the default. Empty means a single SOAP 1.1 UTF-8 encoder.
	Encoders []envelope.EncoderOptions `json:"encoders,omitempty" yaml:"encoders,omitempty"`

	// Serializer is recorded on every operation description. Empty means
	// DataContract. The argument binder and the response body writer decode
	// and encode through encoding/xml for both kinds; this setting does not
	// change how they read or write elements.
	Serializer soapmodel.SerializerKind `json:"serializer,omitempty" yaml:"serializer,omitempty"`

	// OmitXmlDeclaration and IndentXml shape serialized output.
	OmitXmlDeclaration bool `json:"omitXmlDeclaration,omitempty" yaml:"omitXmlDeclaration,omitempty"`
	IndentXml          bool `json:"indentXml,omitempty" yaml:"indentXml,omitempty"`

	// HttpGetEnabled and HttpsGetEnabled gate metadata availability per
	// scheme.
	HttpGetEnabled  bool `json:"httpGetEnabled" yaml:"httpGetEnabled"`
	HttpsGetEnabled bool `json:"httpsGetEnabled" yaml:"httpsGetEnabled"`

	// UseBasicAuthentication is advisory and reflected in metadata only.
	UseBasicAuthentication bool `json:"useBasicAuthentication,omitempty" yaml:"useBasicAuthentication,omitempty"`

	// WsdlFileOptions enables file-backed metadata when set.
	WsdlFileOptions *wsdl.FileOptions `json:"wsdlFileOptions,omitempty" yaml:"wsdlFileOptions,omitempty"`

	// XmlNamespacePrefixOverrides maps namespace URIs to preferred prefixes.
	XmlNamespacePrefixOverrides map[string]string `json:"xmlNamespacePrefixOverrides,omitempty" yaml:"xmlNamespacePrefixOverrides,omitempty"`

	// Logger receives dispatch logging. Nil means a no-op logger.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// InstanceFactory resolves the request-scoped service instance. Nil
	// means the registered service value is shared across requests.
	InstanceFactory func(r *http.Request) any `json:"-" yaml:"-"`

	// PathTuner may rewrite a trailing segment of the request path before
	// matching.
	PathTuner func(path string) string `json:"-" yaml:"-"`

	// Filters, Inspectors, ModelBinders, ActionFilters and Tuners are the
	// interceptor chains, each run in its declared order (reverse where the
	// dispatch contract says so).
	Filters       []MessageFilter    `json:"-" yaml:"-"`
	Inspectors    []MessageInspector `json:"-" yaml:"-"`
	ModelBinders  []ModelBinder      `json:"-" yaml:"-"`
	ActionFilters []ActionFilter     `json:"-" yaml:"-"`
	Tuners        []OperationTuner   `json:"-" yaml:"-"`

	// ModelOptions is forwarded to soapmodel.Describe.
	ModelOptions []soapmodel.Option `json:"-" yaml:"-"`
}

// DefaultOptions returns options with metadata GETs enabled on both schemes
// and a single default encoder.
func DefaultOptions(path string) Options {
	return Options{
		Path:            path,
		HttpGetEnabled:  true,
		HttpsGetEnabled: true,
	}
}
