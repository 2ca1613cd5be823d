package soap

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/logging"
	"github.com/getsoapd/soapd/pkg/soapmodel"
	"github.com/getsoapd/soapd/pkg/wsdl"
)

// Interface compliance checks.
var _ http.Handler = (*Endpoint)(nil)

// metadataContentType is the content type for WSDL and XSD responses.
const metadataContentType = "text/xml;charset=UTF-8"

// Endpoint routes one URL path to a SOAP service. Requests for any other
// path are forwarded to the next handler unchanged.
type Endpoint struct {
	opts     Options
	next     http.Handler
	service  any
	desc     *soapmodel.ServiceDescription
	encoders *envelope.Set
}

// New builds an endpoint for the given service value. The service
// description is computed once here; dispatch never re-reflects. next may be
// nil, in which case non-matching requests get 404.
func New(service any, next http.Handler, opts Options) (*Endpoint, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("endpoint path is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	modelOpts := []soapmodel.Option{
		soapmodel.WithRequestContextType(reflect.TypeOf(&RequestContext{})),
		soapmodel.WithHeaderSinkType(reflect.TypeOf(envelope.Headers{})),
	}
	if opts.Serializer != "" {
		modelOpts = append(modelOpts, soapmodel.WithSerializer(opts.Serializer))
	}
	modelOpts = append(modelOpts, opts.ModelOptions...)
	desc, err := soapmodel.Describe(service, modelOpts...)
	if err != nil {
		return nil, fmt.Errorf("describing service: %w", err)
	}

	encOpts := opts.Encoders
	if len(encOpts) == 0 {
		encOpts = []envelope.EncoderOptions{{Version: envelope.Soap11}}
	}
	for i := range encOpts {
		encOpts[i].OmitXmlDeclaration = opts.OmitXmlDeclaration
		encOpts[i].IndentXml = opts.IndentXml
		if encOpts[i].PrefixOverrides == nil {
			encOpts[i].PrefixOverrides = opts.XmlNamespacePrefixOverrides
		}
	}
	encoders, err := envelope.NewSet(encOpts...)
	if err != nil {
		return nil, fmt.Errorf("building encoders: %w", err)
	}

	return &Endpoint{
		opts:     opts,
		next:     next,
		service:  service,
		desc:     desc,
		encoders: encoders,
	}, nil
}

// Description returns the immutable service description.
func (e *Endpoint) Description() *soapmodel.ServiceDescription { return e.desc }

// ServeHTTP implements the http.Handler interface.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			e.opts.Logger.Error("unhandled error in SOAP endpoint",
				"path", r.URL.Path, "panic", rec)
			panic(rec)
		}
	}()

	path := r.URL.Path
	if e.opts.PathTuner != nil {
		path = e.opts.PathTuner(path)
	}

	if !e.pathMatches(path) {
		if e.next != nil {
			e.next.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodGet {
		if !e.getEnabled(r) {
			http.Error(w, "metadata is disabled for this scheme", http.StatusForbidden)
			return
		}
		query := r.URL.Query()
		// wsdl wins when both keys are present.
		if hasQueryKey(query, "wsdl") {
			e.serveWSDL(w, r)
			return
		}
		if hasQueryKey(query, "xsd") && e.opts.WsdlFileOptions != nil {
			e.serveXSD(w, r)
			return
		}
		if r.Header.Get("Content-Type") == "" {
			e.serveWSDL(w, r)
			return
		}
	}

	e.serveOperation(w, r)
}

func (e *Endpoint) pathMatches(path string) bool {
	if e.opts.CaseInsensitivePath {
		return strings.EqualFold(path, e.opts.Path)
	}
	return path == e.opts.Path
}

func (e *Endpoint) getEnabled(r *http.Request) bool {
	if r.TLS != nil {
		return e.opts.HttpsGetEnabled
	}
	return e.opts.HttpGetEnabled
}

func hasQueryKey(query map[string][]string, key string) bool {
	for k := range query {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// serveWSDL emits metadata from file when a mapping is configured, otherwise
// generated metadata.
func (e *Endpoint) serveWSDL(w http.ResponseWriter, r *http.Request) {
	contract := e.desc.Contracts[0]

	if m, ok := e.opts.WsdlFileOptions.MappingFor(contract.Name); ok && m.WsdlFile != "" {
		data, err := wsdl.ReadWsdlFile(e.opts.WsdlFileOptions, contract.Name)
		if err != nil {
			e.opts.Logger.Error("serving WSDL file", "error", err)
			http.Error(w, "WSDL not available", http.StatusInternalServerError)
			return
		}
		writeMetadata(w, data)
		return
	}

	data, err := wsdl.Generate(e.desc, wsdl.GenerateOptions{
		BaseURL:                e.baseURL(r),
		UseBasicAuthentication: e.opts.UseBasicAuthentication,
		Indent:                 e.opts.IndentXml,
	})
	if err != nil {
		e.opts.Logger.Error("generating WSDL", "error", err)
		http.Error(w, "WSDL not available", http.StatusInternalServerError)
		return
	}
	writeMetadata(w, data)
}

// serveXSD emits an XSD from the configured schema folder. The name must be
// a bare ".xsd" file name; traversal attempts fail before any file access.
func (e *Endpoint) serveXSD(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	contract := e.desc.Contracts[0]
	data, err := wsdl.ReadXsdFile(e.opts.WsdlFileOptions, contract.Name, name)
	if err != nil {
		if errors.Is(err, wsdl.ErrInvalidXsdName) {
			http.Error(w, "invalid xsd name", http.StatusBadRequest)
			return
		}
		e.opts.Logger.Error("serving XSD file", "name", name, "error", err)
		http.Error(w, "schema not available", http.StatusInternalServerError)
		return
	}
	writeMetadata(w, data)
}

func writeMetadata(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", metadataContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (e *Endpoint) baseURL(r *http.Request) string {
	if o := e.opts.WsdlFileOptions; o != nil && o.UrlOverride != "" {
		return o.UrlOverride
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + e.opts.Path
}

// instance resolves the request-scoped service instance.
func (e *Endpoint) instance(r *http.Request) any {
	if e.opts.InstanceFactory != nil {
		return e.opts.InstanceFactory(r)
	}
	return e.service
}

// setHeaderSink fills the service's MessageHeaders field with the request
// envelope headers when the service exposes one.
func (e *Endpoint) setHeaderSink(instance any, env *envelope.Envelope) {
	if len(e.desc.HeaderSink) == 0 {
		return
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	field := v.Elem().FieldByIndex(e.desc.HeaderSink)
	if field.CanSet() {
		field.Set(reflect.ValueOf(env.Headers))
	}
}
