package soap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getsoapd/soapd/pkg/soapmodel"
	"github.com/getsoapd/soapd/pkg/wsdl"
)

type calcService struct{}

func (s *calcService) Op(ctx context.Context, n int) (int, error) { return n * 2, nil }

func (s *calcService) Greet(ctx context.Context, a int, b string) (string, error) {
	return fmt.Sprintf("%d-%s", a, b), nil
}

func (s *calcService) Fail(ctx context.Context) error { return errors.New("boom") }

func (s *calcService) Notify(ctx context.Context, msg string) error { return nil }

const testNS = "http://ns"

func calcOptions() []soapmodel.Option {
	return []soapmodel.Option{
		soapmodel.WithNamespace(testNS),
		soapmodel.WithOperation("Op", soapmodel.OperationConfig{
			Action:     "http://ns/Op",
			ParamNames: []string{"n"},
		}),
		soapmodel.WithOperation("Greet", soapmodel.OperationConfig{
			ParamNames: []string{"a", "b"},
		}),
		soapmodel.WithOperation("Notify", soapmodel.OperationConfig{
			OneWay:     true,
			ParamNames: []string{"msg"},
		}),
	}
}

func mustEndpoint(t *testing.T, service any, next http.Handler, opts Options) *Endpoint {
	t.Helper()
	ep, err := New(service, next, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ep
}

func newCalcEndpoint(t *testing.T, opts Options) *Endpoint {
	t.Helper()
	opts.ModelOptions = append(calcOptions(), opts.ModelOptions...)
	return mustEndpoint(t, &calcService{}, nil, opts)
}

func soapRequest(t *testing.T, path, action, body string) *http.Request {
	t.Helper()
	env := `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soapenv:Body>` + body + `</soapenv:Body></soapenv:Envelope>`
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(env))
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	if action != "" {
		req.Header.Set("SOAPAction", `"`+action+`"`)
	}
	return req
}

func TestEndpoint_ForwardsNonMatchingPath(t *testing.T) {
	nextCalls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalls++
		w.WriteHeader(http.StatusTeapot)
	})

	opts := DefaultOptions("/svc")
	opts.ModelOptions = calcOptions()
	ep := mustEndpoint(t, &calcService{}, next, opts)

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if nextCalls != 1 {
		t.Fatalf("expected next handler called exactly once, got %d", nextCalls)
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("expected next handler's status, got %d", w.Code)
	}
}

func TestEndpoint_CaseInsensitivePath(t *testing.T) {
	opts := DefaultOptions("/Svc")
	opts.CaseInsensitivePath = true
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc?wsdl", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for case-insensitive match, got %d", w.Code)
	}
}

func TestEndpoint_WSDL(t *testing.T) {
	ep := newCalcEndpoint(t, DefaultOptions("/svc"))

	req := httptest.NewRequest(http.MethodGet, "/svc?wsdl", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml;charset=UTF-8" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "<?xml") && !strings.HasPrefix(body, "<wsdl:") {
		t.Errorf("expected WSDL document, got %q", body[:min(80, len(body))])
	}
	if !strings.Contains(body, "wsdl:definitions") {
		t.Error("expected wsdl:definitions element")
	}
}

func TestEndpoint_WSDLFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `<?xml version="1.0"?><wsdl:definitions name="FromFile"/>`
	if err := os.WriteFile(filepath.Join(dir, "svc.wsdl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions("/svc")
	opts.WsdlFileOptions = &wsdl.FileOptions{
		AppPath: dir,
		Mappings: map[string]wsdl.Mapping{
			"calcService": {WsdlFile: "svc.wsdl"},
		},
	}
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc?wsdl", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != content {
		t.Errorf("expected file contents, got %q", w.Body.String())
	}
}

func TestEndpoint_GetForbidden(t *testing.T) {
	opts := Options{Path: "/svc", HttpGetEnabled: false, HttpsGetEnabled: true}
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc?wsdl", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestEndpoint_XSDTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions("/svc")
	opts.WsdlFileOptions = &wsdl.FileOptions{
		AppPath: dir,
		Mappings: map[string]wsdl.Mapping{
			"calcService": {SchemaFolder: "schemas"},
		},
	}
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc?xsd&name=..%2Fetc%2Fpasswd", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for traversal attempt, got %d", w.Code)
	}
}

func TestEndpoint_XSDServed(t *testing.T) {
	dir := t.TempDir()
	schemaDir := filepath.Join(dir, "schemas")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `<xsd:schema/>`
	if err := os.WriteFile(filepath.Join(schemaDir, "types.xsd"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions("/svc")
	opts.WsdlFileOptions = &wsdl.FileOptions{
		AppPath: dir,
		Mappings: map[string]wsdl.Mapping{
			"calcService": {SchemaFolder: "schemas"},
		},
	}
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc?xsd&name=types.xsd", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != content {
		t.Errorf("expected schema contents, got %q", w.Body.String())
	}
}

func TestEndpoint_PathTuner(t *testing.T) {
	opts := DefaultOptions("/svc")
	opts.PathTuner = func(path string) string {
		return strings.TrimSuffix(path, ".asmx")
	}
	ep := newCalcEndpoint(t, opts)

	req := httptest.NewRequest(http.MethodGet, "/svc.asmx?wsdl", nil)
	w := httptest.NewRecorder()
	ep.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after path tuning, got %d", w.Code)
	}
}

func TestEndpoint_MissingPath(t *testing.T) {
	if _, err := New(&calcService{}, nil, Options{}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
