package envelope

import (
	"bytes"
	"strings"
	"testing"
)

const req11 = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <Add xmlns="http://example.com/calc"><a>1</a><b>2</b></Add>
  </soapenv:Body>
</soapenv:Envelope>`

func mustEncoder(t *testing.T, opts EncoderOptions) *Encoder {
	t.Helper()
	enc, err := NewEncoder(opts)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	return enc
}

func TestEncoder_Read(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})

	env, err := enc.Read(strings.NewReader(req11), "text/xml; charset=utf-8")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if env.Version != Soap11 {
		t.Errorf("expected version 1.1, got %s", env.Version)
	}
	if env.IsEmpty {
		t.Error("expected non-empty body")
	}
	if got := env.BodyRootName(); got != "Add" {
		t.Errorf("expected body root Add, got %q", got)
	}
}

func TestEncoder_Read_MalformedXML(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})
	_, err := enc.Read(strings.NewReader("<not-xml"), "text/xml")
	if err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestEncoder_Read_VersionMismatch(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{Version: Soap12})
	_, err := enc.Read(strings.NewReader(req11), "application/soap+xml")
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	if !strings.Contains(err.Error(), "namespace") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEncoder_Read_NotAnEnvelope(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})
	_, err := enc.Read(strings.NewReader("<foo/>"), "text/xml")
	if err == nil {
		t.Fatal("expected error for non-envelope root")
	}
}

func TestEncoder_Read_SizeLimit(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{
		Version:      Soap11,
		ReaderLimits: ReaderLimits{MaxEnvelopeBytes: 16},
	})
	_, err := enc.Read(strings.NewReader(req11), "text/xml")
	if err != ErrEnvelopeTooLarge {
		t.Fatalf("expected ErrEnvelopeTooLarge, got %v", err)
	}
}

func TestEncoder_BodyElementsConsumedOnce(t *testing.T) {
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})
	env, err := enc.Read(strings.NewReader(req11), "text/xml")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	els, err := env.BodyElements()
	if err != nil {
		t.Fatalf("first BodyElements failed: %v", err)
	}
	if len(els) != 1 || els[0].Tag != "Add" {
		t.Fatalf("unexpected body elements: %v", els)
	}

	if _, err := env.BodyElements(); err != ErrBodyConsumed {
		t.Fatalf("expected ErrBodyConsumed on second call, got %v", err)
	}
}

func TestEncoder_ContentTypeSelection(t *testing.T) {
	set, err := NewSet(
		EncoderOptions{Version: Soap11},
		EncoderOptions{Version: Soap12},
	)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	if got := set.Select("text/xml; charset=utf-8"); got.Version() != Soap11 {
		t.Errorf("expected 1.1 for text/xml, got %s", got.Version())
	}
	if got := set.Select(`application/soap+xml; action="urn:op"`); got.Version() != Soap12 {
		t.Errorf("expected 1.2 for application/soap+xml, got %s", got.Version())
	}
	// No match falls back to the first encoder.
	if got := set.Select("application/json"); got.Version() != Soap11 {
		t.Errorf("expected default encoder for unknown content type, got %s", got.Version())
	}
	if got := set.Select(""); got.Version() != Soap11 {
		t.Errorf("expected default encoder for empty content type, got %s", got.Version())
	}
}

func TestEncoder_Write_Declaration(t *testing.T) {
	env := New(Soap11)
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})

	var buf bytes.Buffer
	if err := enc.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("expected XML declaration, got %q", buf.String())
	}

	omit := mustEncoder(t, EncoderOptions{Version: Soap11, OmitXmlDeclaration: true})
	buf.Reset()
	if err := omit.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.HasPrefix(buf.String(), "<?xml") {
		t.Errorf("expected no XML declaration, got %q", buf.String())
	}
}

func TestEncoder_Write_PrefixOverride(t *testing.T) {
	env := New(Soap11)
	enc := mustEncoder(t, EncoderOptions{
		Version:         Soap11,
		PrefixOverrides: map[string]string{Namespace11: "s"},
	})

	var buf bytes.Buffer
	if err := enc.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<s:Envelope") || !strings.Contains(out, "xmlns:s=") {
		t.Errorf("expected s: prefix, got %q", out)
	}
}

func TestActionFromContentType(t *testing.T) {
	got := ActionFromContentType(`application/soap+xml; charset=utf-8; action="urn:do-it"`)
	if got != "urn:do-it" {
		t.Errorf("expected urn:do-it, got %q", got)
	}
	if got := ActionFromContentType("text/xml"); got != "" {
		t.Errorf("expected empty action, got %q", got)
	}
}

func TestNewFault_Soap11(t *testing.T) {
	env := NewFault(Soap11, "soap:Client", "bad request", "")
	var buf bytes.Buffer
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})
	if err := enc.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<faultcode>soap:Client</faultcode>", "<faultstring>bad request</faultstring>"} {
		if !strings.Contains(out, want) {
			t.Errorf("fault missing %q in %q", want, out)
		}
	}
}

func TestNewFault_Soap12_CodeMapping(t *testing.T) {
	env := NewFault(Soap12, "soap:Client", "bad request", "<why>nope</why>")
	var buf bytes.Buffer
	enc := mustEncoder(t, EncoderOptions{Version: Soap12})
	if err := enc.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"soap:Sender", "<soap:Reason>", "<why>nope</why>"} {
		if !strings.Contains(out, want) {
			t.Errorf("fault missing %q in %q", want, out)
		}
	}
}

func TestEnvelope_Addressing(t *testing.T) {
	const req = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
  xmlns:wsa="http://www.w3.org/2005/08/addressing">
  <soapenv:Header>
    <wsa:Action>urn:op</wsa:Action>
    <wsa:MessageID>urn:uuid:abc</wsa:MessageID>
    <wsa:ReplyTo><wsa:Address>http://client.example.com/cb</wsa:Address></wsa:ReplyTo>
  </soapenv:Header>
  <soapenv:Body><Op/></soapenv:Body>
</soapenv:Envelope>`

	enc := mustEncoder(t, EncoderOptions{Version: Soap11, Addressing: AddressingWS10})
	env, err := enc.Read(strings.NewReader(req), "text/xml")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if env.Headers.Action != "urn:op" {
		t.Errorf("expected action urn:op, got %q", env.Headers.Action)
	}
	if env.Headers.MessageID != "urn:uuid:abc" {
		t.Errorf("expected message id urn:uuid:abc, got %q", env.Headers.MessageID)
	}
	if env.Headers.ReplyTo != "http://client.example.com/cb" {
		t.Errorf("expected reply-to address, got %q", env.Headers.ReplyTo)
	}
}

func TestEnvelope_SetAddressing(t *testing.T) {
	env := New(Soap11)
	env.SetAddressing("urn:reply", "urn:uuid:abc", "http://client.example.com/cb")

	if env.Headers.RelatesTo != "urn:uuid:abc" {
		t.Errorf("expected RelatesTo urn:uuid:abc, got %q", env.Headers.RelatesTo)
	}
	if !strings.HasPrefix(env.Headers.MessageID, "urn:uuid:") {
		t.Errorf("expected minted message id, got %q", env.Headers.MessageID)
	}

	var buf bytes.Buffer
	enc := mustEncoder(t, EncoderOptions{Version: Soap11})
	if err := enc.Write(&buf, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<wsa:Action>urn:reply</wsa:Action>", "<wsa:RelatesTo>urn:uuid:abc</wsa:RelatesTo>", "<wsa:To>http://client.example.com/cb</wsa:To>"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
