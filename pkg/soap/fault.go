package soap

import (
	"net/http"
	"strconv"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/metrics"
)

// writeFault converts a dispatch failure into a version-correct SOAP fault
// envelope and HTTP response. The fault mirrors the request's content type,
// carries the request's correlation under WS-Addressing, and honors any
// user-attached HTTP response overrides.
func (e *Endpoint) writeFault(w http.ResponseWriter, enc *envelope.Encoder, octx *OperationContext, f *Fault, reqContentType string) {
	faultEnv := envelope.NewFault(enc.Version(), f.Code, f.Message, f.Detail)

	if enc.Addressing() == envelope.AddressingWS10 && octx.Envelope != nil {
		// The fault action is intentionally unset.
		faultEnv.SetAddressing("", octx.Envelope.Headers.MessageID, octx.Envelope.Headers.ReplyTo)
	}

	// User overrides attached to the request envelope apply to the fault.
	if octx.Envelope != nil {
		if o := octx.Envelope.HTTPOverride(); o != nil {
			faultEnv.SetHTTPOverride(o)
		}
	}

	ct := reqContentType
	if ct == "" {
		ct = enc.ContentType()
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("SOAPAction", faultEnv.Headers.Action)

	status := f.status()
	if o := faultEnv.HTTPOverride(); o != nil {
		if o.StatusCode != 0 {
			status = o.StatusCode
		}
		for k, vs := range o.Headers {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
	}
	w.WriteHeader(status)

	if err := enc.Write(w, faultEnv); err != nil {
		e.opts.Logger.Error("writing fault envelope", "kind", f.Kind, "error", err)
	}

	octx.Response = faultEnv
	e.opts.Logger.Warn("SOAP fault emitted",
		"kind", f.Kind, "code", f.Code, "status", strconv.Itoa(status), "message", f.Message)
	_ = metrics.FaultsTotal.Inc(e.opts.Path, string(f.Kind))
}
