package soap

import (
	"net/http"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// RequestContext is the ambient per-request value bound into operation
// parameters of type *RequestContext. It is never bound from the body.
type RequestContext struct {
	// Request is the inbound HTTP request.
	Request *http.Request

	// Envelope is the parsed request envelope.
	Envelope *envelope.Envelope
}

// SetHTTPOverride attaches HTTP response fields to the request, applied to
// the response (or fault) uniformly.
func (rc *RequestContext) SetHTTPOverride(o *envelope.HTTPResponseOverride) {
	if rc.Envelope != nil {
		rc.Envelope.SetHTTPOverride(o)
	}
}

// OperationContext is the per-request dispatch state. Each request owns its
// context exclusively; its lifetime ends when the response has been written
// or a fault emitted.
type OperationContext struct {
	// Request is the inbound HTTP request.
	Request *http.Request

	// Envelope is the parsed request envelope. Nil until read.
	Envelope *envelope.Envelope

	// Response is the response (or fault) envelope. Nil until built.
	Response *envelope.Envelope

	// Action is the resolved SOAP action.
	Action string

	// Operation is the matched operation. Nil until matched.
	Operation *soapmodel.OperationDescription

	// Args is the bound argument array. Nil until bound.
	Args []any

	// Instance is the request-scoped service instance.
	Instance any

	// correlations pairs inspector index with its correlation value.
	correlations []any
}

// MessageFilter is a unidirectional interceptor around the request and
// response phases. OnRequest runs in declared order before dispatch;
// OnResponse runs in reverse declared order on every exit path, faults
// included.
type MessageFilter interface {
	OnRequest(ctx *OperationContext) error
	OnResponse(ctx *OperationContext) error
}

// MessageInspector is a bidirectional interceptor. AfterReceiveRequest runs
// in declared order and returns a correlation value; BeforeSendReply runs in
// reverse order receiving the same inspector's correlation value.
type MessageInspector interface {
	AfterReceiveRequest(ctx *OperationContext) (correlation any, err error)
	BeforeSendReply(ctx *OperationContext, correlation any) error
}

// ModelBinder runs after argument binding and before action filters.
type ModelBinder interface {
	OnModelBound(ctx *OperationContext) error
}

// ActionFilter runs after model binders and before operation tuners.
type ActionFilter interface {
	OnAction(ctx *OperationContext) error
}

// OperationTuner runs immediately before invocation and may mutate the
// service instance for the current operation.
type OperationTuner interface {
	Tune(ctx *OperationContext) error
}
