package soap

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/metrics"
	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// serveOperation runs the full per-request pipeline from message read
// through response write. Every failure between envelope read and response
// write converts to a fault, and response filters run in reverse on every
// exit path.
func (e *Endpoint) serveOperation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	contentType := r.Header.Get("Content-Type")
	enc := e.encoders.Select(contentType)

	octx := &OperationContext{Request: r}

	defer func() { _ = r.Body.Close() }()

	fail := func(f *Fault) {
		e.writeFault(w, enc, octx, f, contentType)
		e.runResponseFilters(octx, enc)
		e.record(f.status(), start)
	}

	// Start -> read envelope.
	env, err := enc.Read(r.Body, contentType)
	if err != nil {
		fail(newFault(FaultMalformedEnvelope, err))
		return
	}
	octx.Envelope = env

	// EnvRead -> request filters in declared order.
	for _, flt := range e.opts.Filters {
		if err := flt.OnRequest(octx); err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
	}

	// Filtered -> resolve action, then inspectors collect correlations.
	octx.Action = resolveAction(r, enc, env)
	octx.correlations = make([]any, len(e.opts.Inspectors))
	for i, insp := range e.opts.Inspectors {
		c, err := insp.AfterReceiveRequest(octx)
		if err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
		octx.correlations[i] = c
	}

	// Resolved -> match operation.
	op := e.matchOperation(octx.Action)
	if op == nil {
		fail(&Fault{
			Kind:    FaultNoOperation,
			Code:    "soap:Client",
			Message: fmt.Sprintf("no operation found for action %q", octx.Action),
		})
		return
	}
	octx.Operation = op
	e.opts.Logger.Debug("dispatching operation", "operation", op.Name, "action", octx.Action)

	// Matched -> obtain instance, bind arguments, run pre-invoke chains.
	instance := e.instance(r)
	octx.Instance = instance
	e.setHeaderSink(instance, env)

	rc := &RequestContext{Request: r, Envelope: env}
	args, err := e.bind(op, env, rc)
	if err != nil {
		fail(newFault(FaultBindingError, err))
		return
	}
	octx.Args = argsToAny(args)

	for _, b := range e.opts.ModelBinders {
		if err := b.OnModelBound(octx); err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
	}
	for _, f := range e.opts.ActionFilters {
		if err := f.OnAction(octx); err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
	}
	for _, t := range e.opts.Tuners {
		if err := t.Tune(octx); err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
	}

	results, err := invokeOperation(r.Context(), op, instance, args)
	if err != nil {
		fail(newFault(FaultInvocationError, err))
		return
	}

	// Invoked -> one-way operations acknowledge with 202 and no body.
	if op.IsOneWay {
		applyOverride(w, env.HTTPOverride(), http.StatusAccepted)
		e.runResponseFilters(octx, enc)
		e.record(http.StatusAccepted, start)
		return
	}

	respEnv, err := e.buildResponse(op, enc, env, results, args)
	if err != nil {
		fail(newFault(FaultInternalError, err))
		return
	}
	// Propagate user-attached HTTP overrides onto the response envelope.
	if o := env.HTTPOverride(); o != nil && respEnv.HTTPOverride() == nil {
		respEnv.SetHTTPOverride(o)
	}
	octx.Response = respEnv

	// BeforeSendReply in reverse order, each with its correlation value.
	for i := len(e.opts.Inspectors) - 1; i >= 0; i-- {
		if err := e.opts.Inspectors[i].BeforeSendReply(octx, octx.correlations[i]); err != nil {
			fail(newFault(FaultFilterRejection, err))
			return
		}
	}

	// Set response HTTP fields, then write.
	respCT := contentType
	if respCT == "" {
		respCT = enc.ContentType()
	}
	w.Header().Set("Content-Type", respCT)
	w.Header().Set("SOAPAction", respEnv.Headers.Action)
	status := applyOverride(w, respEnv.HTTPOverride(), http.StatusOK)

	if err := enc.Write(w, respEnv); err != nil {
		// Headers are already on the wire; record the failure and let the
		// remaining stages observe the fault envelope.
		f := newFault(FaultResponseWriteError, err)
		e.opts.Logger.Error("writing response envelope", "operation", op.Name, "error", err)
		octx.Response = envelope.NewFault(enc.Version(), f.Code, f.Message, f.Detail)
	}

	// Written -> response filters in reverse declared order.
	e.runResponseFilters(octx, enc)
	e.record(status, start)
}

// runResponseFilters runs response filters in reverse declared order. A
// filter failure converts to a fault that overwrites the response envelope
// so later filters observe it; the failure itself is logged and swallowed.
func (e *Endpoint) runResponseFilters(octx *OperationContext, enc *envelope.Encoder) {
	for i := len(e.opts.Filters) - 1; i >= 0; i-- {
		if err := e.opts.Filters[i].OnResponse(octx); err != nil {
			f := newFault(FaultFilterRejection, err)
			e.opts.Logger.Error("response filter failed", "error", err)
			octx.Response = envelope.NewFault(enc.Version(), f.Code, f.Message, f.Detail)
		}
	}
}

// applyOverride applies a user HTTP override and writes the status header.
// Returns the status actually written.
func applyOverride(w http.ResponseWriter, o *envelope.HTTPResponseOverride, status int) int {
	if o != nil {
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
	return status
}

// resolveAction resolves the SOAP action from the transport (SOAPAction
// header for 1.1, content-type action parameter for 1.2), the envelope's
// addressing header, or the body root element name as a last resort.
func resolveAction(r *http.Request, enc *envelope.Encoder, env *envelope.Envelope) string {
	if enc.Version() == envelope.Soap12 {
		if a := envelope.ActionFromContentType(r.Header.Get("Content-Type")); a != "" {
			return a
		}
	}
	if a := strings.Trim(r.Header.Get("SOAPAction"), "\""); a != "" {
		return a
	}
	if env.Headers.Action != "" {
		return env.Headers.Action
	}
	return env.BodyRootName()
}

// matchOperation applies the action matching rules in order; the first hit
// wins:
//
//  1. declared action equals the incoming action exactly
//  2. operation name equals the trimmed incoming action
//  3. incoming action equals the trimmed operation name
//  4. trimmed incoming action equals the trimmed-and-cleared declared action
func (e *Endpoint) matchOperation(action string) *soapmodel.OperationDescription {
	trimmed := soapmodel.TrimAction(action)

	for _, op := range e.desc.Operations() {
		if op.SoapAction == action {
			return op
		}
	}
	for _, op := range e.desc.Operations() {
		if op.Name == trimmed {
			return op
		}
	}
	for _, op := range e.desc.Operations() {
		if action == soapmodel.TrimAction(op.Name) {
			return op
		}
	}
	for _, op := range e.desc.Operations() {
		if trimmed == soapmodel.TrimAndClearAction(op.SoapAction, op.Contract.Namespace) {
			return op
		}
	}
	return nil
}

// invokeOperation calls the dispatch method through a thin adapter that
// recovers panics and wraps failures exactly one layer deep, so the fault
// transformer can surface the user's error directly.
func invokeOperation(ctx context.Context, op *soapmodel.OperationDescription, instance any, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &OperationError{Op: op.Name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	callArgs := make([]reflect.Value, 0, len(args)+2)
	callArgs = append(callArgs, reflect.ValueOf(instance))
	if op.HasContext {
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}
	callArgs = append(callArgs, args...)

	out := op.Method.Func.Call(callArgs)
	if op.ReturnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			return nil, &OperationError{Op: op.Name, Err: last.Interface().(error)}
		}
		out = out[:len(out)-1]
	}
	return out, nil
}

func argsToAny(args []reflect.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a.IsValid() {
			out[i] = a.Interface()
		}
	}
	return out
}

// status returns the fault's HTTP status, defaulting to 500.
func (f *Fault) status() int {
	if f.StatusCode != 0 {
		return f.StatusCode
	}
	return http.StatusInternalServerError
}

func (e *Endpoint) record(status int, start time.Time) {
	_ = metrics.RequestsTotal.Inc(e.opts.Path, strconv.Itoa(status))
	_ = metrics.RequestDuration.Observe(time.Since(start).Seconds(), e.opts.Path)
}
