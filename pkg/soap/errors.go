package soap

import (
	"errors"
	"fmt"
)

// FaultKind classifies a dispatch failure. Every kind resolves to a SOAP
// fault through the fault transformer.
type FaultKind string

// Fault kinds.
const (
	FaultMalformedEnvelope  FaultKind = "MalformedEnvelope"
	FaultNoOperation        FaultKind = "NoOperation"
	FaultBindingError       FaultKind = "BindingError"
	FaultFilterRejection    FaultKind = "FilterRejection"
	FaultInvocationError    FaultKind = "InvocationError"
	FaultResponseWriteError FaultKind = "ResponseWriteError"
	FaultInternalError      FaultKind = "InternalError"
)

// Fault is a dispatch failure on its way to becoming a SOAP fault envelope.
type Fault struct {
	Kind    FaultKind
	Code    string
	Message string
	Detail  string

	// StatusCode overrides the HTTP status. Zero means 500.
	StatusCode int
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// newFault wraps err as a Fault of the given kind, unwrapping one layer of
// invocation-site wrapping so the user's error surfaces in the message.
func newFault(kind FaultKind, err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		err = opErr.Err
	}

	code := "soap:Server"
	switch kind {
	case FaultMalformedEnvelope, FaultNoOperation, FaultBindingError, FaultFilterRejection:
		code = "soap:Client"
	}
	return &Fault{
		Kind:    kind,
		Code:    code,
		Message: err.Error(),
	}
}

// OperationError wraps an error produced at the invocation site. The fault
// transformer unwraps exactly one layer so clients see the user error.
type OperationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *OperationError) Unwrap() error { return e.Err }
