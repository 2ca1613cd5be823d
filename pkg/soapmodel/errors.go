package soapmodel

// Error is a simple error type for model construction errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors for service description construction.
var (
	// ErrNilService is returned when describing a nil service value.
	ErrNilService = Error("service cannot be nil")

	// ErrNotStruct is returned when the service value is not a struct or a
	// pointer to one.
	ErrNotStruct = Error("service must be a struct or pointer to struct")

	// ErrNoOperations is returned when a contract exposes no operations.
	ErrNoOperations = Error("contract has no operations")

	// ErrDuplicateAction is returned when two operations in one contract
	// resolve to the same SOAP action after trimming.
	ErrDuplicateAction = Error("duplicate SOAP action within contract")

	// ErrBadSignature is returned for methods that cannot be dispatched.
	ErrBadSignature = Error("operation has an unsupported signature")

	// ErrMessageContractArity is returned when a message-contract operation
	// declares more than one in-parameter.
	ErrMessageContractArity = Error("message-contract operation must have exactly one in-parameter")
)
