package envelope

// Error is a simple error type for envelope and encoder errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors.
var (
	// ErrMalformedEnvelope is returned when the request body is not a
	// well-formed SOAP envelope.
	ErrMalformedEnvelope = Error("malformed SOAP envelope")

	// ErrVersionMismatch is returned when the envelope namespace does not
	// match the encoder's SOAP version.
	ErrVersionMismatch = Error("envelope namespace does not match SOAP version")

	// ErrEnvelopeTooLarge is returned when the request body exceeds the
	// configured reader limit.
	ErrEnvelopeTooLarge = Error("envelope exceeds size limit")

	// ErrEnvelopeTooDeep is returned when element nesting exceeds the
	// configured depth limit.
	ErrEnvelopeTooDeep = Error("envelope exceeds depth limit")

	// ErrBodyConsumed is returned on a second call to BodyElements.
	ErrBodyConsumed = Error("body reader already consumed")

	// ErrUnknownEncoding is returned for an unresolvable charset name.
	ErrUnknownEncoding = Error("unknown text encoding")
)
