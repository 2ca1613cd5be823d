// Package soapmodel builds an immutable, reflection-derived description of a
// SOAP service: its contracts, operations, parameters and known types. The
// description is computed once at endpoint construction; dispatch never
// re-reflects over the service type.
package soapmodel

import (
	"encoding/xml"
	"reflect"
)

// FormatStyle selects the SOAP message style of an operation.
type FormatStyle string

// Message styles.
const (
	StyleDocument FormatStyle = "document"
	StyleRpc      FormatStyle = "rpc"
)

// SerializerKind selects the serializer used for parameter and result
// encoding.
type SerializerKind string

// Serializers.
const (
	SerializerDataContract  SerializerKind = "datacontract"
	SerializerXmlSerializer SerializerKind = "xmlserializer"
)

// Direction classifies how a parameter flows through an operation.
type Direction string

// Parameter directions.
const (
	DirectionIn    Direction = "in"
	DirectionOut   Direction = "out"
	DirectionInOut Direction = "inout"
)

// ServiceDescription is a read-only snapshot of a service built once at
// endpoint construction. It is shared immutably across requests.
type ServiceDescription struct {
	// ServiceType is the dynamic type of the registered service value.
	ServiceType reflect.Type

	// Contracts is the ordered list of contracts the service exposes.
	Contracts []*ContractDescription

	// HeaderSink is the index path of a settable MessageHeaders field on the
	// service struct, or nil when the service has no header sink.
	HeaderSink []int
}

// Operations iterates every operation across all contracts in declared order.
func (sd *ServiceDescription) Operations() []*OperationDescription {
	var ops []*OperationDescription
	for _, c := range sd.Contracts {
		ops = append(ops, c.Operations...)
	}
	return ops
}

// ContractDescription names a group of operations under a target namespace.
type ContractDescription struct {
	Name       string
	Namespace  string
	Operations []*OperationDescription
}

// OperationDescription describes a single dispatchable operation.
type OperationDescription struct {
	Name        string
	SoapAction  string
	ReplyAction string

	// Method is the dispatch method on the service type.
	Method reflect.Method

	// Contract is the owning contract.
	Contract *ContractDescription

	// Parameters describes the method parameters after the receiver and the
	// optional leading context.Context, in positional order.
	Parameters []*ParameterDescription

	// HasContext is true when the method's first parameter is a
	// context.Context.
	HasContext bool

	// ReturnsError is true when the method's last return value is an error.
	ReturnsError bool

	// ReturnNames names the non-error return values in order. The first
	// defaults to "<Name>Result".
	ReturnNames []string

	// ReturnTypes are the non-error return types in order.
	ReturnTypes []reflect.Type

	// ResponseName is the response wrapper element, "<Name>Response".
	ResponseName string

	IsOneWay                  bool
	IsMessageContractRequest  bool
	IsMessageContractResponse bool
	Style                     FormatStyle
	Serializer                SerializerKind

	// RequestContract and ResponseContract are set for message-contract
	// request and response shapes.
	RequestContract  *MessageContractInfo
	ResponseContract *MessageContractInfo

	// KnownTypes maps XML names to concrete types for polymorphic decoding.
	KnownTypes map[xml.Name]reflect.Type
}

// InParameters returns the parameters with direction In or InOut, in order,
// excluding the ambient request-context parameter.
func (op *OperationDescription) InParameters() []*ParameterDescription {
	var in []*ParameterDescription
	for _, p := range op.Parameters {
		if p.IsContext {
			continue
		}
		if p.Direction == DirectionIn || p.Direction == DirectionInOut {
			in = append(in, p)
		}
	}
	return in
}

// OutParameters returns the parameters with direction Out or InOut, in order.
func (op *OperationDescription) OutParameters() []*ParameterDescription {
	var out []*ParameterDescription
	for _, p := range op.Parameters {
		if p.Direction == DirectionOut || p.Direction == DirectionInOut {
			out = append(out, p)
		}
	}
	return out
}

// ParameterDescription describes one positional method parameter.
type ParameterDescription struct {
	// Index is the position in the bound argument array.
	Index int

	// Name is the local element name the parameter binds to.
	Name string

	// Namespace is the element namespace; falls back to the contract
	// namespace when empty.
	Namespace string

	Direction Direction

	// Type is the declared Go type of the parameter.
	Type reflect.Type

	// IsContext marks the ambient request-context parameter.
	IsContext bool
}

// ElementType returns the pointed-to type for pointer parameters and the
// declared type otherwise.
func (p *ParameterDescription) ElementType() reflect.Type {
	if p.Type.Kind() == reflect.Pointer {
		return p.Type.Elem()
	}
	return p.Type
}

// MessageContractInfo describes a message-contract type: a struct that
// models an envelope directly, with tagged header and body members.
type MessageContractInfo struct {
	Type reflect.Type

	IsWrapped        bool
	WrapperName      string
	WrapperNamespace string

	// Headers are the members bound to SOAP headers.
	Headers []MemberDescription

	// BodyParts are the members bound to body elements, sorted by ascending
	// Order.
	BodyParts []MemberDescription
}

// MemberDescription describes one tagged member of a message contract or a
// header-carrying return type.
type MemberDescription struct {
	// FieldIndex is the index path into the struct.
	FieldIndex []int

	// FieldName is the Go field name; Name is the wire name from the tag,
	// defaulting to FieldName.
	FieldName string

	Name           string
	Namespace      string
	MustUnderstand bool
	Order          int
	Type           reflect.Type
}
