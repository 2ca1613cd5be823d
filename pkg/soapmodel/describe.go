package soapmodel

import (
	"context"
	"encoding/xml"
	"fmt"
	"reflect"
	"strings"
)

// DefaultNamespace is the contract namespace used when none is configured.
const DefaultNamespace = "http://tempuri.org/"

// headerSinkFieldName is the service struct field the dispatcher fills with
// the request envelope headers before invocation, when present.
const headerSinkFieldName = "MessageHeaders"

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// KnownTypeProvider is implemented by types that contribute additional
// concrete types for polymorphic deserialization.
type KnownTypeProvider interface {
	KnownTypes() []any
}

var knownTypeProviderType = reflect.TypeOf((*KnownTypeProvider)(nil)).Elem()

// OperationConfig tunes a single operation during Describe.
type OperationConfig struct {
	// Action overrides the derived SOAP action.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// ReplyAction overrides the derived reply action.
	ReplyAction string `json:"replyAction,omitempty" yaml:"replyAction,omitempty"`

	// OneWay marks the operation as one-way: no response body is produced.
	OneWay bool `json:"oneWay,omitempty" yaml:"oneWay,omitempty"`

	// Style selects document or rpc style. Empty means document.
	Style FormatStyle `json:"style,omitempty" yaml:"style,omitempty"`

	// Serializer overrides the contract-wide serializer.
	Serializer SerializerKind `json:"serializer,omitempty" yaml:"serializer,omitempty"`

	// ParamNames names the method parameters (excluding context) in order.
	ParamNames []string `json:"paramNames,omitempty" yaml:"paramNames,omitempty"`

	// ParamNamespaces overrides parameter namespaces by parameter name.
	ParamNamespaces map[string]string `json:"paramNamespaces,omitempty" yaml:"paramNamespaces,omitempty"`

	// OutParams names pointer parameters that are write-only: they receive
	// no value from the request body.
	OutParams []string `json:"outParams,omitempty" yaml:"outParams,omitempty"`

	// ReturnNames names the non-error return values in order.
	ReturnNames []string `json:"returnNames,omitempty" yaml:"returnNames,omitempty"`
}

type describeConfig struct {
	namespace    string
	contractName string
	serializer   SerializerKind
	operations   map[string]OperationConfig
	excluded     map[string]bool
	knownTypes   []any
	contextType  reflect.Type
	sinkType     reflect.Type
}

// Option tunes Describe.
type Option func(*describeConfig)

// WithNamespace sets the contract target namespace.
func WithNamespace(ns string) Option {
	return func(c *describeConfig) { c.namespace = ns }
}

// WithContractName overrides the contract name derived from the service type.
func WithContractName(name string) Option {
	return func(c *describeConfig) { c.contractName = name }
}

// WithSerializer sets the contract-wide serializer.
func WithSerializer(kind SerializerKind) Option {
	return func(c *describeConfig) { c.serializer = kind }
}

// WithOperation attaches per-operation configuration by method name.
func WithOperation(name string, cfg OperationConfig) Option {
	return func(c *describeConfig) { c.operations[name] = cfg }
}

// WithOperationExcluded hides exported methods from the contract.
func WithOperationExcluded(names ...string) Option {
	return func(c *describeConfig) {
		for _, n := range names {
			c.excluded[n] = true
		}
	}
}

// WithKnownTypes registers additional types for polymorphic decoding.
func WithKnownTypes(values ...any) Option {
	return func(c *describeConfig) { c.knownTypes = append(c.knownTypes, values...) }
}

// WithRequestContextType marks the parameter type that receives the ambient
// request context. Parameters of this exact type are never bound from the
// body.
func WithRequestContextType(t reflect.Type) Option {
	return func(c *describeConfig) { c.contextType = t }
}

// WithHeaderSinkType sets the envelope headers type used to discover a
// MessageHeaders sink field on the service struct.
func WithHeaderSinkType(t reflect.Type) Option {
	return func(c *describeConfig) { c.sinkType = t }
}

// Describe inspects the service value and builds its immutable description.
func Describe(service any, opts ...Option) (*ServiceDescription, error) {
	if service == nil {
		return nil, ErrNilService
	}

	cfg := &describeConfig{
		namespace:  DefaultNamespace,
		serializer: SerializerDataContract,
		operations: make(map[string]OperationConfig),
		excluded:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	st := reflect.TypeOf(service)
	base := st
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, st)
	}

	name := cfg.contractName
	if name == "" {
		name = base.Name()
	}

	contract := &ContractDescription{
		Name:      name,
		Namespace: cfg.namespace,
	}

	known := collectKnownTypes(cfg.knownTypes)

	for i := 0; i < st.NumMethod(); i++ {
		m := st.Method(i)
		if cfg.excluded[m.Name] || isInfrastructureMethod(m.Name) {
			continue
		}
		op, err := describeOperation(st, m, contract, cfg, known)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", m.Name, err)
		}
		contract.Operations = append(contract.Operations, op)
	}

	if len(contract.Operations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOperations, contract.Name)
	}

	if err := checkActionUniqueness(contract); err != nil {
		return nil, err
	}

	sd := &ServiceDescription{
		ServiceType: st,
		Contracts:   []*ContractDescription{contract},
	}
	if cfg.sinkType != nil {
		sd.HeaderSink = findHeaderSink(base, cfg.sinkType)
	}
	return sd, nil
}

// isInfrastructureMethod filters methods that are part of the service's
// plumbing rather than its contract.
func isInfrastructureMethod(name string) bool {
	switch name {
	case "KnownTypes", "SetMessageHeaders":
		return true
	}
	return false
}

func describeOperation(st reflect.Type, m reflect.Method, contract *ContractDescription, cfg *describeConfig, known map[xml.Name]reflect.Type) (*OperationDescription, error) {
	opCfg := cfg.operations[m.Name]

	op := &OperationDescription{
		Name:         m.Name,
		Method:       m,
		Contract:     contract,
		ResponseName: m.Name + "Response",
		Style:        StyleDocument,
		Serializer:   cfg.serializer,
		IsOneWay:     opCfg.OneWay,
		KnownTypes:   known,
	}
	if opCfg.Style != "" {
		op.Style = opCfg.Style
	}
	if opCfg.Serializer != "" {
		op.Serializer = opCfg.Serializer
	}

	op.SoapAction = opCfg.Action
	if op.SoapAction == "" {
		op.SoapAction = DeriveAction(contract.Namespace, contract.Name, m.Name)
	}
	op.ReplyAction = opCfg.ReplyAction
	if op.ReplyAction == "" {
		op.ReplyAction = DeriveAction(contract.Namespace, contract.Name, m.Name+"Response")
	}

	mt := m.Type
	argIdx := 1 // skip receiver
	if mt.NumIn() > argIdx && mt.In(argIdx) == contextType {
		op.HasContext = true
		argIdx++
	}

	outNames := append([]string(nil), opCfg.OutParams...)
	pos := 0
	for ; argIdx < mt.NumIn(); argIdx++ {
		pt := mt.In(argIdx)
		p := &ParameterDescription{
			Index:     pos,
			Name:      fmt.Sprintf("arg%d", pos),
			Namespace: contract.Namespace,
			Type:      pt,
			Direction: DirectionIn,
		}
		if pos < len(opCfg.ParamNames) {
			p.Name = opCfg.ParamNames[pos]
		}
		if ns, ok := opCfg.ParamNamespaces[p.Name]; ok {
			p.Namespace = ns
		}
		if cfg.contextType != nil && pt == cfg.contextType {
			p.IsContext = true
		} else if pt.Kind() == reflect.Pointer {
			p.Direction = DirectionInOut
			if containsString(outNames, p.Name) {
				p.Direction = DirectionOut
			}
		}
		op.Parameters = append(op.Parameters, p)
		pos++
	}

	// Message-contract request detection: a struct in-parameter with soap
	// tags models the envelope directly.
	for _, p := range op.Parameters {
		if p.IsContext {
			continue
		}
		if info, ok := ParseMessageContract(p.ElementType()); ok {
			if len(op.InParameters()) != 1 {
				return nil, ErrMessageContractArity
			}
			op.IsMessageContractRequest = true
			op.RequestContract = info
			// The contract parameter is purely inbound even when passed by
			// pointer.
			p.Direction = DirectionIn
			if info.IsWrapped && info.WrapperNamespace != "" {
				p.Namespace = info.WrapperNamespace
			}
			break
		}
	}

	// Returns: optional values then an optional trailing error.
	n := mt.NumOut()
	if n > 0 && mt.Out(n-1) == errorType {
		op.ReturnsError = true
		n--
	}
	for i := 0; i < n; i++ {
		rt := mt.Out(i)
		if rt == errorType {
			return nil, fmt.Errorf("%w: error must be the last return value", ErrBadSignature)
		}
		rname := op.Name + "Result"
		if i < len(opCfg.ReturnNames) {
			rname = opCfg.ReturnNames[i]
		} else if i > 0 {
			rname = fmt.Sprintf("%sResult%d", op.Name, i+1)
		}
		op.ReturnNames = append(op.ReturnNames, rname)
		op.ReturnTypes = append(op.ReturnTypes, rt)
	}
	if len(op.ReturnTypes) == 1 {
		base := op.ReturnTypes[0]
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		if info, ok := ParseMessageContract(base); ok {
			op.IsMessageContractResponse = true
			op.ResponseContract = info
		}
	}

	// Collect known types contributed by parameter and return types.
	for _, p := range op.Parameters {
		addProvidedKnownTypes(p.ElementType(), known)
	}
	for _, rt := range op.ReturnTypes {
		addProvidedKnownTypes(rt, known)
	}

	return op, nil
}

// DeriveAction builds the default SOAP action
// "<namespace>/<contract>/<operation>" with duplicate-slash normalization.
func DeriveAction(namespace, contract, operation string) string {
	ns := strings.TrimSuffix(namespace, "/")
	return ns + "/" + contract + "/" + operation
}

func checkActionUniqueness(contract *ContractDescription) error {
	seen := make(map[string]string)
	for _, op := range contract.Operations {
		key := TrimAction(op.SoapAction)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s both map to %q", ErrDuplicateAction, prev, op.Name, key)
		}
		seen[key] = op.Name
	}
	return nil
}

func findHeaderSink(base reflect.Type, sinkType reflect.Type) []int {
	f, ok := base.FieldByName(headerSinkFieldName)
	if !ok || !f.IsExported() {
		return nil
	}
	if f.Type != sinkType {
		return nil
	}
	return f.Index
}

func collectKnownTypes(values []any) map[xml.Name]reflect.Type {
	known := make(map[xml.Name]reflect.Type)
	for _, v := range values {
		if v == nil {
			continue
		}
		t := reflect.TypeOf(v)
		addKnownType(t, known)
		addProvidedKnownTypes(t, known)
	}
	return known
}

func addKnownType(t reflect.Type, known map[xml.Name]reflect.Type) {
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return
	}
	name := xmlNameOf(base)
	if _, ok := known[name]; ok {
		return
	}
	known[name] = base
}

// addProvidedKnownTypes walks KnownTypeProvider contributions transitively.
func addProvidedKnownTypes(t reflect.Type, known map[xml.Name]reflect.Type) {
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	var provider KnownTypeProvider
	switch {
	case t.Implements(knownTypeProviderType):
		provider, _ = reflect.New(base).Elem().Interface().(KnownTypeProvider)
	case reflect.PointerTo(base).Implements(knownTypeProviderType):
		provider, _ = reflect.New(base).Interface().(KnownTypeProvider)
	default:
		return
	}
	if provider == nil {
		return
	}
	for _, v := range provider.KnownTypes() {
		if v == nil {
			continue
		}
		vt := reflect.TypeOf(v)
		name := xmlNameOf(elemOf(vt))
		if _, seen := known[name]; seen {
			continue
		}
		addKnownType(vt, known)
		addProvidedKnownTypes(vt, known)
	}
}

func elemOf(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// xmlNameOf resolves the XML name of a struct type from its XMLName field
// tag, falling back to the Go type name.
func xmlNameOf(t reflect.Type) xml.Name {
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName("XMLName"); ok {
			if tag := f.Tag.Get("xml"); tag != "" {
				space, local := splitXMLTag(tag)
				if local != "" {
					return xml.Name{Space: space, Local: local}
				}
			}
		}
	}
	return xml.Name{Local: t.Name()}
}

func splitXMLTag(tag string) (space, local string) {
	name := strings.Split(tag, ",")[0]
	if i := strings.LastIndex(name, " "); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
