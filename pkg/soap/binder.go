package soap

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// bind decodes the envelope body (and headers, for message contracts) into
// a positional argument array sized to the operation's full parameter
// arity. Unfilled slots are defaulted afterwards.
func (e *Endpoint) bind(op *soapmodel.OperationDescription, env *envelope.Envelope, rc *RequestContext) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(op.Parameters))

	switch {
	case op.IsMessageContractRequest:
		if err := bindMessageContract(op, env, args); err != nil {
			return nil, err
		}
	case env.IsEmpty:
		// No body: nothing to bind.
	default:
		if err := bindBodyParameters(op, env, args); err != nil {
			return nil, err
		}
	}

	for _, p := range op.Parameters {
		if p.IsContext {
			args[p.Index] = reflect.ValueOf(rc)
		}
	}

	defaultArguments(op, args)
	return args, nil
}

// bindBodyParameters handles the plain (non-message-contract) case: advance
// past the operation wrapper, then bind each body element to the in
// parameter with the same local name. Unknown elements are skipped; a
// repeat of the immediately previous parameter breaks the loop so an
// ill-formed stream cannot spin forever.
func bindBodyParameters(op *soapmodel.OperationDescription, env *envelope.Envelope, args []reflect.Value) error {
	els, err := env.BodyElements()
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return nil
	}

	paramEls := els
	if els[0].Tag == op.Name {
		paramEls = els[0].ChildElements()
	}

	prev := -1
	for _, el := range paramEls {
		p := findInParameter(op, el.Tag)
		if p == nil {
			continue
		}
		if p.Index == prev {
			break
		}
		v, err := decodeParameter(el, p, op)
		if err != nil {
			return fmt.Errorf("binding parameter %s: %w", p.Name, err)
		}
		args[p.Index] = v
		prev = p.Index
	}
	return nil
}

// bindMessageContract handles the message-contract case: one in-parameter
// whose type models the envelope. Headers bind by tag name or field name;
// body members bind in ascending declared order.
func bindMessageContract(op *soapmodel.OperationDescription, env *envelope.Envelope, args []reflect.Value) error {
	info := op.RequestContract
	var param *soapmodel.ParameterDescription
	for _, p := range op.InParameters() {
		param = p
		break
	}
	if param == nil {
		return fmt.Errorf("message-contract operation %s has no in-parameter", op.Name)
	}

	wrapper := reflect.New(info.Type)

	for i := range info.Headers {
		m := &info.Headers[i]
		for _, hdrEl := range env.Headers.Elements {
			if hdrEl.Tag != m.Name && hdrEl.Tag != m.FieldName {
				continue
			}
			field := wrapper.Elem().FieldByIndex(m.FieldIndex)
			tv := reflect.New(m.Type)
			if err := unmarshalElement(hdrEl, tv.Interface()); err != nil {
				return fmt.Errorf("binding header %s: %w", m.Name, err)
			}
			field.Set(tv.Elem())
			break
		}
	}

	els, err := env.BodyElements()
	if err != nil {
		return err
	}

	if op.Style == soapmodel.StyleRpc && info.IsWrapped && len(info.Headers) == 0 {
		// RPC wrapped with no header members: the generic deserializer
		// consumes the whole wrapper element.
		if len(els) > 0 {
			if err := unmarshalElement(els[0], wrapper.Interface()); err != nil {
				return fmt.Errorf("binding message contract %s: %w", info.Type.Name(), err)
			}
		}
	} else {
		bodyEls := els
		if info.IsWrapped && len(els) > 0 {
			bodyEls = els[0].ChildElements()
		}
		for i := range info.BodyParts {
			m := &info.BodyParts[i]
			el := findElement(bodyEls, m.Name, m.FieldName)
			if el == nil {
				continue
			}
			field := wrapper.Elem().FieldByIndex(m.FieldIndex)
			tv := reflect.New(m.Type)
			if err := unmarshalElement(el, tv.Interface()); err != nil {
				return fmt.Errorf("binding body member %s: %w", m.Name, err)
			}
			field.Set(tv.Elem())
		}
	}

	if param.Type.Kind() == reflect.Pointer {
		args[param.Index] = wrapper
	} else {
		args[param.Index] = wrapper.Elem()
	}
	return nil
}

func findInParameter(op *soapmodel.OperationDescription, local string) *soapmodel.ParameterDescription {
	for _, p := range op.InParameters() {
		if p.Name == local {
			return p
		}
	}
	return nil
}

func findElement(els []*etree.Element, names ...string) *etree.Element {
	for _, el := range els {
		for _, name := range names {
			if el.Tag == name {
				return el
			}
		}
	}
	return nil
}

// decodeParameter deserializes el into the parameter's declared type,
// honoring xsi:type known-type hints. When the first attempt yields
// nothing, it retries with the parameter's own namespace as a fallback.
func decodeParameter(el *etree.Element, p *soapmodel.ParameterDescription, op *soapmodel.OperationDescription) (reflect.Value, error) {
	target := resolveKnownType(el, p.ElementType(), op)

	v := reflect.New(target)
	if err := unmarshalElement(el, v.Interface()); err != nil {
		return reflect.Value{}, err
	}

	if v.Elem().IsZero() && p.Namespace != "" {
		clone := el.Copy()
		clone.CreateAttr("xmlns", p.Namespace)
		retry := reflect.New(target)
		if err := unmarshalElement(clone, retry.Interface()); err == nil {
			v = retry
		}
	}

	if v.Type().AssignableTo(p.Type) {
		return v, nil
	}
	if v.Elem().Type().AssignableTo(p.Type) {
		return v.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to parameter %s (%s)", v.Type(), p.Name, p.Type)
}

// resolveKnownType returns the concrete type named by an xsi:type attribute
// when it is registered and compatible with the declared type.
func resolveKnownType(el *etree.Element, declared reflect.Type, op *soapmodel.OperationDescription) reflect.Type {
	attr := el.SelectAttrValue("xsi:type", "")
	if attr == "" {
		return declared
	}
	local := attr
	if i := strings.LastIndex(attr, ":"); i >= 0 {
		local = attr[i+1:]
	}
	for name, t := range op.KnownTypes {
		if name.Local != local {
			continue
		}
		if declared.Kind() == reflect.Interface || t.AssignableTo(declared) || t.ConvertibleTo(declared) {
			return t
		}
	}
	return declared
}

// unmarshalElement decodes an element subtree into target via encoding/xml.
func unmarshalElement(el *etree.Element, target any) error {
	doc := etree.NewDocument()
	doc.AddChild(el.Copy())
	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, target)
}

var uuidType = reflect.TypeOf(uuid.UUID{})

// defaultArguments fills every still-empty slot with a type-appropriate
// zero value: uuid.Nil for GUID-like types, the empty string, nil slices,
// or a default instance of the element type. Running it twice over the
// same array is a no-op the second time.
func defaultArguments(op *soapmodel.OperationDescription, args []reflect.Value) {
	for _, p := range op.Parameters {
		if args[p.Index].IsValid() {
			continue
		}
		args[p.Index] = defaultValue(p.Type)
	}
}

func defaultValue(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Pointer {
		v := reflect.New(t.Elem())
		if t.Elem() == uuidType {
			v.Elem().Set(reflect.ValueOf(uuid.Nil))
		}
		return v
	}
	if t == uuidType {
		return reflect.ValueOf(uuid.Nil)
	}
	return reflect.Zero(t)
}
