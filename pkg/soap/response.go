package soap

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"reflect"

	"github.com/beevik/etree"

	"github.com/getsoapd/soapd/pkg/envelope"
	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// buildResponse assembles the response envelope: addressing headers,
// SOAP headers from tagged members of the return value, and the body in
// the operation's message shape.
func (e *Endpoint) buildResponse(op *soapmodel.OperationDescription, enc *envelope.Encoder, reqEnv *envelope.Envelope, results []reflect.Value, args []reflect.Value) (*envelope.Envelope, error) {
	respEnv := envelope.New(enc.Version())
	if enc.Addressing() == envelope.AddressingWS10 {
		respEnv.SetAddressing(op.ReplyAction, reqEnv.Headers.MessageID, reqEnv.Headers.ReplyTo)
	} else {
		respEnv.SetAction(op.ReplyAction)
	}

	var result reflect.Value
	if len(results) > 0 {
		result = results[0]
	}

	if result.IsValid() {
		if err := e.addResultHeaders(respEnv, op, result); err != nil {
			return nil, err
		}
	}

	if op.IsMessageContractResponse && op.ResponseContract != nil {
		if err := addContractBody(respEnv, op, result); err != nil {
			return nil, err
		}
		return respEnv, nil
	}

	wrapper := etree.NewElement(op.ResponseName)
	wrapper.CreateAttr("xmlns", op.Contract.Namespace)
	for i, rv := range results {
		el, err := marshalValue(op.ReturnNames[i], rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("marshaling result %s: %w", op.ReturnNames[i], err)
		}
		wrapper.AddChild(el)
	}
	// Out and ref parameter values, collected by parameter name.
	for _, p := range op.OutParameters() {
		v := args[p.Index]
		if !v.IsValid() {
			continue
		}
		el, err := marshalValue(p.Name, deref(v).Interface())
		if err != nil {
			return nil, fmt.Errorf("marshaling out parameter %s: %w", p.Name, err)
		}
		wrapper.AddChild(el)
	}
	respEnv.AddBodyElement(wrapper)
	return respEnv, nil
}

// addResultHeaders emits a SOAP header for each tagged header member of the
// return value, copying MustUnderstand.
func (e *Endpoint) addResultHeaders(respEnv *envelope.Envelope, op *soapmodel.OperationDescription, result reflect.Value) error {
	var members []soapmodel.MemberDescription
	if op.ResponseContract != nil {
		members = op.ResponseContract.Headers
	} else {
		members = soapmodel.HeaderMembers(result.Type())
	}
	if len(members) == 0 {
		return nil
	}

	rv := deref(result)
	if rv.Kind() != reflect.Struct {
		return nil
	}
	for i := range members {
		m := &members[i]
		ns := m.Namespace
		if ns == "" {
			ns = op.Contract.Namespace
		}
		el, err := marshalValue(m.Name, rv.FieldByIndex(m.FieldIndex).Interface())
		if err != nil {
			return fmt.Errorf("marshaling header %s: %w", m.Name, err)
		}
		el.CreateAttr("xmlns", ns)
		if m.MustUnderstand {
			el.CreateAttr("soap:mustUnderstand", "1")
		}
		respEnv.AddHeaderElement(el)
	}
	return nil
}

// addContractBody emits the message-contract response body: members nested
// inside the wrapper element when wrapped, or as body siblings when bare.
func addContractBody(respEnv *envelope.Envelope, op *soapmodel.OperationDescription, result reflect.Value) error {
	info := op.ResponseContract
	rv := deref(result)
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("message-contract response for %s is not a struct", op.Name)
	}

	var parent *etree.Element
	if info.IsWrapped {
		parent = etree.NewElement(info.WrapperName)
		ns := info.WrapperNamespace
		if ns == "" {
			ns = op.Contract.Namespace
		}
		parent.CreateAttr("xmlns", ns)
	}

	for i := range info.BodyParts {
		m := &info.BodyParts[i]
		el, err := marshalValue(m.Name, rv.FieldByIndex(m.FieldIndex).Interface())
		if err != nil {
			return fmt.Errorf("marshaling body member %s: %w", m.Name, err)
		}
		if parent != nil {
			parent.AddChild(el)
		} else {
			if m.Namespace != "" {
				el.CreateAttr("xmlns", m.Namespace)
			}
			respEnv.AddBodyElement(el)
		}
	}

	if parent != nil {
		respEnv.AddBodyElement(parent)
	}
	return nil
}

// marshalValue serializes v as an element with the given local name.
func marshalValue(name string, v any) (*etree.Element, error) {
	el := etree.NewElement(name)
	if v == nil {
		return el, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return el, nil
		}
		v = rv.Elem().Interface()
	}

	switch t := v.(type) {
	case string:
		el.SetText(t)
		return el, nil
	case []byte:
		el.SetText(base64.StdEncoding.EncodeToString(t))
		return el, nil
	}

	var buf bytes.Buffer
	encx := xml.NewEncoder(&buf)
	if err := encx.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
		return nil, err
	}
	if err := encx.Flush(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(buf.Bytes()); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return el, nil
	}
	out := root.Copy()
	out.Space = ""
	out.Tag = name
	return out, nil
}

func deref(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem()
	}
	return v
}
