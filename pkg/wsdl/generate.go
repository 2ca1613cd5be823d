package wsdl

import (
	"reflect"
	"time"

	"github.com/beevik/etree"

	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// WSDL 1.1 namespaces.
const (
	wsdlNS     = "http://schemas.xmlsoap.org/wsdl/"
	wsdlSoapNS = "http://schemas.xmlsoap.org/wsdl/soap/"
	xsdNS      = "http://www.w3.org/2001/XMLSchema"
)

// GenerateOptions tunes WSDL generation.
type GenerateOptions struct {
	// BaseURL is the advertised endpoint address.
	BaseURL string

	// UseBasicAuthentication notes HTTP basic auth in the generated
	// document. Advisory only.
	UseBasicAuthentication bool

	// Indent pretty-prints the output.
	Indent bool
}

// Generate emits a minimal WSDL 1.1 document for the service description:
// a schema with request/response elements, messages, a port type, a literal
// binding with per-operation soap actions and styles (document, or rpc for
// rpc-style operations), and a service port at BaseURL.
func Generate(sd *soapmodel.ServiceDescription, opts GenerateOptions) ([]byte, error) {
	contract := sd.Contracts[0]

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	defs := doc.CreateElement("wsdl:definitions")
	defs.CreateAttr("xmlns:wsdl", wsdlNS)
	defs.CreateAttr("xmlns:soap", wsdlSoapNS)
	defs.CreateAttr("xmlns:xsd", xsdNS)
	defs.CreateAttr("xmlns:tns", contract.Namespace)
	defs.CreateAttr("name", contract.Name)
	defs.CreateAttr("targetNamespace", contract.Namespace)

	if opts.UseBasicAuthentication {
		defs.CreateComment("authentication: HTTP Basic")
	}

	writeTypes(defs, contract)
	writeMessages(defs, contract)
	writePortType(defs, contract)
	writeBinding(defs, contract)
	writeService(defs, contract, opts.BaseURL)

	if opts.Indent {
		doc.Indent(2)
	}
	return doc.WriteToBytes()
}

func writeTypes(defs *etree.Element, contract *soapmodel.ContractDescription) {
	types := defs.CreateElement("wsdl:types")
	schema := types.CreateElement("xsd:schema")
	schema.CreateAttr("elementFormDefault", "qualified")
	schema.CreateAttr("targetNamespace", contract.Namespace)

	for _, op := range contract.Operations {
		in := schema.CreateElement("xsd:element")
		in.CreateAttr("name", op.Name)
		seq := in.CreateElement("xsd:complexType").CreateElement("xsd:sequence")
		for _, p := range op.InParameters() {
			el := seq.CreateElement("xsd:element")
			el.CreateAttr("name", p.Name)
			el.CreateAttr("type", xsdTypeOf(p.ElementType()))
		}

		if op.IsOneWay {
			continue
		}
		out := schema.CreateElement("xsd:element")
		out.CreateAttr("name", op.ResponseName)
		outSeq := out.CreateElement("xsd:complexType").CreateElement("xsd:sequence")
		for i, rt := range op.ReturnTypes {
			el := outSeq.CreateElement("xsd:element")
			el.CreateAttr("name", op.ReturnNames[i])
			el.CreateAttr("type", xsdTypeOf(rt))
		}
		for _, p := range op.OutParameters() {
			el := outSeq.CreateElement("xsd:element")
			el.CreateAttr("name", p.Name)
			el.CreateAttr("type", xsdTypeOf(p.ElementType()))
		}
	}
}

func writeMessages(defs *etree.Element, contract *soapmodel.ContractDescription) {
	for _, op := range contract.Operations {
		in := defs.CreateElement("wsdl:message")
		in.CreateAttr("name", op.Name+"SoapIn")
		part := in.CreateElement("wsdl:part")
		part.CreateAttr("name", "parameters")
		part.CreateAttr("element", "tns:"+op.Name)

		if op.IsOneWay {
			continue
		}
		out := defs.CreateElement("wsdl:message")
		out.CreateAttr("name", op.Name+"SoapOut")
		outPart := out.CreateElement("wsdl:part")
		outPart.CreateAttr("name", "parameters")
		outPart.CreateAttr("element", "tns:"+op.ResponseName)
	}
}

func writePortType(defs *etree.Element, contract *soapmodel.ContractDescription) {
	pt := defs.CreateElement("wsdl:portType")
	pt.CreateAttr("name", contract.Name)
	for _, op := range contract.Operations {
		o := pt.CreateElement("wsdl:operation")
		o.CreateAttr("name", op.Name)
		o.CreateElement("wsdl:input").CreateAttr("message", "tns:"+op.Name+"SoapIn")
		if !op.IsOneWay {
			o.CreateElement("wsdl:output").CreateAttr("message", "tns:"+op.Name+"SoapOut")
		}
	}
}

func writeBinding(defs *etree.Element, contract *soapmodel.ContractDescription) {
	b := defs.CreateElement("wsdl:binding")
	b.CreateAttr("name", contract.Name+"Soap")
	b.CreateAttr("type", "tns:"+contract.Name)
	sb := b.CreateElement("soap:binding")
	sb.CreateAttr("transport", "http://schemas.xmlsoap.org/soap/http")

	for _, op := range contract.Operations {
		o := b.CreateElement("wsdl:operation")
		o.CreateAttr("name", op.Name)
		so := o.CreateElement("soap:operation")
		so.CreateAttr("soapAction", op.SoapAction)
		style := "document"
		if op.Style == soapmodel.StyleRpc {
			style = "rpc"
		}
		so.CreateAttr("style", style)
		o.CreateElement("wsdl:input").CreateElement("soap:body").CreateAttr("use", "literal")
		if !op.IsOneWay {
			o.CreateElement("wsdl:output").CreateElement("soap:body").CreateAttr("use", "literal")
		}
	}
}

func writeService(defs *etree.Element, contract *soapmodel.ContractDescription, baseURL string) {
	svc := defs.CreateElement("wsdl:service")
	svc.CreateAttr("name", contract.Name)
	port := svc.CreateElement("wsdl:port")
	port.CreateAttr("name", contract.Name+"Soap")
	port.CreateAttr("binding", "tns:"+contract.Name+"Soap")
	addr := port.CreateElement("soap:address")
	addr.CreateAttr("location", baseURL)
}

var timeType = reflect.TypeOf(time.Time{})

// xsdTypeOf maps a Go type to an XSD type name.
func xsdTypeOf(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "xsd:dateTime"
	}
	switch t.Kind() {
	case reflect.String:
		return "xsd:string"
	case reflect.Bool:
		return "xsd:boolean"
	case reflect.Int, reflect.Int64:
		return "xsd:long"
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return "xsd:int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "xsd:unsignedLong"
	case reflect.Float32:
		return "xsd:float"
	case reflect.Float64:
		return "xsd:double"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "xsd:base64Binary"
		}
		return "xsd:anyType"
	default:
		return "xsd:anyType"
	}
}
