// Package soap implements a SOAP 1.1/1.2 endpoint handler: it accepts HTTP
// requests carrying SOAP envelopes, dispatches them to methods on a
// user-supplied service object through a startup-time reflective service
// description, and returns a response envelope or a version-correct fault.
//
// The endpoint routes exactly one URL path; every other request is
// forwarded to the next handler unchanged.
//
// # Features
//
//   - SOAP 1.1 and 1.2 with content-type negotiation across an ordered
//     encoder set; the first encoder is the default
//   - Document and RPC styles, wrapped and bare bodies, and
//     message-contract parameter types with tagged header and body members
//   - WS-Addressing 1.0 response correlation (RelatesTo, To, MessageID)
//   - Filter, inspector, model-binder, action-filter and tuner chains with
//     contractual ordering: request order forward, response order reversed
//   - Uniform fault translation mirroring the request content type
//   - WSDL generation at ?wsdl, plus file-backed WSDL/XSD serving
//
// # Basic Usage
//
// Define a service as a plain struct with exported methods:
//
//	type Calculator struct{}
//
//	func (c *Calculator) Add(ctx context.Context, a, b int) (int, error) {
//	    return a + b, nil
//	}
//
// Create an endpoint and mount it:
//
//	ep, err := soap.New(&Calculator{}, nil, soap.Options{
//	    Path:           "/calculator",
//	    HttpGetEnabled: true,
//	    ModelOptions: []soapmodel.Option{
//	        soapmodel.WithNamespace("http://example.com/calc"),
//	        soapmodel.WithOperation("Add", soapmodel.OperationConfig{
//	            ParamNames: []string{"a", "b"},
//	        }),
//	    },
//	})
//	http.ListenAndServe(":8080", ep)
//
// A POST to /calculator with action http://example.com/calc/Calculator/Add
// and body <Add xmlns="http://example.com/calc"><a>1</a><b>2</b></Add>
// invokes Add(ctx, 1, 2) and answers with
// <AddResponse><AddResult>3</AddResult></AddResponse>.
//
// # Dispatch Order
//
// Within one request the observable order is: request filters, inspectors
// (AfterReceiveRequest), operation match, argument binding, model binders,
// action filters, tuners, invocation, response assembly, inspectors
// (BeforeSendReply, reversed), response write, response filters (reversed).
// Response filters run on every exit path, faults included.
//
// # Faults
//
// Any failure between envelope read and response write becomes a SOAP
// fault: client-side kinds (malformed envelope, unknown operation, binding
// and filter failures) map to soap:Client, server-side kinds to
// soap:Server, translated to the 1.2 Sender/Receiver vocabulary when
// negotiated. The fault's HTTP content type equals the request's; when the
// request carries none, the selected encoder's content type is used.
package soap
