package envelope

import "github.com/beevik/etree"

// NewFault builds a version-correct fault envelope. Code takes the SOAP 1.1
// form ("soap:Client", "soap:Server"); it is mapped to the 1.2 vocabulary
// when the version requires it. Detail carries raw XML and may be empty.
func NewFault(version Version, code, message, detail string) *Envelope {
	env := New(version)
	fault := etree.NewElement("soap:Fault")

	if version == Soap12 {
		switch code {
		case "soap:Client", "Client":
			code = "soap:Sender"
		case "soap:Server", "Server":
			code = "soap:Receiver"
		}
		codeEl := fault.CreateElement("soap:Code")
		codeEl.CreateElement("soap:Value").SetText(code)
		reason := fault.CreateElement("soap:Reason")
		text := reason.CreateElement("soap:Text")
		text.CreateAttr("xml:lang", "en")
		text.SetText(message)
		if detail != "" {
			addRawXML(fault.CreateElement("soap:Detail"), detail)
		}
	} else {
		fault.CreateElement("faultcode").SetText(code)
		fault.CreateElement("faultstring").SetText(message)
		if detail != "" {
			addRawXML(fault.CreateElement("detail"), detail)
		}
	}

	env.AddBodyElement(fault)
	return env
}

// addRawXML parses fragment and attaches its elements to parent, falling
// back to text when the fragment is not well-formed.
func addRawXML(parent *etree.Element, fragment string) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<x>" + fragment + "</x>"); err == nil && doc.Root() != nil {
		// AddChild detaches each token from its old parent, so iterate over
		// a copy of the child list.
		children := append([]etree.Token(nil), doc.Root().Child...)
		for _, child := range children {
			parent.AddChild(child)
		}
		return
	}
	parent.SetText(fragment)
}
