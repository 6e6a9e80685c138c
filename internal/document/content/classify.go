package content

import "strings"

// Kind is the payload encoding of a document's content.
type Kind int

const (
	KindJSON Kind = iota
	KindXML
)

func (k Kind) String() string {
	if k == KindXML {
		return "xml"
	}
	return "json"
}

// xmlPrefixes are the leading markers of XML payloads in the corpus: the XML
// declaration or a bare OdfBody root.
var xmlPrefixes = []string{"<?xml", "<OdfBody"}

// Classify sniffs the trimmed prefix of content. It never fails; malformed XML
// that starts correctly is still KindXML and fails later in Parse.
func Classify(content string) Kind {
	trimmed := strings.TrimSpace(content)
	for _, p := range xmlPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return KindXML
		}
	}
	return KindJSON
}

// IsXML is shorthand for Classify(content) == KindXML.
func IsXML(content string) bool {
	return Classify(content) == KindXML
}
