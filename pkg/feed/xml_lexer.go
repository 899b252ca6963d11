package feed

import (
	"io"

	xpp "github.com/mmcdole/goxpp"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

type xmlParser struct {
	schema XMLSchema
}

// XML wraps a schema with the streaming XML pull lexer. The lexer runs in
// non-strict mode so unknown entities and mismatched end tags in feeds found in
// the wild do not fail the fetch.
func XML(schema XMLSchema) Parser {
	return &xmlParser{schema: schema}
}

func (p *xmlParser) Reset() {
	p.schema.Reset()
}

func (p *xmlParser) Complete() bool {
	return p.schema.Complete()
}

func (p *xmlParser) Parse(r io.Reader) error {
	parser := xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)
	opened := false

	for !p.schema.Complete() {
		event, err := parser.Next()
		if err != nil {
			return errors.Wrap(err, "xml lexer")
		}

		switch event {
		case xpp.StartTag:
			opened = true
			p.schema.HandleXML(XMLToken{Kind: StartTag, Name: parser.Name})
			for _, attr := range parser.Attrs {
				p.schema.HandleXML(XMLToken{Kind: Attribute, Name: attr.Name.Local, Text: attr.Value})
			}
		case xpp.Text:
			p.schema.HandleXML(XMLToken{Kind: Text, Name: parser.Name, Text: parser.Text})
		case xpp.EndTag:
			p.schema.HandleXML(XMLToken{Kind: EndTag, Name: parser.Name})
			// The root element has closed, anything after it is not worth waiting for
			if opened && parser.Depth == 0 {
				return nil
			}
		case xpp.EndDocument:
			if !opened {
				return errors.New("xml lexer: empty document")
			}
			return nil
		}
	}

	return nil
}
