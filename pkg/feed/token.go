package feed

import "io"

type JSONTokenKind int

const (
	DocumentStart JSONTokenKind = iota
	DocumentEnd
	ObjectStart
	ObjectEnd
	ArrayStart
	ArrayEnd
	Key
	Value
)

func (k JSONTokenKind) String() string {
	switch k {
	case DocumentStart:
		return "DocumentStart"
	case DocumentEnd:
		return "DocumentEnd"
	case ObjectStart:
		return "ObjectStart"
	case ObjectEnd:
		return "ObjectEnd"
	case ArrayStart:
		return "ArrayStart"
	case ArrayEnd:
		return "ArrayEnd"
	case Key:
		return "Key"
	case Value:
		return "Value"
	default:
		return "Unknown"
	}
}

// JSONToken is one structural event from the JSON lexer. Text carries the key name
// for Key tokens and the literal (unquoted for strings) for Value tokens.
type JSONToken struct {
	Kind JSONTokenKind
	Text string
}

type XMLTokenKind int

const (
	StartTag XMLTokenKind = iota
	EndTag
	Text
	Attribute
)

func (k XMLTokenKind) String() string {
	switch k {
	case StartTag:
		return "StartTag"
	case EndTag:
		return "EndTag"
	case Text:
		return "Text"
	case Attribute:
		return "Attribute"
	default:
		return "Unknown"
	}
}

// XMLToken is one event from the XML lexer. Name is the local tag name (the tag the
// text belongs to for Text tokens, the attribute name for Attribute tokens).
type XMLToken struct {
	Kind XMLTokenKind
	Name string
	Text string
}

// Schema is implemented once per feed wire format. Reset is called at the start of
// every fetch and must clear both the working record and the transient parse context.
// Complete reports that everything of interest has been captured so streaming can stop.
type Schema interface {
	Reset()
	Complete() bool
}

type JSONSchema interface {
	Schema
	HandleJSON(token JSONToken)
}

type XMLSchema interface {
	Schema
	HandleXML(token XMLToken)
}

// Parser is what a Client streams a response body into.
type Parser interface {
	Reset()
	Parse(r io.Reader) error
	Complete() bool
}
