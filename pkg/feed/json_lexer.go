package feed

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// jsonLexerBuffer keeps the lexer's look-ahead small; the body is pulled through it
// a few bytes at a time rather than being read whole.
const jsonLexerBuffer = 64

type jsonParser struct {
	schema JSONSchema
}

// JSON wraps a schema with the streaming JSON lexer.
func JSON(schema JSONSchema) Parser {
	return &jsonParser{schema: schema}
}

func (p *jsonParser) Reset() {
	p.schema.Reset()
}

func (p *jsonParser) Complete() bool {
	return p.schema.Complete()
}

func (p *jsonParser) Parse(r io.Reader) error {
	iter := jsoniter.Parse(jsoniter.ConfigDefault, r, jsonLexerBuffer)

	p.schema.HandleJSON(JSONToken{Kind: DocumentStart})

	finished := p.walk(iter)

	if p.schema.Complete() {
		return nil
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return errors.Wrap(iter.Error, "json lexer")
	}
	if !finished {
		return errors.New("json lexer: document ended early")
	}

	p.schema.HandleJSON(JSONToken{Kind: DocumentEnd})

	return nil
}

// walk emits the tokens for one value. It returns false when lexing has to stop,
// either because the schema is complete or the stream failed.
func (p *jsonParser) walk(iter *jsoniter.Iterator) bool {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		p.schema.HandleJSON(JSONToken{Kind: ObjectStart})
		ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			p.schema.HandleJSON(JSONToken{Kind: Key, Text: key})
			return p.walk(it)
		})
		if !ok {
			return false
		}
		p.schema.HandleJSON(JSONToken{Kind: ObjectEnd})
	case jsoniter.ArrayValue:
		p.schema.HandleJSON(JSONToken{Kind: ArrayStart})
		ok := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			return p.walk(it)
		})
		if !ok {
			return false
		}
		p.schema.HandleJSON(JSONToken{Kind: ArrayEnd})
	case jsoniter.StringValue:
		p.value(iter.ReadString())
	case jsoniter.NumberValue:
		p.value(string(iter.ReadNumber()))
	case jsoniter.BoolValue:
		if iter.ReadBool() {
			p.value("true")
		} else {
			p.value("false")
		}
	case jsoniter.NilValue:
		iter.ReadNil()
		p.value("null")
	default:
		if iter.Error == nil {
			iter.ReportError("walk", "unexpected value")
		}
		return false
	}

	return iter.Error == nil && !p.schema.Complete()
}

func (p *jsonParser) value(text string) {
	p.schema.HandleJSON(JSONToken{Kind: Value, Text: text})
}
