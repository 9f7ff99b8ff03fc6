// Package markup converts XML feed text into document trees.
//
// The layout follows the usual XML-to-JSON convention used by feed tooling:
//   - an element becomes a key named after its qualified tag (prefix:local);
//   - attributes are kept under AttributePrefix+name and their values stay strings;
//   - an element with neither attributes nor child elements collapses to its text;
//   - text that sits beside attributes or child elements is stored under TextKey;
//   - sibling elements sharing a tag become a sequence, in document order;
//   - text is trimmed and typed as number or boolean when unambiguous.
//
// Comments, processing instructions and the XML declaration are dropped. A document
// must have exactly one root element and no text outside it.
//
// Integers with leading zeros such as "007" stay strings, so identifiers keep
// their digits.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/JakeFAU/feed-snapshot/internal/document"
)

const (
	// AttributePrefix marks keys that came from attributes.
	AttributePrefix = "@_"
	// TextKey holds element text when the element also has attributes or children.
	TextKey = "#text"
)

// maxSafeInteger is the largest integer a float64 holds without rounding.
const maxSafeInteger = 1<<53 - 1

var (
	integerPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	decimalPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// ParseError reports input that is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse markup: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Converter turns XML into a document.Value. It holds no state.
type Converter struct{}

// NewConverter returns a Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert parses data and returns a mapping keyed by the root element name.
func (Converter) Convert(data []byte) (document.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return document.Value{}, &ParseError{Err: errors.New("empty document")}
	}
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return document.Value{}, &ParseError{Err: err}
	}
	var top *xmlquery.Node
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.ElementNode:
			if top != nil {
				return document.Value{}, &ParseError{Err: fmt.Errorf("multiple root elements: <%s> and <%s>", top.Data, n.Data)}
			}
			top = n
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(n.Data) != "" {
				return document.Value{}, &ParseError{Err: errors.New("text outside the root element")}
			}
		}
	}
	if top == nil {
		return document.Value{}, &ParseError{Err: errors.New("no root element")}
	}
	return document.Mapping(document.Field{Key: qualifiedName(top.Prefix, top.Data), Value: convertElement(top)}), nil
}

func convertElement(n *xmlquery.Node) document.Value {
	var (
		text     strings.Builder
		children *document.Builder
	)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(c.Data)
		case xmlquery.ElementNode:
			if children == nil {
				children = document.NewBuilder(len(n.Attr) + 4)
			}
			appendChild(children, qualifiedName(c.Prefix, c.Data), convertElement(c))
		}
	}
	content := strings.TrimSpace(text.String())

	if len(n.Attr) == 0 && children == nil {
		return ParseScalar(content)
	}

	b := document.NewBuilder(len(n.Attr) + 1)
	for _, attr := range n.Attr {
		b.Set(AttributePrefix+qualifiedName(attr.Name.Space, attr.Name.Local), document.String(strings.TrimSpace(attr.Value)))
	}
	if children != nil {
		for _, f := range children.Build().Fields() {
			appendChild(b, f.Key, f.Value)
		}
	}
	if content != "" {
		b.Set(TextKey, ParseScalar(content))
	}
	return b.Build()
}

// appendChild stores value under key, turning repeated keys into a sequence.
func appendChild(b *document.Builder, key string, value document.Value) {
	existing, ok := b.Lookup(key)
	if !ok {
		b.Set(key, value)
		return
	}
	if existing.Kind() == document.KindSequence {
		b.Set(key, document.Sequence(append(existing.Items(), value)...))
		return
	}
	b.Set(key, document.Sequence(existing, value))
}

func qualifiedName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// ParseScalar types trimmed text. Integers without leading zeros that fit a float64
// exactly, decimals and exponent forms become numbers; "true" and "false" become
// booleans; anything else, including the empty string, stays a string.
func ParseScalar(s string) document.Value {
	switch s {
	case "true":
		return document.Bool(true)
	case "false":
		return document.Bool(false)
	}
	if integerPattern.MatchString(s) {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || i > maxSafeInteger || i < -maxSafeInteger {
			return document.String(s)
		}
		return document.Number(float64(i))
	}
	if decimalPattern.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return document.String(s)
		}
		return document.Number(f)
	}
	return document.String(s)
}
