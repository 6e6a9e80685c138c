package content

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// AttrPrefix marks attribute keys in a parsed XML tree.
	AttrPrefix = "@_"
	// TextKey holds an element's text, present even when empty.
	TextKey = "#text"
)

// ParseError reports content that does not conform to its kind.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts content into a structured value.
//
// XML yields map[string]any{root: node} where each node is a map holding
// attributes under AttrPrefix+name, child elements by tag name ([]any when a
// tag repeats) and its trimmed text under TextKey. Numeric text is converted
// to int64 or float64.
//
// JSON yields the validated payload as json.RawMessage, so re-encoding keeps
// the source key order.
func Parse(content string, kind Kind) (any, error) {
	if kind == KindXML {
		v, err := parseXML(content)
		if err != nil {
			return nil, &ParseError{Kind: KindXML, Err: err}
		}
		return v, nil
	}
	raw := []byte(strings.TrimSpace(content))
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &ParseError{Kind: KindJSON, Err: err}
	}
	return json.RawMessage(raw), nil
}

// ParseAuto classifies content and parses it accordingly.
func ParseAuto(content string) (any, Kind, error) {
	kind := Classify(content)
	v, err := Parse(content, kind)
	return v, kind, err
}

type xmlNode struct {
	name string
	tree map[string]any
	text strings.Builder
}

func parseXML(content string) (map[string]any, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	// content is already decoded text; the declared encoding only names the source bytes
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	var (
		stack []*xmlNode
		root  map[string]any
	)
	for {
		// raw tokens keep the prefixes as written
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("unexpected second root element <%s>", qualified(t.Name))
			}
			n := &xmlNode{name: qualified(t.Name), tree: make(map[string]any, len(t.Attr)+1)}
			for _, a := range t.Attr {
				n.tree[AttrPrefix+qualified(a.Name)] = autoType(a.Value)
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element </%s>", qualified(t.Name))
			}
			n := stack[len(stack)-1]
			if name := qualified(t.Name); name != n.name {
				return nil, fmt.Errorf("element <%s> closed by </%s>", n.name, name)
			}
			stack = stack[:len(stack)-1]
			n.tree[TextKey] = autoType(strings.TrimSpace(n.text.String()))
			if len(stack) == 0 {
				root = map[string]any{n.name: n.tree}
				continue
			}
			addChild(stack[len(stack)-1].tree, n.name, n.tree)
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// qualified rebuilds the prefixed name of a raw token.
func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func addChild(parent map[string]any, name string, child map[string]any) {
	existing, ok := parent[name]
	if !ok {
		parent[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		parent[name] = append(list, child)
		return
	}
	parent[name] = []any{existing, child}
}

// autoType converts canonical numerals. Codes with leading zeros ("007") and
// non-finite spellings stay strings.
func autoType(s string) any {
	if s == "" || !looksNumeric(s) {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func looksNumeric(s string) bool {
	b := []byte(s)
	if b[0] == '-' || b[0] == '+' {
		b = b[1:]
	}
	if len(b) == 0 {
		return false
	}
	intPart := b
	if i := bytes.IndexByte(b, '.'); i >= 0 {
		intPart = b[:i]
		frac := b[i+1:]
		if len(frac) == 0 || !allDigits(frac) {
			return false
		}
	}
	if len(intPart) == 0 || !allDigits(intPart) {
		return false
	}
	return len(intPart) == 1 || intPart[0] != '0'
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
