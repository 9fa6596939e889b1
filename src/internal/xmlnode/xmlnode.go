// Package xmlnode decodes an XML document into a small namespace-aware tree
// that can be searched by (namespace, local name) the way catalog responses
// need: records nest the same Dublin Core elements at varying depths.
package xmlnode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// AnySpace matches every namespace in lookups.
const AnySpace = "*"

// ErrEmpty is returned when the input holds no root element.
var ErrEmpty = errors.New("xmlnode: no root element")

// Node is one element. Text holds the character data directly inside the
// element; use Content for the text of the whole subtree.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Text     string
	Parent   *Node
}

// Parse decodes r and returns the root element. Non-UTF-8 documents are
// transcoded using their declared encoding.
func Parse(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false
	d.Entity = xml.HTMLEntity

	var root *Node
	var stack []*Node
	var text []*strings.Builder
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmlnode: decode: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			} else {
				// A second top-level element; ignore it and its subtree.
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("xmlnode: decode: %w", err)
				}
				continue
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			n := stack[len(stack)-1]
			n.Text = text[len(text)-1].String()
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}
	// Unclosed elements in non-strict mode still keep their text.
	for i, n := range stack {
		n.Text = text[i].String()
	}
	if root == nil {
		return nil, ErrEmpty
	}
	return root, nil
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte) (*Node, error) {
	return Parse(bytes.NewReader(b))
}

// Is reports whether the node has the given namespace and local name.
// AnySpace matches every namespace.
func (n *Node) Is(space, local string) bool {
	if n == nil || n.Name.Local != local {
		return false
	}
	return space == AnySpace || n.Name.Space == space
}

// FindAll returns every descendant matching space/local in document order.
// The receiver itself is not included.
func (n *Node) FindAll(space, local string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Is(space, local) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Find returns the first descendant matching space/local, or nil.
func (n *Node) Find(space, local string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Is(space, local) {
			return c
		}
		if f := c.Find(space, local); f != nil {
			return f
		}
	}
	return nil
}

// Child returns the first direct child matching space/local, or nil.
func (n *Node) Child(space, local string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Is(space, local) {
			return c
		}
	}
	return nil
}

// Content returns the concatenated character data of the subtree, trimmed.
func (n *Node) Content() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.content(&b)
	return strings.TrimSpace(b.String())
}

func (n *Node) content(b *strings.Builder) {
	// Mixed content is flattened own text first.
	b.WriteString(n.Text)
	for _, c := range n.Children {
		c.content(b)
	}
}

// AttrValue returns the value of the attribute with the given namespace and
// local name. AnySpace matches every namespace.
func (n *Node) AttrValue(space, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && (space == AnySpace || a.Name.Space == space) {
			return a.Value
		}
	}
	return ""
}
