// Package dom is a small live document model over golang.org/x/net/html: element queries,
// inline style editing and injected nodes.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document. Missing html, head and body elements are synthesised.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Root returns the <html> element.
func (d *Document) Root() Element {
	return d.first(atom.Html)
}

// Head returns the <head> element, creating it if the document has none.
func (d *Document) Head() Element {
	if h := d.first(atom.Head); h.Valid() {
		return h
	}
	head := d.CreateElement("head")
	root := d.Root()
	if root.Valid() {
		root.n.InsertBefore(head.n, root.n.FirstChild)
	} else {
		d.root.AppendChild(head.n)
	}
	return head
}

// Body returns the <body> element, or the root element when there is no body.
func (d *Document) Body() Element {
	if b := d.first(atom.Body); b.Valid() {
		return b
	}
	return d.Root()
}

func (d *Document) first(a atom.Atom) Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return Element{n: found}
}

// QueryAll returns the elements with any of the given tag names, in document order.
func (d *Document) QueryAll(tags ...string) []Element {
	var out []Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && slices.Contains(tags, n.Data) {
			out = append(out, Element{n: n})
		}
		return true
	})
	return out
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) (Element, bool) {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return Element{n: found}, found != nil
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) Element {
	tag = strings.ToLower(tag)
	return Element{n: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
}

// AppendFragment parses markup in the context of parent and appends the resulting nodes to it.
func (d *Document) AppendFragment(parent Element, markup string) ([]Element, error) {
	if !parent.Valid() {
		return nil, fmt.Errorf("append fragment: invalid parent")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent.n)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		parent.n.AppendChild(n)
		if n.Type == html.ElementNode {
			out = append(out, Element{n: n})
		}
	}
	return out, nil
}

// walk visits n and its descendants depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Element is a handle to a node in a Document. The zero Element is invalid.
// Elements are comparable and usable as map keys.
type Element struct {
	n *html.Node
}

// Valid reports whether e refers to a node.
func (e Element) Valid() bool {
	return e.n != nil
}

// Tag returns the lower-case tag name.
func (e Element) Tag() string {
	return e.n.Data
}

// Attr returns an attribute value and whether it is present.
func (e Element) Attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, adding it if absent.
func (e Element) SetAttr(key, val string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute.
func (e Element) RemoveAttr(key string) {
	e.n.Attr = slices.DeleteFunc(e.n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// AppendChild attaches child as the last child of e.
func (e Element) AppendChild(child Element) {
	e.n.AppendChild(child.n)
}

// Remove detaches e from its parent.
func (e Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// Parent returns the parent element. The result is invalid for the root or a detached element.
func (e Element) Parent() Element {
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return Element{n: p}
		}
	}
	return Element{}
}

// Attached reports whether e is still in a tree.
func (e Element) Attached() bool {
	return e.n.Parent != nil
}

// SetText replaces the children of e with a single text node.
func (e Element) SetText(text string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text of e's descendants, excluding script and style content.
func (e Element) Text() string {
	var b strings.Builder
	walk(e.n, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return true
		}
		if n.Type == html.TextNode && n.Parent != nil &&
			n.Parent.DataAtom != atom.Script && n.Parent.DataAtom != atom.Style {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// HasDescendant reports whether any descendant of e has one of the tag names.
func (e Element) HasDescendant(tags ...string) bool {
	found := false
	for c := e.n.FirstChild; c != nil && !found; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && slices.Contains(tags, n.Data) {
				found = true
				return false
			}
			return true
		})
	}
	return found
}

// Size returns the element's declared width and height in pixels, from inline style or
// width/height attributes. Undeclared or non-pixel dimensions take the given defaults.
func (e Element) Size(defaultWidth, defaultHeight float64) (float64, float64) {
	return e.dimension("width", defaultWidth), e.dimension("height", defaultHeight)
}

func (e Element) dimension(name string, def float64) float64 {
	if v, ok := pixels(e.Style(name)); ok {
		return v
	}
	if raw, ok := e.Attr(name); ok {
		if v, ok := pixels(raw); ok {
			return v
		}
	}
	return def
}

func pixels(v string) (float64, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return 0, false
	}
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
