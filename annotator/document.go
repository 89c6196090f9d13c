package annotator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/coreybb/callcheck/models"
)

// DocumentRenderer applies styles to a parsed HTML document held in memory.
// Navigation only records the requested URL.
type DocumentRenderer struct {
	mu       sync.Mutex
	doc      *html.Node
	selector cascadia.Selector
	location string
}

// NewDocumentRenderer wraps doc, locating the callsign element with selector.
func NewDocumentRenderer(doc *html.Node, selector string) (*DocumentRenderer, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid callsign selector %q: %w", selector, err)
	}
	return &DocumentRenderer{doc: doc, selector: sel}, nil
}

// ParseDocument parses HTML from r into a DocumentRenderer.
func ParseDocument(r io.Reader, selector string) (*DocumentRenderer, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return NewDocumentRenderer(doc, selector)
}

func (d *DocumentRenderer) DisplayedCallsign(_ context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.selector.MatchFirst(d.doc)
	if node == nil {
		return "", false, nil
	}
	return strings.TrimSpace(textContent(node)), true, nil
}

func (d *DocumentRenderer) ApplyStyle(_ context.Context, style models.Style) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.selector.MatchFirst(d.doc)
	if node == nil {
		return nil
	}
	current := attr(node, "style")
	setAttr(node, "style", mergeStyle(current, style.Properties()))
	return nil
}

func (d *DocumentRenderer) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = url
	return nil
}

// Location is the last URL passed to Navigate.
func (d *DocumentRenderer) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// Style returns the inline style of the callsign element, if present.
func (d *DocumentRenderer) Style() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if node := d.selector.MatchFirst(d.doc); node != nil {
		return attr(node, "style")
	}
	return ""
}

// Render writes the document, including applied styles, to w.
func (d *DocumentRenderer) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.doc)
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// mergeStyle sets props in an inline style declaration, keeping other
// declarations and their order. This mirrors assigning element.style.<prop>.
func mergeStyle(current string, props [][2]string) string {
	type decl struct{ name, value string }
	var decls []decl
	for _, part := range strings.Split(current, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decls = append(decls, decl{strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(value)})
	}

	for _, p := range props {
		replaced := false
		for i := range decls {
			if decls[i].name == p[0] {
				decls[i].value = p[1]
				replaced = true
			}
		}
		if !replaced {
			decls = append(decls, decl{p[0], p[1]})
		}
	}

	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.name+": "+d.value)
	}
	return strings.Join(out, "; ")
}
