package scrape

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/leafgrid/catalog-sync/internal/normalize"
)

// document holds a parsed HTML tree plus a flat node list in document order,
// which makes "next matching element after this one" queries cheap.
type document struct {
	root  *html.Node
	nodes []*html.Node
	index map[*html.Node]int
}

func parseDocument(body []byte) (*document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	d := &document{root: root, index: make(map[*html.Node]int)}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.index[n] = len(d.nodes)
			d.nodes = append(d.nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return d, nil
}

// first returns the first element satisfying pred, or nil.
func (d *document) first(pred func(*html.Node) bool) *html.Node {
	for _, n := range d.nodes {
		if pred(n) {
			return n
		}
	}
	return nil
}

// all returns every element satisfying pred in document order.
func (d *document) all(pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range d.nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// following returns the first element after n (in document order, not just
// siblings) satisfying pred.
func (d *document) following(n *html.Node, pred func(*html.Node) bool) *html.Node {
	start, ok := d.index[n]
	if !ok {
		return nil
	}
	end := start + 1 + subtreeSize(n)
	for i := end; i < len(d.nodes); i++ {
		if pred(d.nodes[i]) {
			return d.nodes[i]
		}
	}
	return nil
}

func subtreeSize(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count += 1 + subtreeSize(c)
		}
	}
	return count
}

// nextSiblingDiv returns the first following sibling element that is a div.
func nextSiblingDiv(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			if s.Data == "div" {
				return s
			}
			return nil
		}
	}
	return nil
}

// descendants returns every descendant element of n satisfying pred.
func descendants(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		for x := c.FirstChild; x != nil; x = x.NextSibling {
			if x.Type == html.ElementNode && pred(x) {
				out = append(out, x)
			}
			walk(x)
		}
	}
	walk(n)
	return out
}

func isTag(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func classContains(n *html.Node, substr string) bool {
	return strings.Contains(attr(n, "class"), substr)
}

// ownText concatenates only the direct child text nodes of n. Used for label
// lookups, where matching aggregated descendant text would make every
// ancestor up to <html> a hit.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return normalize.CollapseSpaces(strings.TrimSpace(b.String()))
}

// text concatenates the descendant text of n and collapses whitespace.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		for x := c.FirstChild; x != nil; x = x.NextSibling {
			walk(x)
		}
	}
	walk(n)
	return normalize.CollapseSpaces(strings.TrimSpace(b.String()))
}
