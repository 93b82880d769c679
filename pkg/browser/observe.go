package browser

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DefaultObserveLength bounds the text part of an observation, in bytes.
const DefaultObserveLength = 12000

// Link is an anchor found on the page, with its href resolved against the page URL.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Control is a form field or button the agent may fill or click.
type Control struct {
	Tag         string `json:"tag"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
}

// Selector returns a CSS selector that targets the control.
func (c Control) Selector() string {
	switch {
	case c.ID != "":
		return "#" + c.ID
	case c.Name != "":
		return fmt.Sprintf(`%s[name="%s"]`, c.Tag, c.Name)
	case c.Tag == "button" && c.Label != "":
		return fmt.Sprintf(`button:has-text("%s")`, c.Label)
	case c.Type != "":
		return fmt.Sprintf(`%s[type="%s"]`, c.Tag, c.Type)
	default:
		return c.Tag
	}
}

// Observation is a compact, text-only view of a page for the agent.
type Observation struct {
	URL       string
	Title     string
	Text      string
	Links     []Link
	Controls  []Control
	Truncated bool
}

// Observe parses rawHTML into an Observation. Scripts, styles and other
// non-content elements are dropped; block elements become line breaks.
func Observe(rawHTML, pageURL string, maxLength int) (*Observation, error) {
	if maxLength <= 0 {
		maxLength = DefaultObserveLength
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)
	w := &observer{base: base, max: maxLength}
	w.walk(doc)

	return &Observation{
		URL:       pageURL,
		Title:     extractTitle(doc),
		Text:      collapseBlankLines(w.text.String()),
		Links:     w.links,
		Controls:  w.controls,
		Truncated: w.truncated,
	}, nil
}

// Render formats the observation as the agent sees it.
func (o *Observation) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", o.URL)
	if o.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", o.Title)
	}

	b.WriteString("\nPage text:\n")
	b.WriteString(o.Text)
	if o.Truncated {
		b.WriteString("\n[Page text truncated]")
	}
	b.WriteString("\n")

	if len(o.Controls) > 0 {
		b.WriteString("\nForm controls:\n")
		for _, c := range o.Controls {
			desc := c.Label
			if desc == "" {
				desc = c.Placeholder
			}
			fmt.Fprintf(&b, "- %s %s\n", c.Selector(), desc)
		}
	}

	if len(o.Links) > 0 {
		b.WriteString("\nLinks:\n")
		for _, l := range o.Links {
			fmt.Fprintf(&b, "- [%s](%s)\n", l.Text, l.Href)
		}
	}
	return b.String()
}

type observer struct {
	base      *url.URL
	max       int
	text      strings.Builder
	links     []Link
	controls  []Control
	truncated bool
}

func (w *observer) walk(n *html.Node) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		switch tag {
		case "a":
			w.addLink(n)
		case "input", "textarea", "select", "button":
			w.addControl(n, tag)
		case "br":
			w.write("\n")
		}
		if isBlockElement(tag) {
			w.write("\n")
			defer w.write("\n")
		}
	}
	if n.Type == html.TextNode {
		if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
			w.write(t + " ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *observer) write(s string) {
	if w.truncated {
		return
	}
	if remaining := w.max - w.text.Len(); len(s) > remaining {
		w.text.WriteString(strings.ToValidUTF8(s[:remaining], ""))
		w.truncated = true
		return
	}
	w.text.WriteString(s)
}

func (w *observer) addLink(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return
	}
	if w.base != nil {
		if ref, err := url.Parse(href); err == nil {
			href = w.base.ResolveReference(ref).String()
		}
	}
	text := strings.Join(strings.Fields(nodeText(n)), " ")
	if text == "" {
		text = attr(n, "aria-label")
	}
	w.links = append(w.links, Link{Text: text, Href: href})
}

func (w *observer) addControl(n *html.Node, tag string) {
	typ := strings.ToLower(attr(n, "type"))
	if typ == "hidden" {
		return
	}
	label := attr(n, "aria-label")
	if tag == "button" {
		label = strings.Join(strings.Fields(nodeText(n)), " ")
	}
	if tag == "input" && (typ == "submit" || typ == "button") && label == "" {
		label = attr(n, "value")
	}
	w.controls = append(w.controls, Control{
		Tag:         tag,
		Type:        typ,
		Name:        attr(n, "name"),
		ID:          attr(n, "id"),
		Placeholder: attr(n, "placeholder"),
		Label:       label,
	})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		if c.Type == html.ElementNode && isSkippedElement(strings.ToLower(c.Data)) {
			return
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)
	return b.String()
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// isSkippedElement returns true for elements that carry no readable content
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "head":
		return true
	}
	return false
}

// isBlockElement returns true for elements rendered on their own line
func isBlockElement(tagName string) bool {
	switch tagName {
	case "div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr",
		"form", "fieldset", "blockquote", "pre", "dl", "dt", "dd":
		return true
	}
	return false
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}
