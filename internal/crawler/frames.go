package crawler

import (
	"strings"

	"golang.org/x/net/html"
)

// FrameSources returns the non-empty src attribute of every frame element,
// followed by every iframe element, in document order. Only start tags are
// inspected, so a frame outside a frameset is still found.
func FrameSources(doc string) []string {
	var frames, iframes []string

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return append(frames, iframes...)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			var dst *[]string
			switch string(name) {
			case "frame":
				dst = &frames
			case "iframe":
				dst = &iframes
			default:
				continue
			}
			if src := tagAttr(z, "src"); src != "" {
				*dst = append(*dst, src)
			}
		}
	}
}

// tagAttr returns the value of the named attribute of the current tag.
func tagAttr(z *html.Tokenizer, name string) string {
	var value string
	for {
		key, val, more := z.TagAttr()
		if string(key) == name && value == "" {
			value = string(val)
		}
		if !more {
			return value
		}
	}
}
