package crawler

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/pgnscraper/internal/model"
)

// FileSuffixes are the href endings that mark a downloadable data file.
// Matching is case-sensitive.
var FileSuffixes = []string{
	".pgn", ".zip", ".cbv", ".cbz", ".cbf", ".7z", ".s7z", ".zz",
	".si4", ".sn4", ".sg4", ".epd", ".cbb", ".cbh", ".cbt",
	"download=1",
}

// HasFileSuffix reports whether s ends with one of FileSuffixes.
func HasFileSuffix(s string) bool {
	for _, suffix := range FileSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// ExtractFileLinks returns the href of every anchor in doc that ends with a
// file suffix. Hrefs are returned exactly as written, unresolved.
// A document the tokenizer cannot process yields an empty set.
func ExtractFileLinks(doc string) model.LinkSet {
	links, err := ParseFileLinks(doc)
	if err != nil {
		slog.Warn("failed to parse page", "error", err)
		return model.NewLinkSet()
	}
	return links
}

// ParseFileLinks is ExtractFileLinks with the parse error returned
// instead of logged. On error the returned set is empty.
func ParseFileLinks(doc string) (model.LinkSet, error) {
	z := html.NewTokenizer(strings.NewReader(doc))

	links := model.NewLinkSet()
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return model.NewLinkSet(), err
			}
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if href := string(val); href != "" && HasFileSuffix(href) {
						links.Add(href)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}
