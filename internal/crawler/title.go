package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageTitle returns the whitespace-collapsed text of the page's <title>,
// or of its first <h1> when the title is missing or blank.
func PageTitle(doc string) string {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	if title := collapse(d.Find("title").First().Text()); title != "" {
		return title
	}
	return collapse(d.Find("h1").First().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
