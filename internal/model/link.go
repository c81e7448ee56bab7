package model

import "sort"

// LinkSet is a set of candidate file URLs discovered on a page.
// Values are kept exactly as they appeared in the href or src attribute,
// which means they may be relative.
type LinkSet map[string]struct{}

// NewLinkSet returns a LinkSet holding the given links.
func NewLinkSet(links ...string) LinkSet {
	s := make(LinkSet, len(links))
	for _, l := range links {
		s.Add(l)
	}
	return s
}

// Add inserts link into the set.
func (s LinkSet) Add(link string) {
	s[link] = struct{}{}
}

// Contains reports whether link is in the set.
func (s LinkSet) Contains(link string) bool {
	_, ok := s[link]
	return ok
}

// Union adds every element of other to s.
func (s LinkSet) Union(other LinkSet) {
	for l := range other {
		s[l] = struct{}{}
	}
}

// Len returns the number of links in the set.
func (s LinkSet) Len() int {
	return len(s)
}

// Sorted returns the links in lexical order.
// The set itself carries no order; this is for stable logs and reports.
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
