package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Filter selects blocks by status tab, exact category name and free text.
// Zero values match everything. Search is used as typed, spaces included.
type Filter struct {
	Status   string
	Category string
	Search   string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Status == "" && f.Category == "" && f.Search == ""
}

func foldSearch(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Match reports whether a block passes every criterion.
func (f Filter) Match(b Block) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Category != "" && b.Name != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := foldSearch(f.Search)
	if strings.Contains(foldSearch(b.Name), q) {
		return true
	}
	for _, file := range b.Files {
		if strings.Contains(foldSearch(file.Filename), q) {
			return true
		}
	}
	return false
}

// Apply returns the matching blocks in snapshot order.
func (f Filter) Apply(s *Snapshot) []Block {
	out := make([]Block, 0, len(s.Names))
	for _, b := range s.Blocks() {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}
