package catalog

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLanguage is the collation language used when none is configured.
var DefaultLanguage = language.Mongolian

// Meta is the status and comment carried by a master category.
type Meta struct {
	Status  string
	Comment string
}

// Block is one category row of the view with every file filed under it.
type Block struct {
	Name    string
	Status  string
	Comment string
	Files   []*File
	// Master is false for names that only appear on files.
	Master bool
}

// Snapshot is the reconciled result of one load. It is immutable once built;
// Blocks share File pointers, so a file in several categories is one value.
type Snapshot struct {
	Names           []string
	Meta            map[string]Meta
	FilesByCategory map[string][]*File
	Files           []*File

	master map[string]struct{}
}

type reconcileOptions struct {
	lang language.Tag
}

// Option configures Reconcile.
type Option func(*reconcileOptions)

// WithLanguage sets the collation language for category ordering.
func WithLanguage(tag language.Tag) Option {
	return func(o *reconcileOptions) { o.lang = tag }
}

// ParseLanguage parses a BCP 47 tag, falling back to DefaultLanguage.
func ParseLanguage(s string) language.Tag {
	if s == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage
	}
	return tag
}

// Reconcile merges master categories with the categories observed on files.
//
// The name set is the union of master names and every split file name,
// sorted by the configured collation with byte order as tie-break. For a
// duplicated master name the last record's metadata wins. Files with no
// category names appear in Files but in no block.
func Reconcile(categories []Category, files []*File, opts ...Option) *Snapshot {
	o := reconcileOptions{lang: DefaultLanguage}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Snapshot{
		Meta:            make(map[string]Meta, len(categories)),
		FilesByCategory: make(map[string][]*File),
		Files:           files,
		master:          make(map[string]struct{}, len(categories)),
	}

	seen := make(map[string]struct{}, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		s.Meta[c.Name] = Meta{Status: c.Status, Comment: c.Comment}
		s.master[c.Name] = struct{}{}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}

	for _, f := range files {
		for _, name := range f.Categories {
			s.FilesByCategory[name] = append(s.FilesByCategory[name], f)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	col := collate.New(o.lang)
	sort.SliceStable(names, func(i, j int) bool {
		if c := col.CompareString(names[i], names[j]); c != 0 {
			return c < 0
		}
		return names[i] < names[j]
	})
	s.Names = names
	return s
}

// Empty returns a snapshot with no categories and no files.
func Empty() *Snapshot {
	return Reconcile(nil, nil)
}

// IsMaster reports whether name came from the master category list.
func (s *Snapshot) IsMaster(name string) bool {
	_, ok := s.master[name]
	return ok
}

// Block builds the block for name. The second result is false if the
// name is not part of the snapshot.
func (s *Snapshot) Block(name string) (Block, bool) {
	_, inMaster := s.master[name]
	_, hasFiles := s.FilesByCategory[name]
	if !inMaster && !hasFiles {
		return Block{}, false
	}
	meta := s.Meta[name]
	return Block{
		Name:    name,
		Status:  meta.Status,
		Comment: meta.Comment,
		Files:   s.FilesByCategory[name],
		Master:  inMaster,
	}, true
}

// Blocks returns one block per name, in Names order.
func (s *Snapshot) Blocks() []Block {
	out := make([]Block, 0, len(s.Names))
	for _, name := range s.Names {
		b, _ := s.Block(name)
		out = append(out, b)
	}
	return out
}

// Uncategorized returns files whose category field split to no names.
func (s *Snapshot) Uncategorized() []*File {
	var out []*File
	for _, f := range s.Files {
		if len(f.Categories) == 0 {
			out = append(out, f)
		}
	}
	return out
}

// FileByID finds a file by id.
func (s *Snapshot) FileByID(id int64) (*File, bool) {
	for _, f := range s.Files {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}
