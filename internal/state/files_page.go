// Package state holds the view state of the Files page: the reconciled
// snapshot, the active filter, expansion and the load lifecycle.
package state

import (
	"fmt"
	"sync"

	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/services"
)

// FilesPage is the state behind one Files view. It is safe for concurrent
// use. Loads are tracked by generation: only the result of the most
// recently begun load is applied, and nothing is applied after Close.
type FilesPage struct {
	mu sync.RWMutex

	snapshot *catalog.Snapshot
	view     *catalog.ViewState
	filter   catalog.Filter
	gate     *catalog.Gate

	latest  uint64
	loading bool
	closed  bool
	errs    []error
	degrade []string
}

// NewFilesPage creates an empty page. gate decides which files may be viewed.
func NewFilesPage(gate *catalog.Gate) *FilesPage {
	return &FilesPage{
		snapshot: catalog.Empty(),
		view:     catalog.NewViewState(),
		gate:     gate,
	}
}

// BeginLoad marks generation as the load whose result is awaited.
func (p *FilesPage) BeginLoad(generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.latest = generation
	p.loading = true
}

// ApplyLoad installs a finished load. It returns false and changes nothing
// when the page is closed or a newer load has begun since.
func (p *FilesPage) ApplyLoad(l *services.Loaded) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || l == nil || l.Generation != p.latest {
		return false
	}
	p.snapshot = l.Snapshot
	p.errs = l.Errors()
	p.degrade = l.Degraded()
	p.loading = false
	return true
}

// Close tears the page down. Pending loads are discarded.
func (p *FilesPage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.loading = false
}

func (p *FilesPage) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *FilesPage) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Errors returns the feed errors of the applied load.
func (p *FilesPage) Errors() []error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]error(nil), p.errs...)
}

// Degraded names the feeds that failed in the applied load.
func (p *FilesPage) Degraded() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.degrade...)
}

// Snapshot returns the applied snapshot. It must not be modified.
func (p *FilesPage) Snapshot() *catalog.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Visible returns the blocks passing the current filter, in name order.
func (p *FilesPage) Visible() []catalog.Block {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter.Apply(p.snapshot)
}

// Counts returns the tab badge counts. They ignore the filter.
func (p *FilesPage) Counts() catalog.TabCounts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return catalog.CountTabs(p.snapshot)
}

func (p *FilesPage) Filter() catalog.Filter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter
}

// SetTab selects a tab by key or status literal.
func (p *FilesPage) SetTab(key string) error {
	tab, ok := catalog.TabByKey(key)
	if !ok {
		return fmt.Errorf("unknown tab %q", key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter.Status = tab.Status
	return nil
}

// Tab returns the selected tab.
func (p *FilesPage) Tab() catalog.Tab {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tab, _ := catalog.TabByKey(p.filter.Status)
	return tab
}

func (p *FilesPage) SetSearch(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter.Search = text
}

// SetCategory restricts the view to one exact category name; "" clears it.
func (p *FilesPage) SetCategory(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter.Category = name
}

// Toggle flips the expansion of one category and returns the new state.
func (p *FilesPage) Toggle(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view.Toggle(name)
}

func (p *FilesPage) Expanded(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view.Expanded(name)
}

// ExpandAll sets the expansion of every visible category.
func (p *FilesPage) ExpandAll(expanded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	blocks := p.filter.Apply(p.snapshot)
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.Name
	}
	p.view.SetAll(names, expanded)
}

// CanView reports whether the View action is enabled for f.
func (p *FilesPage) CanView(f *catalog.File) bool {
	return p.gate.CanView(f)
}
