package state

import (
	"errors"
	"testing"

	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/services"
	"github.com/auditportal/auditportal/internal/session"
)

func loaded(gen uint64, cats []models.CategoryRecord, files []models.FileRecord) *services.Loaded {
	return &services.Loaded{
		Generation: gen,
		Categories: services.Result[models.CategoryRecord]{Items: cats},
		Files:      services.Result[models.FileRecord]{Items: files},
		Snapshot:   catalog.Reconcile(catalog.NormalizeAll(cats), catalog.FromRecords(files)),
	}
}

func taxLegal(gen uint64) *services.Loaded {
	return loaded(gen,
		[]models.CategoryRecord{{CategoryName: "Tax", Status: catalog.StatusApproved}},
		[]models.FileRecord{{ID: 1, Category: "Tax;Legal", Filename: "f1.pdf", Username: "alice"}},
	)
}

func blockNames(blocks []catalog.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Name
	}
	return out
}

func signedIn(username string) *session.Session {
	s := session.New("")
	s.Token = "t"
	s.Identity.Username = username
	return s
}

func TestFilesPageApplyLoad(t *testing.T) {
	p := NewFilesPage(catalog.NewGate(signedIn("alice")))
	if got := len(p.Visible()); got != 0 {
		t.Fatalf("initial Visible() = %d blocks, want 0", got)
	}

	p.BeginLoad(1)
	if !p.Loading() {
		t.Error("Loading() should be true after BeginLoad")
	}
	if !p.ApplyLoad(taxLegal(1)) {
		t.Fatal("ApplyLoad() rejected the current generation")
	}
	if p.Loading() {
		t.Error("Loading() should be false after ApplyLoad")
	}
	if got := blockNames(p.Visible()); len(got) != 2 || got[0] != "Legal" || got[1] != "Tax" {
		t.Errorf("Visible() = %v, want [Legal Tax]", got)
	}
	if c := p.Counts(); c["all"] != 2 || c["approved"] != 1 {
		t.Errorf("Counts() = %v", c)
	}
}

func TestFilesPageStaleLoadIgnored(t *testing.T) {
	p := NewFilesPage(nil)
	p.BeginLoad(1)
	p.BeginLoad(2)

	if p.ApplyLoad(taxLegal(1)) {
		t.Error("ApplyLoad() applied a superseded generation")
	}
	if len(p.Visible()) != 0 {
		t.Error("stale load changed the page")
	}
	if !p.Loading() {
		t.Error("page should still be loading generation 2")
	}
	if !p.ApplyLoad(taxLegal(2)) {
		t.Error("ApplyLoad() rejected the latest generation")
	}
}

func TestFilesPageClosedIgnoresLoads(t *testing.T) {
	p := NewFilesPage(nil)
	p.BeginLoad(1)
	p.Close()

	if p.ApplyLoad(taxLegal(1)) {
		t.Error("ApplyLoad() applied after Close")
	}
	if !p.Closed() || p.Loading() {
		t.Errorf("Closed() = %v, Loading() = %v", p.Closed(), p.Loading())
	}
	p.BeginLoad(2)
	if p.Loading() {
		t.Error("BeginLoad() after Close should be ignored")
	}
}

func TestFilesPageFilters(t *testing.T) {
	p := NewFilesPage(nil)
	p.BeginLoad(1)
	p.ApplyLoad(taxLegal(1))

	if err := p.SetTab("approved"); err != nil {
		t.Fatalf("SetTab() error = %v", err)
	}
	if got := blockNames(p.Visible()); len(got) != 1 || got[0] != "Tax" {
		t.Errorf("approved tab = %v, want [Tax]", got)
	}
	if p.Tab().Key != "approved" {
		t.Errorf("Tab() = %+v", p.Tab())
	}
	if c := p.Counts(); c["all"] != 2 {
		t.Errorf("Counts() should ignore the filter, got %v", c)
	}

	if err := p.SetTab("bogus"); err == nil {
		t.Error("SetTab(bogus) should fail")
	}

	p.SetTab("all")
	p.SetSearch("F1")
	if got := len(p.Visible()); got != 2 {
		t.Errorf("search by filename = %d blocks, want 2", got)
	}
	p.SetCategory("Legal")
	if got := blockNames(p.Visible()); len(got) != 1 || got[0] != "Legal" {
		t.Errorf("category filter = %v, want [Legal]", got)
	}
	p.SetCategory("")
	p.SetSearch("")
	if !p.Filter().IsZero() {
		t.Errorf("Filter() = %+v, want zero", p.Filter())
	}
}

func TestFilesPageExpansionSurvivesReload(t *testing.T) {
	p := NewFilesPage(nil)
	p.BeginLoad(1)
	p.ApplyLoad(taxLegal(1))

	if !p.Toggle("Tax") {
		t.Fatal("Toggle() should expand")
	}
	p.SetSearch("legal")
	if !p.Expanded("Tax") {
		t.Error("expansion lost on filter change")
	}
	p.BeginLoad(2)
	p.ApplyLoad(taxLegal(2))
	if !p.Expanded("Tax") {
		t.Error("expansion lost on reload")
	}

	// Expand-all only touches visible names.
	p.ExpandAll(true)
	if !p.Expanded("Legal") {
		t.Error("ExpandAll(true) did not expand visible Legal")
	}
	p.ExpandAll(false)
	if p.Expanded("Legal") || !p.Expanded("Tax") {
		t.Errorf("ExpandAll(false): Legal=%v Tax=%v, want false,true", p.Expanded("Legal"), p.Expanded("Tax"))
	}
}

func TestFilesPageDegradedLoad(t *testing.T) {
	l := taxLegal(1)
	l.Files = services.Result[models.FileRecord]{Items: []models.FileRecord{}, Err: errors.New("timeout")}
	p := NewFilesPage(nil)
	p.BeginLoad(1)
	p.ApplyLoad(l)

	if got := p.Degraded(); len(got) != 1 || got[0] != "files" {
		t.Errorf("Degraded() = %v, want [files]", got)
	}
	if len(p.Errors()) != 1 {
		t.Errorf("Errors() = %v, want one", p.Errors())
	}
}

func TestFilesPageCanView(t *testing.T) {
	l := loaded(1, nil, []models.FileRecord{
		{ID: 1, Category: "Tax", Username: "alice"},
		{ID: 2, Category: "Tax", Username: "bob"},
	})
	p := NewFilesPage(catalog.NewGate(signedIn("alice")))
	p.BeginLoad(1)
	p.ApplyLoad(l)

	snap := p.Snapshot()
	f1, _ := snap.FileByID(1)
	f2, _ := snap.FileByID(2)
	if !p.CanView(f1) || p.CanView(f2) {
		t.Errorf("CanView = %v,%v, want true,false", p.CanView(f1), p.CanView(f2))
	}
	if NewFilesPage(nil).CanView(f1) {
		t.Error("page without gate should disable View")
	}
}
