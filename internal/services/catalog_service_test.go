package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/auditportal/auditportal/internal/api"
	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/config"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/testutil/fakeportal"
)

type stubSource struct {
	categories    []models.CategoryRecord
	categoriesErr error
	files         []models.FileRecord
	filesErr      error

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	delay    time.Duration
	username string
}

func (s *stubSource) enter() {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()
	time.Sleep(s.delay)
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *stubSource) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	s.enter()
	return s.categories, s.categoriesErr
}

func (s *stubSource) ListFiles(ctx context.Context, username string) ([]models.FileRecord, error) {
	s.enter()
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
	return s.files, s.filesErr
}

func TestCatalogServiceLoad(t *testing.T) {
	src := &stubSource{
		categories: []models.CategoryRecord{{CategoryName: "Tax", Status: catalog.StatusApproved}},
		files:      []models.FileRecord{{ID: 1, Category: "Tax;Legal", Filename: "f1.pdf", Username: "alice"}},
		delay:      20 * time.Millisecond,
	}
	svc := NewCatalogService(src, nil, nil, catalog.DefaultLanguage)

	got := svc.Load(context.Background(), "alice")
	if got.Generation != 1 {
		t.Errorf("Generation = %d, want 1", got.Generation)
	}
	if len(got.Degraded()) != 0 {
		t.Errorf("Degraded() = %v, want none", got.Degraded())
	}
	if strings.Join(got.Snapshot.Names, ",") != "Legal,Tax" {
		t.Errorf("Names = %v, want [Legal Tax]", got.Snapshot.Names)
	}
	if src.username != "alice" {
		t.Errorf("files requested for %q, want alice", src.username)
	}
	if src.maxSeen != 2 {
		t.Errorf("max concurrent fetches = %d, want 2", src.maxSeen)
	}
	if next := svc.Load(context.Background(), "alice"); next.Generation != 2 {
		t.Errorf("second Generation = %d, want 2", next.Generation)
	}
}

func TestCatalogServiceDegrades(t *testing.T) {
	catErr := errors.New("categories down")
	src := &stubSource{
		categoriesErr: catErr,
		files:         []models.FileRecord{{ID: 1, Category: "Legal", Filename: "f1.pdf", Username: "alice"}},
	}
	bus := events.NewEventBus(8)
	defer bus.Close()
	ch := bus.Subscribe(events.EventCatalogLoaded)

	got := NewCatalogService(src, bus, nil, catalog.DefaultLanguage).Load(context.Background(), "alice")
	if !got.Categories.Failed() || !errors.Is(got.Categories.Err, catErr) {
		t.Errorf("Categories = %+v, want failed with %v", got.Categories, catErr)
	}
	if got.Categories.Items == nil || len(got.Categories.Items) != 0 {
		t.Errorf("Categories.Items = %v, want empty slice", got.Categories.Items)
	}
	if got.Files.Failed() {
		t.Errorf("Files should not fail: %v", got.Files.Err)
	}
	if strings.Join(got.Snapshot.Names, ",") != "Legal" {
		t.Errorf("Names = %v, want [Legal]", got.Snapshot.Names)
	}
	if d := got.Degraded(); len(d) != 1 || d[0] != "categories" {
		t.Errorf("Degraded() = %v, want [categories]", d)
	}
	if len(got.Errors()) != 1 {
		t.Errorf("Errors() = %v, want one", got.Errors())
	}

	ev := (<-ch).(*events.CatalogEvent)
	if ev.Categories != 1 || ev.Files != 1 || len(ev.Degraded) != 1 {
		t.Errorf("loaded event = %+v", ev)
	}
}

func TestCatalogServiceBothFeedsFail(t *testing.T) {
	src := &stubSource{categoriesErr: errors.New("a"), filesErr: errors.New("b")}
	got := NewCatalogService(src, nil, nil, catalog.DefaultLanguage).Load(context.Background(), "alice")
	if len(got.Snapshot.Names) != 0 || len(got.Snapshot.Files) != 0 {
		t.Errorf("snapshot = %+v, want empty", got.Snapshot)
	}
	if d := got.Degraded(); strings.Join(d, ",") != "categories,files" {
		t.Errorf("Degraded() = %v", d)
	}
}

func TestCatalogServiceAgainstBackend(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.SetCategories([]models.CategoryRecord{{CategoryName: "Tax"}})
	srv.SetFiles([]models.FileRecord{{ID: 3, Category: "Tax", Filename: "a.pdf", Username: "bob"}})
	srv.Override("GET", "/api/categories", 200, `{"not":"an array"}`)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	client, err := api.NewClient(cfg, srv.IssueToken("bob"), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got := NewCatalogService(client, nil, nil, catalog.DefaultLanguage).Load(context.Background(), "bob")
	if !errors.Is(got.Categories.Err, api.ErrUnexpectedShape) {
		t.Errorf("Categories.Err = %v, want ErrUnexpectedShape", got.Categories.Err)
	}
	if got.Snapshot.IsMaster("Tax") {
		t.Error("Tax should be file-only after the categories feed degraded")
	}
	if b, ok := got.Snapshot.Block("Tax"); !ok || len(b.Files) != 1 {
		t.Errorf("Block(Tax) = %+v, %v", b, ok)
	}
}

func TestCatalogServiceKeepsValidRecords(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.Override("GET", "/api/categories", 200,
		`[{"CategoryName":"Tax","status":"Баталсан"},{"CategoryName":42}]`)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	client, err := api.NewClient(cfg, srv.IssueToken("bob"), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got := NewCatalogService(client, nil, nil, catalog.DefaultLanguage).Load(context.Background(), "bob")
	if !errors.Is(got.Categories.Err, api.ErrUnexpectedShape) {
		t.Errorf("Categories.Err = %v, want ErrUnexpectedShape", got.Categories.Err)
	}
	if !got.Snapshot.IsMaster("Tax") {
		t.Error("Tax dropped because a sibling record was malformed")
	}
	if b, ok := got.Snapshot.Block("Tax"); !ok || b.Status != catalog.StatusApproved {
		t.Errorf("Block(Tax) = %+v, %v", b, ok)
	}
}
