// Package services holds the front-end independent operations shared by
// the CLI commands and the interactive views.
package services

import (
	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/models"
)

// Result is the outcome of one feed. When Err is set the feed failed or
// held malformed records; Items holds whatever could be read, possibly
// nothing.
type Result[T any] struct {
	Items []T
	Err   error
}

// Failed reports whether the feed degraded.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Loaded is the joined outcome of one catalog load.
type Loaded struct {
	Generation uint64
	Categories Result[models.CategoryRecord]
	Files      Result[models.FileRecord]
	Snapshot   *catalog.Snapshot
}

// Degraded names the feeds that failed, in a fixed order.
func (l *Loaded) Degraded() []string {
	var out []string
	if l.Categories.Failed() {
		out = append(out, "categories")
	}
	if l.Files.Failed() {
		out = append(out, "files")
	}
	return out
}

// Errors returns the feed errors, if any.
func (l *Loaded) Errors() []error {
	var out []error
	if l.Categories.Err != nil {
		out = append(out, l.Categories.Err)
	}
	if l.Files.Err != nil {
		out = append(out, l.Files.Err)
	}
	return out
}

// UploadItem is one local file to upload. Either Categories or
// DocumentName must be set.
type UploadItem struct {
	Path         string
	Categories   []string
	DocumentName string
}

// Destination is what the file is uploaded into, for display.
func (i UploadItem) Destination() []string {
	if len(i.Categories) > 0 {
		return i.Categories
	}
	if i.DocumentName != "" {
		return []string{i.DocumentName}
	}
	return nil
}

// UploadOutcome is the per-file result of an upload batch.
type UploadOutcome struct {
	Item    UploadItem
	ID      int64
	Size    int64
	Skipped bool
	Err     error
}
