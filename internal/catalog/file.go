package catalog

import "github.com/auditportal/auditportal/internal/models"

// File is an uploaded document with its category field already split.
type File struct {
	ID         int64
	Filename   string
	Status     string
	BlobPath   string
	UploadedAt string
	Comment    string
	Username   string
	Categories []string
}

// FromRecord converts a wire record into a File.
func FromRecord(r models.FileRecord) *File {
	return &File{
		ID:         r.ID,
		Filename:   r.Filename,
		Status:     r.Status,
		BlobPath:   r.BlobPath,
		UploadedAt: r.UploadedAt,
		Comment:    r.Comment,
		Username:   r.Username,
		Categories: SplitCategories(r.Category),
	}
}

// FromRecords converts records, preserving input order.
func FromRecords(records []models.FileRecord) []*File {
	out := make([]*File, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}
