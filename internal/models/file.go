package models

// CategoryRecord is one entry of the master category list from /api/categories.
// Status and Comment are optional on the wire.
type CategoryRecord struct {
	CategoryName string `json:"CategoryName"`
	Status       string `json:"status,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

// FileRecord is one uploaded document as returned by /api/files.
// Category is the raw, semicolon-joined list of category names; it is only
// interpreted by the catalog package.
type FileRecord struct {
	ID         int64  `json:"id"`
	Category   string `json:"category"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	BlobPath   string `json:"blobPath"`
	UploadedAt string `json:"uploadedAt"`
	Comment    string `json:"comment,omitempty"`
	Username   string `json:"username"`
}

// FileURLResponse is the response of /api/files/url.
type FileURLResponse struct {
	URL string `json:"url"`
}

// UploadResponse is the loosely-typed acknowledgement from /api/files/upload.
type UploadResponse struct {
	Message  string `json:"message,omitempty"`
	ID       int64  `json:"id,omitempty"`
	BlobPath string `json:"blobPath,omitempty"`
}

// TemplateFile is a downloadable template or report entry.
// Size, LastModified and DownloadURL are optional for reports.
type TemplateFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         *int64 `json:"size,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

// Downloadable reports whether the entry carries a download URL.
func (t TemplateFile) Downloadable() bool {
	return t.DownloadURL != ""
}
