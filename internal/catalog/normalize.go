package catalog

import "github.com/auditportal/auditportal/internal/models"

// Category is a normalized master category.
type Category struct {
	Name    string
	Status  string
	Comment string
}

// Normalize maps a wire record to a Category. A record without a
// CategoryName yields a category with an empty name.
func Normalize(r models.CategoryRecord) Category {
	return Category{
		Name:    r.CategoryName,
		Status:  r.Status,
		Comment: r.Comment,
	}
}

// NormalizeAll normalizes records, preserving order.
func NormalizeAll(records []models.CategoryRecord) []Category {
	out := make([]Category, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r))
	}
	return out
}
