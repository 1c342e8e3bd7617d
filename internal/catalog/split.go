package catalog

import "strings"

// CategoryDelimiter separates category names in a file's category field.
const CategoryDelimiter = ";"

// SplitCategories parses a raw category field into an ordered list of
// names. Names are trimmed, empty segments dropped, and repeated names
// kept only at their first occurrence.
func SplitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, CategoryDelimiter)
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// JoinCategories is the inverse of SplitCategories for upload payloads.
func JoinCategories(names []string) string {
	return strings.Join(names, CategoryDelimiter)
}
