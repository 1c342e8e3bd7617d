// Package catalog reconciles the master category list with the user's
// uploaded files and derives the tabbed, filterable category view.
package catalog

// Status literals as stored by the backend.
const (
	StatusPending      = "Хүлээгдэж буй"
	StatusApproved     = "Баталсан"
	StatusRejected     = "Цуцалсан"
	StatusMissingInfo  = "Шаардлага хангаагүй"
	StatusNotSubmitted = "Илгээгээгүй"
	StatusIncomplete   = "Дутуу"
	StatusNotRequired  = "Хэрэггүй"
)

// Tab is one status tab of the files view. The "all" tab has an empty Status.
type Tab struct {
	Key    string
	Label  string
	Status string
}

// AllTab matches every category.
var AllTab = Tab{Key: "all", Label: "All"}

var tabs = []Tab{
	AllTab,
	{Key: "pending", Label: "Pending", Status: StatusPending},
	{Key: "approved", Label: "Approved", Status: StatusApproved},
	{Key: "rejected", Label: "Rejected", Status: StatusRejected},
	{Key: "missing-info", Label: "Missing info", Status: StatusMissingInfo},
	{Key: "not-submitted", Label: "Not submitted", Status: StatusNotSubmitted},
	{Key: "incomplete", Label: "Incomplete", Status: StatusIncomplete},
	{Key: "not-required", Label: "Not required", Status: StatusNotRequired},
}

// Tabs returns the tabs in display order, "all" first.
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// TabByKey looks a tab up by its key or its wire literal.
func TabByKey(key string) (Tab, bool) {
	if key == "" {
		return AllTab, true
	}
	for _, t := range tabs {
		if t.Key == key || (t.Status != "" && t.Status == key) {
			return t, true
		}
	}
	return Tab{}, false
}

// IsKnownStatus reports whether s is one of the vocabulary literals.
func IsKnownStatus(s string) bool {
	if s == "" {
		return false
	}
	for _, t := range tabs {
		if t.Status == s {
			return true
		}
	}
	return false
}

// StatusLabel returns the English label for a wire literal. Unknown
// statuses are returned verbatim; an empty status renders as "-".
func StatusLabel(s string) string {
	if s == "" {
		return "-"
	}
	for _, t := range tabs {
		if t.Status == s {
			return t.Label
		}
	}
	return s
}
