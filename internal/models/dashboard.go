package models

// DashboardStats mirrors the counters shown on the audit dashboard.
type DashboardStats struct {
	TotalRequired     int `json:"TotalRequired"`
	CountMissing      int `json:"CountMissing"`
	CountPending      int `json:"CountPending"`
	CountApproved     int `json:"CountApproved"`
	CountActionNeeded int `json:"CountActionNeeded"`
}

// MissingDocument is a required category with no accepted upload yet.
type MissingDocument struct {
	CategoryName string  `json:"CategoryName"`
	DueDate      *string `json:"DueDate"`
	Comment      *string `json:"comment"`
}

// Dashboard is the response of GET /api/dashboard/stats.
type Dashboard struct {
	Stats        DashboardStats    `json:"stats"`
	MissingFiles []MissingDocument `json:"missingFiles"`
}
