package models

import "time"

// DashboardState is the controller lifecycle state.
type DashboardState string

const (
	DashboardUninitialized DashboardState = "uninitialized"
	DashboardLoading       DashboardState = "loading"
	DashboardReady         DashboardState = "ready"
	DashboardFailed        DashboardState = "failed"
	DashboardRedirectLogin DashboardState = "redirect_login"
)

// Notice is a user-visible message raised by a dashboard action.
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// DashboardView is the derived state rendered to the admin.
type DashboardView struct {
	State       DashboardState `json:"state"`
	Criteria    FilterCriteria `json:"criteria"`
	Cases       []CaseRecord   `json:"cases"`
	Metrics     CaseMetrics    `json:"metrics"`
	Selected    []string       `json:"selected"`
	AllSelected bool           `json:"allSelected"`
	LoadedAt    *time.Time     `json:"loadedAt,omitempty"`
	Notices     []Notice       `json:"notices,omitempty"`
}

// ExportFormat is a downloadable export encoding.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportResult describes a stored export and its download link.
type ExportResult struct {
	ID        string       `json:"id"`
	Filename  string       `json:"filename"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// SelectionRequest toggles one or all selections.
type SelectionRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// SelectAllRequest toggles the select-all flag.
type SelectAllRequest struct {
	All *bool `json:"all" validate:"required"`
}
