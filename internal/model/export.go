package model

import "time"

// SurveyExport is the top-level JSON structure for survey result export.
type SurveyExport struct {
	ExportedAt  time.Time       `json:"exported_at"`
	CatalogHash string          `json:"catalog_hash"`
	NumItems    int             `json:"num_items"`
	Results     []SessionResult `json:"results"`
}

// SessionResult holds one completed session for export.
type SessionResult struct {
	SessionID   string          `json:"session_id"`
	Respondent  string          `json:"respondent"`
	Status      SessionStatus   `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Answers     []Answer        `json:"answers"`
	Scores      []CategoryScore `json:"scores"`
}
