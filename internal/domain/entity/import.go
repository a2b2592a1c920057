package entity

import "time"

// Import kind constants
const (
	ImportKindStudents = "students"
	ImportKindFaculty  = "faculty"
)

// Import status constants
const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusError      = "error"
)

// ImportJob tracks one bulk roster upload. Rows are queued individually and
// consumed by the import worker; counters advance one row at a time until
// Processed reaches Total.
type ImportJob struct {
	ID            string        `json:"id"`
	InstitutionID string        `json:"institution_id"`
	Kind          string        `json:"kind"`
	Total         int           `json:"total"`
	Processed     int           `json:"processed"`
	Success       int           `json:"success"`
	Failed        int           `json:"failed"`
	Status        string        `json:"status"`
	Errors        []ImportError `json:"errors,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ImportError records why one roster row failed
type ImportError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportRow is the unit queued for the worker, one per roster row
type ImportRow struct {
	ImportID      string            `json:"import_id"`
	InstitutionID string            `json:"institution_id"`
	Kind          string            `json:"kind"`
	RowNumber     int               `json:"row_number"`
	Record        map[string]string `json:"record"`
}
