package models

import "time"

// GenerationJobStatus tracks an asynchronous timetable generation.
type GenerationJobStatus string

const (
	GenerationJobQueued    GenerationJobStatus = "queued"
	GenerationJobRunning   GenerationJobStatus = "running"
	GenerationJobCompleted GenerationJobStatus = "completed"
	GenerationJobFailed    GenerationJobStatus = "failed"
)

// GenerationJob is the status record kept while a queued generation runs.
type GenerationJob struct {
	ID           string              `json:"id"`
	Status       GenerationJobStatus `json:"status"`
	Attempt      int                 `json:"attempt"`
	TimetableIDs []string            `json:"timetable_ids,omitempty"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
