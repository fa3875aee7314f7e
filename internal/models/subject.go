package models

import "time"

// Subject represents a course taught for a number of hours per week.
type Subject struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	RequiredHours int       `db:"hours_per_week" json:"hours_per_week"`
	Term          *string   `db:"term" json:"term,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Term      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
