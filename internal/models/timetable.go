package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for generated timetables.
type TimetableStatus string

const (
	TimetableStatusGenerated TimetableStatus = "generated"
	TimetableStatusActive    TimetableStatus = "active"
	TimetableStatusArchived  TimetableStatus = "archived"
)

// Valid reports whether s is a known status.
func (s TimetableStatus) Valid() bool {
	switch s {
	case TimetableStatusGenerated, TimetableStatusActive, TimetableStatusArchived:
		return true
	}
	return false
}

// Timetable is a persisted weekly schedule for one group.
type Timetable struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	GroupID       string          `db:"group_id" json:"group_id"`
	Program       string          `db:"program" json:"program"`
	Term          string          `db:"term" json:"term"`
	Shift         string          `db:"shift" json:"shift"`
	Status        TimetableStatus `db:"status" json:"status"`
	RequiredHours int             `db:"required_hours" json:"required_hours"`
	PlacedHours   int             `db:"placed_hours" json:"placed_hours"`
	Meta          types.JSONText  `db:"meta" json:"meta,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSummary is the list view of a timetable.
type TimetableSummary struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	GroupID         string          `db:"group_id" json:"group_id"`
	GroupName       string          `db:"group_name" json:"group_name"`
	Program         string          `db:"program" json:"program"`
	Term            string          `db:"term" json:"term"`
	Shift           string          `db:"shift" json:"shift"`
	Status          TimetableStatus `db:"status" json:"status"`
	RequiredHours   int             `db:"required_hours" json:"required_hours"`
	PlacedHours     int             `db:"placed_hours" json:"placed_hours"`
	AssignmentCount int             `db:"assignment_count" json:"assignment_count"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	Status   TimetableStatus
	Program  string
	Term     string
	GroupID  string
	Page     int
	PageSize int
}

// TimetableAssignment is one teacher teaching one subject to the group for one hour.
type TimetableAssignment struct {
	ID          string `db:"id" json:"id"`
	TimetableID string `db:"timetable_id" json:"timetable_id"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
	GroupID     string `db:"group_id" json:"group_id"`
	Weekday     int    `db:"weekday" json:"weekday"`
	StartHour   int    `db:"start_hour" json:"start_hour"`
	EndHour     int    `db:"end_hour" json:"end_hour"`
}

// AssignmentDetail joins display names onto an assignment.
type AssignmentDetail struct {
	TimetableAssignment
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	GroupName   string `db:"group_name" json:"group_name"`
}
