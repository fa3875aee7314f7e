package models

import "time"

// Teacher represents an instructor who can be scheduled.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	MaxHoursPerDay  int       `db:"max_hours_per_day" json:"max_hours_per_day"`
	MaxHoursPerWeek *int      `db:"max_hours_per_week" json:"max_hours_per_week,omitempty"`
	SubjectIDs      []string  `db:"-" json:"subject_ids"`
	AvailableDays   []int     `db:"-" json:"available_days"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TeacherSubject links a teacher to a subject they may teach.
type TeacherSubject struct {
	TeacherID string `db:"teacher_id"`
	SubjectID string `db:"subject_id"`
}

// TeacherAvailability is one weekday (0 Monday .. 5 Saturday) a teacher can work.
type TeacherAvailability struct {
	TeacherID string `db:"teacher_id"`
	Weekday   int    `db:"weekday"`
}
