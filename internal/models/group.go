package models

import "time"

// Group is a cohort of students that receives one timetable. Generated marks
// groups created by timetable generation.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Program   string    `db:"program" json:"program"`
	Term      string    `db:"term" json:"term"`
	Generated bool      `db:"generated" json:"generated"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupFilter narrows group listings.
type GroupFilter struct {
	Program string
	Term    string
}
