package scheduler

import "errors"

// Weekdays are encoded 0 (Monday) to 5 (Saturday).
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DefaultWeekdays applies to teachers without configured availability.
var DefaultWeekdays = []int{Monday, Tuesday, Wednesday, Thursday, Friday}

// ErrMalformedInput marks structurally invalid run input.
var ErrMalformedInput = errors.New("malformed scheduling input")

// Teacher is a read-only view of a teacher for one run. A nil AvailableDays
// means availability was never configured; a nil cap means no cap.
type Teacher struct {
	ID              string
	Name            string
	SubjectIDs      []string
	AvailableDays   []int
	MaxHoursPerDay  *int
	MaxHoursPerWeek *int
}

// Subject requires RequiredHours one-hour units per week for the group.
type Subject struct {
	ID            string
	Name          string
	RequiredHours int
	Term          string
}

// Group is the cohort receiving the timetable.
type Group struct {
	ID   string
	Name string
}

// Assignment is one committed placement.
type Assignment struct {
	TeacherID string `json:"teacherId"`
	SubjectID string `json:"subjectId"`
	GroupID   string `json:"groupId"`
	Day       int    `json:"day"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
}

// SubjectCoverage reports placed versus required hours for a subject.
type SubjectCoverage struct {
	SubjectID        string `json:"subjectId"`
	SubjectName      string `json:"subjectName,omitempty"`
	Required         int    `json:"required"`
	Placed           int    `json:"placed"`
	Shortfall        int    `json:"shortfall"`
	EligibleTeachers int    `json:"eligibleTeachers"`
}

// Result is the outcome of one engine run.
type Result struct {
	GroupID     string            `json:"groupId"`
	Shift       ShiftWindow       `json:"shift"`
	Assignments []Assignment      `json:"assignments"`
	Coverage    []SubjectCoverage `json:"coverage"`
	Required    int               `json:"required"`
	Placed      int               `json:"placed"`
	Passes      int               `json:"passes"`
}

// Complete reports whether every required hour was placed.
func (r *Result) Complete() bool {
	return r != nil && r.Placed == r.Required
}

// Shortfall is the number of required hours left unplaced.
func (r *Result) Shortfall() int {
	if r == nil {
		return 0
	}
	return r.Required - r.Placed
}

// Slot is a (day, hour) pair.
type Slot struct {
	Day  int
	Hour int
}

// IntPtr is a helper for building teacher caps.
func IntPtr(v int) *int {
	return &v
}
