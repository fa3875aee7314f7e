package dto

import (
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerateTimetableRequest asks for timetables for N groups of a program term.
type GenerateTimetableRequest struct {
	TeacherIDs []string `json:"teacherIds" validate:"required,min=1,dive,required"`
	Groups     int      `json:"groups" validate:"required,min=1"`
	Shift      string   `json:"shift" validate:"omitempty,max=32"`
	Program    string   `json:"program" validate:"required,max=120"`
	Term       string   `json:"term" validate:"required,max=32"`
}

// GroupScheduleResult reports the outcome of one group's engine run.
type GroupScheduleResult struct {
	GroupName   string                      `json:"groupName"`
	GroupID     string                      `json:"groupId,omitempty"`
	TimetableID string                      `json:"timetableId,omitempty"`
	Required    int                         `json:"required"`
	Placed      int                         `json:"placed"`
	Complete    bool                        `json:"complete"`
	Passes      int                         `json:"passes"`
	Coverage    []scheduler.SubjectCoverage `json:"coverage"`
	Assignments []scheduler.Assignment      `json:"assignments,omitempty"`
}

// GenerateTimetableResponse summarises a generation or preview.
type GenerateTimetableResponse struct {
	ProposalID string                `json:"proposalId,omitempty"`
	Program    string                `json:"program"`
	Term       string                `json:"term"`
	Shift      string                `json:"shift"`
	Subjects   int                   `json:"subjects"`
	Groups     []GroupScheduleResult `json:"groups"`
	Skipped    []string              `json:"skipped,omitempty"`
}

// EnqueueTimetableResponse returns the id to poll for a queued generation.
type EnqueueTimetableResponse struct {
	JobID  string                     `json:"jobId"`
	Status models.GenerationJobStatus `json:"status"`
}

// UpdateTimetableStatusRequest moves a timetable through its lifecycle.
type UpdateTimetableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=generated active archived"`
}

// TimetableQuery filters timetable listings.
type TimetableQuery struct {
	Status   string `form:"status"`
	Program  string `form:"program"`
	Term     string `form:"term"`
	GroupID  string `form:"groupId"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// AssignmentView is an assignment rendered for people.
type AssignmentView struct {
	Weekday     int    `json:"weekday"`
	DayName     string `json:"dayName"`
	StartHour   int    `json:"startHour"`
	EndHour     int    `json:"endHour"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
}

// TimetableDetail is a timetable with its assignments.
type TimetableDetail struct {
	models.Timetable
	GroupName   string                      `json:"group_name"`
	Coverage    []scheduler.SubjectCoverage `json:"coverage,omitempty"`
	Assignments []AssignmentView            `json:"assignments"`
}

// ExportFile is a rendered timetable export.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
