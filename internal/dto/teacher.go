package dto

// CreateTeacherRequest registers a teacher with what and when they can teach.
type CreateTeacherRequest struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           *string  `json:"phone" validate:"omitempty,max=32"`
	MaxHoursPerDay  *int     `json:"maxHoursPerDay" validate:"omitempty,min=0,max=24"`
	MaxHoursPerWeek *int     `json:"maxHoursPerWeek" validate:"omitempty,min=0,max=144"`
	SubjectIDs      []string `json:"subjectIds" validate:"omitempty,dive,required"`
	AvailableDays   []int    `json:"availableDays" validate:"omitempty,dive,min=0,max=5"`
}

// UpdateTeacherRequest replaces a teacher's fields, subjects and availability.
type UpdateTeacherRequest = CreateTeacherRequest

// TeacherQuery filters teacher listings.
type TeacherQuery struct {
	Search    string `form:"search"`
	SubjectID string `form:"subjectId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ImportRowError explains why a CSV line was skipped.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// TeacherImportResult summarises a bulk import.
type TeacherImportResult struct {
	Imported   int              `json:"imported"`
	TeacherIDs []string         `json:"teacherIds"`
	Errors     []ImportRowError `json:"errors"`
}
