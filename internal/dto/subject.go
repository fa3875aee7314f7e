package dto

// SubjectRequest creates or updates a subject.
type SubjectRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	HoursPerWeek int     `json:"hoursPerWeek" validate:"required,min=1,max=40"`
	Term         *string `json:"term" validate:"omitempty,max=32"`
}

// SubjectQuery filters subject listings.
type SubjectQuery struct {
	Term      string `form:"term"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}
