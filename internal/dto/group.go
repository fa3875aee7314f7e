package dto

// CreateGroupRequest registers a group outside of generation.
type CreateGroupRequest struct {
	Name    string `json:"name" validate:"required,max=160"`
	Program string `json:"program" validate:"omitempty,max=120"`
	Term    string `json:"term" validate:"omitempty,max=32"`
}

// GroupQuery filters group listings.
type GroupQuery struct {
	Program string `form:"program"`
	Term    string `form:"term"`
}
