package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type groupService interface {
	List(ctx context.Context, query dto.GroupQuery) ([]models.Group, error)
	Create(ctx context.Context, req dto.CreateGroupRequest) (*models.Group, error)
}

// GroupHandler exposes group endpoints.
type GroupHandler struct {
	service groupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(svc groupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// List godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Param program query string false "Program"
// @Param term query string false "Term"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	query, ok := bindQuery[dto.GroupQuery](c)
	if !ok {
		return
	}
	groups, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Create godoc
// @Summary Create group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body dto.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	req, ok := bindJSON[dto.CreateGroupRequest](c, "invalid payload")
	if !ok {
		return
	}
	group, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}
