package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	Create(ctx context.Context, exec sqlx.ExtContext, group *models.Group) error
}

// GroupService manages student groups.
type GroupService struct {
	repo      groupRepository
	validator *validator.Validate
}

// NewGroupService constructs a GroupService.
func NewGroupService(repo groupRepository, validate *validator.Validate) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{repo: repo, validator: validate}
}

// List returns groups, optionally for one program and term.
func (s *GroupService) List(ctx context.Context, query dto.GroupQuery) ([]models.Group, error) {
	groups, err := s.repo.List(ctx, models.GroupFilter{Program: strings.TrimSpace(query.Program), Term: strings.TrimSpace(query.Term)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Create registers a group.
func (s *GroupService) Create(ctx context.Context, req dto.CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid group payload")
	}
	group := &models.Group{
		Name:    strings.TrimSpace(req.Name),
		Program: strings.TrimSpace(req.Program),
		Term:    strings.TrimSpace(req.Term),
	}
	if err := s.repo.Create(ctx, nil, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}
