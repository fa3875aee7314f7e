package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
	Update(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string, subjectIDs []string) error
	ReplaceAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID string, weekdays []int) error
}

type subjectLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
}

// TeacherServiceConfig tunes teacher defaults.
type TeacherServiceConfig struct {
	DefaultMaxHoursPerDay int
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	subjects  subjectLookup
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TeacherServiceConfig
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, subjects subjectLookup, tx txProvider, validate *validator.Validate, logger *zap.Logger, cfg TeacherServiceConfig) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxHoursPerDay <= 0 {
		cfg.DefaultMaxHoursPerDay = 8
	}
	return &TeacherService{repo: repo, subjects: subjects, tx: tx, validator: validate, logger: logger, cfg: cfg}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, query dto.TeacherQuery) ([]models.Teacher, *models.Pagination, error) {
	filter := models.TeacherFilter{
		Search:    strings.TrimSpace(query.Search),
		SubjectID: query.SubjectID,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher with subjects and availability.
func (s *TeacherService) Create(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher, err := s.buildTeacher(ctx, "", req)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, teacher); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
		}
		return s.writeRelations(ctx, tx, teacher)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.Int("subjects", len(teacher.SubjectIDs)))
	return teacher, nil
}

// Update replaces a teacher's fields, subjects and availability.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher, err := s.buildTeacher(ctx, id, req)
	if err != nil {
		return nil, err
	}
	teacher.ID = existing.ID
	teacher.CreatedAt = existing.CreatedAt

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, teacher); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
		}
		return s.writeRelations(ctx, tx, teacher)
	})
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

// Import bulk-creates teachers from CSV. Rows that fail are reported by line and skipped.
func (s *TeacherService) Import(ctx context.Context, r io.Reader) (*dto.TeacherImportResult, error) {
	rows, rowErrors, err := newTeacherImporter(s.subjects).Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	result := &dto.TeacherImportResult{TeacherIDs: []string{}, Errors: rowErrors}
	for _, row := range rows {
		teacher, err := s.Create(ctx, row.Request)
		if err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Line: row.Line, Message: appErrors.FromError(err).Message})
			continue
		}
		result.Imported++
		result.TeacherIDs = append(result.TeacherIDs, teacher.ID)
	}
	sort.SliceStable(result.Errors, func(i, j int) bool { return result.Errors[i].Line < result.Errors[j].Line })
	s.logger.Info("teacher import finished", zap.Int("imported", result.Imported), zap.Int("failed", len(result.Errors)))
	return result, nil
}

func (s *TeacherService) buildTeacher(ctx context.Context, excludeID string, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	subjectIDs := lo.Uniq(lo.Compact(req.SubjectIDs))
	if len(subjectIDs) > 0 {
		found, err := s.subjects.FindByIDs(ctx, subjectIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
		}
		if len(found) != len(subjectIDs) {
			known := lo.SliceToMap(found, func(subject models.Subject) (string, bool) { return subject.ID, true })
			missing := lo.Filter(subjectIDs, func(id string, _ int) bool { return !known[id] })
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subjects: "+strings.Join(missing, ", "))
		}
	}

	days := lo.Uniq(req.AvailableDays)
	sort.Ints(days)

	maxPerDay := s.cfg.DefaultMaxHoursPerDay
	if req.MaxHoursPerDay != nil {
		maxPerDay = *req.MaxHoursPerDay
	}
	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		trimmed := strings.TrimSpace(*req.Phone)
		phone = &trimmed
	}

	return &models.Teacher{
		Name:            strings.TrimSpace(req.Name),
		Email:           email,
		Phone:           phone,
		MaxHoursPerDay:  maxPerDay,
		MaxHoursPerWeek: req.MaxHoursPerWeek,
		SubjectIDs:      subjectIDs,
		AvailableDays:   days,
	}, nil
}

func (s *TeacherService) writeRelations(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	if err := s.repo.ReplaceSubjects(ctx, tx, teacher.ID, teacher.SubjectIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save teacher subjects")
	}
	if err := s.repo.ReplaceAvailability(ctx, tx, teacher.ID, teacher.AvailableDays); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save teacher availability")
	}
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
