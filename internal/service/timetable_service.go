package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const (
	timetableCachePrefix  = "timetable:"
	timetableDetailPrefix = timetableCachePrefix + "detail:"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type timetableTeacherReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

type timetableSubjectReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type timetableGroupStore interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, exec sqlx.ExtContext, group *models.Group) error
	DeleteGenerated(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error)
}

type timetableRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	ListSummaries(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	UpdateStatus(ctx context.Context, id string, status models.TimetableStatus) error
	ArchiveByProgramTerm(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error)
}

type assignmentRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetableAssignment) error
	ListDetailed(ctx context.Context, timetableID string) ([]models.AssignmentDetail, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Invalidate(ctx context.Context, pattern string) error
	Enabled() bool
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TimetableServiceConfig tunes generation and caching.
type TimetableServiceConfig struct {
	DefaultShift    string
	MaxGroupsPerRun int
	Workers         int
	MaxPasses       int
	ExcludedTerms   []string
	ProposalTTL     time.Duration
	JobStatusTTL    time.Duration
	CacheTTL        time.Duration
}

// TimetableService generates, stores and renders group timetables.
type TimetableService struct {
	teachers    timetableTeacherReader
	subjects    timetableSubjectReader
	groups      timetableGroupStore
	timetables  timetableRepository
	assignments assignmentRepository
	tx          txProvider
	cache       timetableCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TimetableServiceConfig

	proposals *ttlStore[timetableProposal]
	jobs      *generationJobStore
	queue     jobEnqueuer
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	teachers timetableTeacherReader,
	subjects timetableSubjectReader,
	groups timetableGroupStore,
	timetables timetableRepository,
	assignments assignmentRepository,
	tx txProvider,
	cache timetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultShift == "" {
		cfg.DefaultShift = scheduler.ShiftMorning
	}
	if cfg.MaxGroupsPerRun <= 0 {
		cfg.MaxGroupsPerRun = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.JobStatusTTL <= 0 {
		cfg.JobStatusTTL = 24 * time.Hour
	}
	return &TimetableService{
		teachers:    teachers,
		subjects:    subjects,
		groups:      groups,
		timetables:  timetables,
		assignments: assignments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		proposals:   newTTLStore[timetableProposal](cfg.ProposalTTL),
		jobs:        newGenerationJobStore(cache, cfg.JobStatusTTL),
	}
}

// AttachQueue sets the queue used by Enqueue.
func (s *TimetableService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// List returns timetable summaries.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableSummary, *models.Pagination, error) {
	filter := models.TimetableFilter{
		Program:  strings.TrimSpace(query.Program),
		Term:     strings.TrimSpace(query.Term),
		GroupID:  query.GroupID,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Status != "" {
		status := models.TimetableStatus(strings.ToLower(query.Status))
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of generated, active, archived")
		}
		filter.Status = status
	}
	items, total, err := s.timetables.ListSummaries(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a timetable with named, human readable assignments.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableDetail, error) {
	key := timetableDetailPrefix + id
	if s.cache != nil {
		var cached dto.TimetableDetail
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	details, err := s.assignments.ListDetailed(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable assignments")
	}

	detail := &dto.TimetableDetail{Timetable: *timetable, Assignments: make([]dto.AssignmentView, 0, len(details))}
	if group, err := s.groups.FindByID(ctx, timetable.GroupID); err == nil {
		detail.GroupName = group.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	var meta timetableMeta
	if len(timetable.Meta) > 0 {
		if err := json.Unmarshal(timetable.Meta, &meta); err != nil {
			s.logger.Warn("timetable meta unreadable", zap.String("timetable_id", id), zap.Error(err))
		}
	}
	detail.Coverage = meta.Coverage
	for _, item := range details {
		detail.Assignments = append(detail.Assignments, assignmentView(item))
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, detail, s.cfg.CacheTTL)
	}
	return detail, nil
}

// UpdateStatus moves a timetable to generated, active or archived.
func (s *TimetableService) UpdateStatus(ctx context.Context, id string, req dto.UpdateTimetableStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid status payload")
	}
	if err := s.timetables.UpdateStatus(ctx, id, models.TimetableStatus(req.Status)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable status")
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes one timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidate(ctx, id)
	return nil
}

// DeleteAll removes timetables, optionally for one program and term, together
// with the generated groups nothing references any more.
func (s *TimetableService) DeleteAll(ctx context.Context, program, term string) (int64, error) {
	program = strings.TrimSpace(program)
	term = strings.TrimSpace(term)
	if program == "" && term != "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "program is required when term is given")
	}
	var removed int64
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		count, err := s.timetables.DeleteAll(ctx, tx, program, term)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetables")
		}
		removed = count
		if program == "" {
			return nil
		}
		if _, err := s.groups.DeleteGenerated(ctx, tx, program, term); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete generated groups")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, "")
	s.logger.Info("timetables deleted", zap.String("program", program), zap.String("term", term), zap.Int64("count", removed))
	return removed, nil
}

// Export renders a timetable as csv, pdf or xlsx.
func (s *TimetableService) Export(ctx context.Context, id, format string) (*dto.ExportFile, error) {
	parsed, ok := export.ParseFormat(format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("format %q is not supported", format))
	}
	renderer, _ := export.NewRenderer(parsed)

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	headers := []string{"Day", "Start", "End", "Subject", "Teacher"}
	dataset := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(detail.Assignments))}
	for _, item := range detail.Assignments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     item.DayName,
			"Start":   item.StartTime,
			"End":     item.EndTime,
			"Subject": item.SubjectName,
			"Teacher": item.TeacherName,
		})
	}
	title := detail.Name
	if detail.GroupName != "" && !strings.Contains(title, detail.GroupName) {
		title = fmt.Sprintf("%s (%s)", title, detail.GroupName)
	}
	content, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	return &dto.ExportFile{
		Filename:    exportFilename(detail.Name, detail.ID) + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *TimetableService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if id != "" {
		_ = s.cache.Delete(ctx, timetableDetailPrefix+id)
		return
	}
	_ = s.cache.Invalidate(ctx, timetableDetailPrefix+"*")
}

func assignmentView(item models.AssignmentDetail) dto.AssignmentView {
	return dto.AssignmentView{
		Weekday:     item.Weekday,
		DayName:     dayName(item.Weekday),
		StartHour:   item.StartHour,
		EndHour:     item.EndHour,
		StartTime:   hourLabel(item.StartHour),
		EndTime:     hourLabel(item.EndHour),
		SubjectID:   item.SubjectID,
		SubjectName: item.SubjectName,
		TeacherID:   item.TeacherID,
		TeacherName: item.TeacherName,
	}
}

func dayName(day int) string {
	if day < 0 || day >= len(dayNames) {
		return fmt.Sprintf("Day %d", day)
	}
	return dayNames[day]
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%d:00", hour)
}

func exportFilename(name, id string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "timetable_" + id
	}
	return cleaned
}
