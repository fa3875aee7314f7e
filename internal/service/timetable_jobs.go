package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const (
	// GenerationJobType identifies queued timetable generations.
	GenerationJobType   = "timetable.generate"
	generationJobPrefix = timetableCachePrefix + "job:"
)

// generationJobStore keeps job status in Redis when caching is on and always
// in process memory, so polling works with or without Redis.
type generationJobStore struct {
	cache timetableCache
	local *ttlStore[models.GenerationJob]
	ttl   time.Duration
}

func newGenerationJobStore(cache timetableCache, ttl time.Duration) *generationJobStore {
	return &generationJobStore{cache: cache, local: newTTLStore[models.GenerationJob](ttl), ttl: ttl}
}

func (s *generationJobStore) Save(ctx context.Context, job models.GenerationJob) {
	job.UpdatedAt = time.Now().UTC()
	s.local.Save(job.ID, job)
	if s.cache != nil && s.cache.Enabled() {
		_ = s.cache.Set(ctx, generationJobPrefix+job.ID, job, s.ttl)
	}
}

func (s *generationJobStore) Get(ctx context.Context, id string) (models.GenerationJob, bool) {
	if s.cache != nil && s.cache.Enabled() {
		var job models.GenerationJob
		if hit, err := s.cache.Get(ctx, generationJobPrefix+id, &job); err == nil && hit {
			return job, true
		}
	}
	return s.local.Get(id)
}

// Enqueue validates the request and hands it to the generation queue.
func (s *TimetableService) Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.EnqueueTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid timetable generation payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "generation queue unavailable")
	}

	var payload map[string]interface{}
	if err := mapstructure.Decode(req, &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode job payload")
	}
	now := time.Now().UTC()
	record := models.GenerationJob{ID: uuid.NewString(), Status: models.GenerationJobQueued, CreatedAt: now}
	s.jobs.Save(ctx, record)

	if err := s.queue.Enqueue(jobs.Job{ID: record.ID, Type: GenerationJobType, Payload: payload, Enqueued: now}); err != nil {
		record.Status = models.GenerationJobFailed
		record.Error = err.Error()
		s.jobs.Save(ctx, record)
		s.metrics.ObserveJob(string(models.GenerationJobFailed))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "generation queue is busy, try again later")
	}
	s.metrics.ObserveJob(string(models.GenerationJobQueued))
	return &dto.EnqueueTimetableResponse{JobID: record.ID, Status: record.Status}, nil
}

// JobStatus reports the state of a queued generation.
func (s *TimetableService) JobStatus(ctx context.Context, id string) (*models.GenerationJob, error) {
	job, ok := s.jobs.Get(ctx, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	return &job, nil
}

// HandleJob is the queue handler for generation jobs. Client errors fail the
// job at once; server errors are returned so the queue retries them.
func (s *TimetableService) HandleJob(ctx context.Context, job jobs.Job) error {
	record, ok := s.jobs.Get(ctx, job.ID)
	if !ok {
		record = models.GenerationJob{ID: job.ID, CreatedAt: job.Enqueued}
	}

	var req dto.GenerateTimetableRequest
	if err := mapstructure.Decode(job.Payload, &req); err != nil {
		s.failJob(ctx, record, err)
		return nil
	}

	record.Status = models.GenerationJobRunning
	record.Attempt = job.Attempt + 1
	s.jobs.Save(ctx, record)

	resp, err := s.Generate(ctx, req)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Status < 500 {
			s.failJob(ctx, record, err)
			return nil
		}
		return err
	}

	record.Status = models.GenerationJobCompleted
	record.Error = ""
	record.TimetableIDs = make([]string, 0, len(resp.Groups))
	for _, group := range resp.Groups {
		if group.TimetableID != "" {
			record.TimetableIDs = append(record.TimetableIDs, group.TimetableID)
		}
	}
	s.jobs.Save(ctx, record)
	s.metrics.ObserveJob(string(models.GenerationJobCompleted))
	s.logger.Info("generation job completed", zap.String("job_id", job.ID), zap.Int("timetables", len(record.TimetableIDs)))
	return nil
}

// OnJobExhausted marks a job failed once the queue gives up on it.
func (s *TimetableService) OnJobExhausted(job jobs.Job, err error) {
	ctx := context.Background()
	record, ok := s.jobs.Get(ctx, job.ID)
	if !ok {
		record = models.GenerationJob{ID: job.ID, CreatedAt: job.Enqueued}
	}
	record.Attempt = job.Attempt
	s.failJob(ctx, record, err)
}

func (s *TimetableService) failJob(ctx context.Context, record models.GenerationJob, err error) {
	record.Status = models.GenerationJobFailed
	if appErr := appErrors.FromError(err); appErr != nil {
		record.Error = appErr.Message
	}
	s.jobs.Save(ctx, record)
	s.metrics.ObserveJob(string(models.GenerationJobFailed))
	s.logger.Warn("generation job failed", zap.String("job_id", record.ID), zap.Error(err))
}
