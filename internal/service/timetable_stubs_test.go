package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

type mockGroupStore struct {
	items         map[string]*models.Group
	created       []models.Group
	deleteCalls   []archiveCall
	deletedGroups []string
}

func (m *mockGroupStore) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	var out []models.Group
	for _, group := range m.created {
		if filter.Program != "" && group.Program != filter.Program {
			continue
		}
		out = append(out, group)
	}
	return out, nil
}

func (m *mockGroupStore) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if group, ok := m.items[id]; ok {
		cp := *group
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupStore) Create(ctx context.Context, exec sqlx.ExtContext, group *models.Group) error {
	if m.items == nil {
		m.items = make(map[string]*models.Group)
	}
	if group.ID == "" {
		group.ID = fmt.Sprintf("group-%d", len(m.created)+1)
	}
	cp := *group
	m.items[group.ID] = &cp
	m.created = append(m.created, cp)
	return nil
}

// DeleteGenerated mirrors the repository filter: generated groups of program,
// optionally narrowed to term.
func (m *mockGroupStore) DeleteGenerated(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	m.deleteCalls = append(m.deleteCalls, archiveCall{Program: program, Term: term})
	var removed int64
	for id, group := range m.items {
		if !group.Generated || group.Program != program || (term != "" && group.Term != term) {
			continue
		}
		delete(m.items, id)
		m.deletedGroups = append(m.deletedGroups, group.Name)
		removed++
	}
	sort.Strings(m.deletedGroups)
	return removed, nil
}

type archiveCall struct {
	Program string
	Term    string
}

type mockTimetableRepo struct {
	items      map[string]*models.Timetable
	created    []models.Timetable
	summaries  []models.TimetableSummary
	archived   []archiveCall
	deleteAll  []archiveCall
	findCalls  int
	lastFilter models.TimetableFilter
}

func (m *mockTimetableRepo) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if m.items == nil {
		m.items = make(map[string]*models.Timetable)
	}
	timetable.ID = fmt.Sprintf("tt-%d", len(m.created)+1)
	cp := *timetable
	m.items[timetable.ID] = &cp
	m.created = append(m.created, cp)
	return nil
}

func (m *mockTimetableRepo) ListSummaries(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error) {
	m.lastFilter = filter
	return m.summaries, len(m.summaries), nil
}

func (m *mockTimetableRepo) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	m.findCalls++
	if timetable, ok := m.items[id]; ok {
		cp := *timetable
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus) error {
	timetable, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	timetable.Status = status
	return nil
}

func (m *mockTimetableRepo) ArchiveByProgramTerm(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	m.archived = append(m.archived, archiveCall{Program: program, Term: term})
	return 0, nil
}

func (m *mockTimetableRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockTimetableRepo) DeleteAll(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	m.deleteAll = append(m.deleteAll, archiveCall{Program: program, Term: term})
	return int64(len(m.items)), nil
}

type mockAssignmentRepo struct {
	inserted map[string][]models.TimetableAssignment
	details  map[string][]models.AssignmentDetail
}

func (m *mockAssignmentRepo) InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetableAssignment) error {
	if m.inserted == nil {
		m.inserted = make(map[string][]models.TimetableAssignment)
	}
	for _, assignment := range assignments {
		m.inserted[assignment.TimetableID] = append(m.inserted[assignment.TimetableID], assignment)
	}
	return nil
}

func (m *mockAssignmentRepo) ListDetailed(ctx context.Context, timetableID string) ([]models.AssignmentDetail, error) {
	return m.details[timetableID], nil
}

type mockCache struct {
	mu          sync.Mutex
	enabled     bool
	items       map[string][]byte
	invalidated []string
	deleted     []string
}

func newMockCache() *mockCache {
	return &mockCache{enabled: true, items: make(map[string][]byte)}
}

func (m *mockCache) Enabled() bool { return m.enabled }

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}
