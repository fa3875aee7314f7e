package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type mockTeacherRepo struct {
	items      map[string]*models.Teacher
	emailIndex map[string]string
	listResult []models.Teacher
	listTotal  int
	createErr  error
	deleted    []string
	seq        int
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var out []models.Teacher
	for _, id := range sorted {
		if teacher, ok := m.items[id]; ok {
			out = append(out, *teacher)
		}
	}
	return out, nil
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	owner, ok := m.emailIndex[email]
	return ok && owner != excludeID, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
		m.emailIndex = make(map[string]string)
	}
	if m.emailIndex == nil {
		m.emailIndex = make(map[string]string)
	}
	m.seq++
	teacher.ID = fmt.Sprintf("teacher-%d", m.seq)
	teacher.CreatedAt = time.Now()
	cp := *teacher
	m.items[teacher.ID] = &cp
	m.emailIndex[teacher.Email] = teacher.ID
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if _, ok := m.items[teacher.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTeacherRepo) ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string, subjectIDs []string) error {
	m.items[teacherID].SubjectIDs = subjectIDs
	return nil
}

func (m *mockTeacherRepo) ReplaceAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID string, weekdays []int) error {
	m.items[teacherID].AvailableDays = weekdays
	return nil
}

type mockSubjectRepo struct {
	items map[string]*models.Subject
	order []string
}

func newMockSubjectRepo(subjects ...models.Subject) *mockSubjectRepo {
	repo := &mockSubjectRepo{items: make(map[string]*models.Subject)}
	for i := range subjects {
		subject := subjects[i]
		repo.items[subject.ID] = &subject
		repo.order = append(repo.order, subject.ID)
	}
	return repo
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	var out []models.Subject
	for _, id := range m.order {
		if subject, ok := m.items[id]; ok {
			out = append(out, *subject)
		}
	}
	return out, len(out), nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var out []models.Subject
	for _, id := range sorted {
		if subject, ok := m.items[id]; ok {
			out = append(out, *subject)
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	for _, id := range m.order {
		if subject, ok := m.items[id]; ok && strings.EqualFold(subject.Name, name) {
			cp := *subject
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "subject-" + strings.ToLower(strings.ReplaceAll(subject.Name, " ", "-"))
	cp := *subject
	m.items[subject.ID] = &cp
	m.order = append(m.order, subject.ID)
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	if _, ok := m.items[subject.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func strPtr(v string) *string {
	return &v
}

func intPtr(v int) *int {
	return &v
}
