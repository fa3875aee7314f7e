package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var teacherRowColumns = []string{"id", "name", "email", "phone", "max_hours_per_day", "max_hours_per_week", "created_at", "updated_at"}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows(teacherRowColumns).
		AddRow("t1", "Ana Torres", "ana@example.com", nil, 8, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT teacher_id, subject_id FROM teacher_subjects").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "subject_id"}).AddRow("t1", "s1").AddRow("t1", "s2"))
	mock.ExpectQuery("SELECT teacher_id, weekday FROM teacher_availability").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "weekday"}).AddRow("t1", 0).AddRow("t1", 2))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"s1", "s2"}, list[0].SubjectIDs)
	assert.Equal(t, []int{0, 2}, list[0].AvailableDays)
	assert.Equal(t, 8, list[0].MaxHoursPerDay)
	assert.Nil(t, list[0].MaxHoursPerWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(email) LIKE $1) AND id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $2) ORDER BY email DESC LIMIT 5 OFFSET 5")).
		WithArgs("%ana%", "s1").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers")).
		WithArgs("%ana%", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Search: "Ana", SubjectID: "s1", Page: 2, PageSize: 5, SortBy: "email", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByIDsWithoutRelations(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE id = ANY($1) ORDER BY id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t1", "Ana", "ana@example.com", "555", 6, 20, time.Now(), time.Now()))
	mock.ExpectQuery("FROM teacher_subjects").WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "subject_id"}))
	mock.ExpectQuery("FROM teacher_availability").WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "weekday"}))

	teachers, err := repo.FindByIDs(context.Background(), []string{"t1", "missing"})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, []string{}, teachers[0].SubjectIDs)
	assert.Equal(t, []int{}, teachers[0].AvailableDays)
	require.NotNil(t, teachers[0].MaxHoursPerWeek)
	assert.Equal(t, 20, *teachers[0].MaxHoursPerWeek)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTeacherRepositoryCreateWithRelations(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "Ana", "ana@example.com", sqlmock.AnyArg(), 8, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM teacher_subjects").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO teacher_subjects").WithArgs(sqlmock.AnyArg(), "s1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM teacher_availability").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO teacher_availability").WithArgs(sqlmock.AnyArg(), 0).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO teacher_availability").WithArgs(sqlmock.AnyArg(), 3).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	teacher := &models.Teacher{Name: "Ana", Email: "ana@example.com", MaxHoursPerDay: 8}
	require.NoError(t, repo.Create(context.Background(), tx, teacher))
	require.NotEmpty(t, teacher.ID)
	require.NoError(t, repo.ReplaceSubjects(context.Background(), tx, teacher.ID, []string{"s1"}))
	require.NoError(t, repo.ReplaceAvailability(context.Background(), tx, teacher.ID, []int{0, 3}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teachers WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("ana@example.com", "t1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByEmail(context.Background(), "ana@example.com", "t1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
