package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTimetableRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetables").
		WithArgs(sqlmock.AnyArg(), "ITIID 5-1", "g1", "ITIID", "5", "morning", models.TimetableStatusGenerated, 20, 18, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	timetable := &models.Timetable{Name: "ITIID 5-1", GroupID: "g1", Program: "ITIID", Term: "5", Shift: "morning", RequiredHours: 20, PlacedHours: 18, Meta: types.JSONText(`{}`)}
	require.NoError(t, repo.Create(context.Background(), nil, timetable))
	assert.Equal(t, models.TimetableStatusGenerated, timetable.Status)
	assert.NotEmpty(t, timetable.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListSummaries(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	columns := []string{"id", "name", "group_id", "group_name", "program", "term", "shift", "status", "required_hours", "placed_hours", "assignment_count", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND t.status = $1 AND t.program = $2 ORDER BY t.created_at DESC, t.name ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.TimetableStatusActive, "ITIID").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("tt1", "ITIID 5-1", "g1", "ITIID 5-1", "ITIID", "5", "morning", "active", 20, 20, 20, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetables t JOIN groups g")).
		WithArgs(models.TimetableStatusActive, "ITIID").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.ListSummaries(context.Background(), models.TimetableFilter{Status: models.TimetableStatusActive, Program: "ITIID"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].AssignmentCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryArchiveAndDelete(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("UPDATE timetables SET status").
		WithArgs("ITIID", "5", models.TimetableStatusArchived, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	archived, err := repo.ArchiveByProgramTerm(context.Background(), nil, "ITIID", "5")
	require.NoError(t, err)
	assert.Equal(t, int64(3), archived)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE 1=1 AND term = $1")).
		WithArgs("5").
		WillReturnResult(sqlmock.NewResult(0, 4))
	removed, err := repo.DeleteAll(context.Background(), nil, "", "5")
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET status = $2")).
		WithArgs("missing", models.TimetableStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "missing", models.TimetableStatusActive), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryInsertAndList(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetable_assignments").
		WithArgs(sqlmock.AnyArg(), "tt1", "t1", "s1", "g1", 0, 7, 8).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_assignments").
		WithArgs(sqlmock.AnyArg(), "tt1", "t1", "s1", "g1", 0, 8, 9).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), tx, []models.TimetableAssignment{
		{TimetableID: "tt1", TeacherID: "t1", SubjectID: "s1", GroupID: "g1", Weekday: 0, StartHour: 7, EndHour: 8},
		{TimetableID: "tt1", TeacherID: "t1", SubjectID: "s1", GroupID: "g1", Weekday: 0, StartHour: 8, EndHour: 9},
	}))
	require.NoError(t, tx.Commit())

	columns := []string{"id", "timetable_id", "teacher_id", "subject_id", "group_id", "weekday", "start_hour", "end_hour", "teacher_name", "subject_name", "group_name"}
	mock.ExpectQuery("FROM timetable_assignments a").
		WithArgs("tt1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("a1", "tt1", "t1", "s1", "g1", 0, 7, 8, "Ana", "Cálculo", "ITIID 5-1"))

	items, err := repo.ListDetailed(context.Background(), "tt1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana", items[0].TeacherName)
	assert.Equal(t, 7, items[0].StartHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}
