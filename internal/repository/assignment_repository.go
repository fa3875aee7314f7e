package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// AssignmentRepository stores the hour-by-hour placements of a timetable.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes assignments for a timetable.
func (r *AssignmentRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetableAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO timetable_assignments (id, timetable_id, teacher_id, subject_id, group_id, weekday, start_hour, end_hour)
VALUES (:id, :timetable_id, :teacher_id, :subject_id, :group_id, :weekday, :start_hour, :end_hour)`

	for i := range assignments {
		assignment := &assignments[i]
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignment); err != nil {
			return fmt.Errorf("insert timetable assignment: %w", err)
		}
	}
	return nil
}

// ListDetailed returns assignments ordered by weekday and hour with display names.
func (r *AssignmentRepository) ListDetailed(ctx context.Context, timetableID string) ([]models.AssignmentDetail, error) {
	const query = `SELECT a.id, a.timetable_id, a.teacher_id, a.subject_id, a.group_id, a.weekday, a.start_hour, a.end_hour,
te.name AS teacher_name, s.name AS subject_name, g.name AS group_name
FROM timetable_assignments a
JOIN teachers te ON te.id = a.teacher_id
JOIN subjects s ON s.id = a.subject_id
JOIN groups g ON g.id = a.group_id
WHERE a.timetable_id = $1
ORDER BY a.weekday ASC, a.start_hour ASC`
	var items []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable assignments: %w", err)
	}
	return items, nil
}
