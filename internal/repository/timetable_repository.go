package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const timetableColumns = "id, name, group_id, program, term, shift, status, required_hours, placed_hours, meta, created_at, updated_at"

// TimetableRepository persists generated timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a timetable header.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusGenerated
	}
	now := time.Now().UTC()
	timetable.CreatedAt = now
	timetable.UpdatedAt = now

	const query = `INSERT INTO timetables (id, name, group_id, program, term, shift, status, required_hours, placed_hours, meta, created_at, updated_at)
VALUES (:id, :name, :group_id, :program, :term, :shift, :status, :required_hours, :placed_hours, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// ListSummaries returns timetables newest first with group names and assignment counts.
func (r *TimetableRepository) ListSummaries(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error) {
	base := "FROM timetables t JOIN groups g ON g.id = t.group_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("t.program = $%d", len(args)+1))
		args = append(args, filter.Program)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("t.term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("t.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT t.id, t.name, t.group_id, g.name AS group_name, t.program, t.term, t.shift, t.status,
t.required_hours, t.placed_hours, (SELECT COUNT(*) FROM timetable_assignments a WHERE a.timetable_id = t.id) AS assignment_count, t.created_at
%s ORDER BY t.created_at DESC, t.name ASC LIMIT %d OFFSET %d`, base, size, (page-1)*size)

	var items []models.TimetableSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}
	return items, total, nil
}

// FindByID fetches a timetable header.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, "SELECT "+timetableColumns+" FROM timetables WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// UpdateStatus changes the lifecycle status of a timetable.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE timetables SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	return requireAffected(res)
}

// ArchiveByProgramTerm archives every non-archived timetable of a program term.
func (r *TimetableRepository) ArchiveByProgramTerm(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	const query = `UPDATE timetables SET status = $3, updated_at = $4 WHERE program = $1 AND term = $2 AND status <> $3`
	res, err := r.exec(exec).ExecContext(ctx, query, program, term, models.TimetableStatusArchived, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("archive timetables: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes a timetable and, by cascade, its assignments.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return requireAffected(res)
}

// DeleteAll removes timetables, narrowed to a program and term when given.
func (r *TimetableRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	query := "DELETE FROM timetables WHERE 1=1"
	var args []interface{}
	if program != "" {
		args = append(args, program)
		query += fmt.Sprintf(" AND program = $%d", len(args))
	}
	if term != "" {
		args = append(args, term)
		query += fmt.Sprintf(" AND term = $%d", len(args))
	}
	res, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete timetables: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
