package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const groupColumns = "id, name, program, term, generated, created_at"

// GroupRepository persists student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns groups ordered by name.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups WHERE 1=1"
	var args []interface{}
	if filter.Program != "" {
		args = append(args, filter.Program)
		query += fmt.Sprintf(" AND program = $%d", len(args))
	}
	if filter.Term != "" {
		args = append(args, filter.Term)
		query += fmt.Sprintf(" AND term = $%d", len(args))
	}
	query += " ORDER BY name ASC"

	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID fetches a group.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.GetContext(ctx, &group, "SELECT "+groupColumns+" FROM groups WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, exec sqlx.ExtContext, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO groups (id, name, program, term, generated, created_at)
		VALUES (:id, :name, :program, :term, :generated, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// DeleteGenerated removes generated groups of program that no timetable
// references any more. An empty term matches every term of the program.
func (r *GroupRepository) DeleteGenerated(ctx context.Context, exec sqlx.ExtContext, program, term string) (int64, error) {
	const query = `DELETE FROM groups WHERE generated AND program = $1 AND ($2::text = '' OR term = $2)
		AND NOT EXISTS (SELECT 1 FROM timetables t WHERE t.group_id = groups.id)`
	res, err := r.exec(exec).ExecContext(ctx, query, program, term)
	if err != nil {
		return 0, fmt.Errorf("delete generated groups: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
