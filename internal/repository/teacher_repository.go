package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

const teacherColumns = "id, name, email, phone, max_hours_per_day, max_hours_per_week, created_at, updated_at"

// TeacherRepository manages persistence for teachers, the subjects they teach
// and the weekdays they are available.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, base, column, order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	if err := r.attachRelations(ctx, teachers); err != nil {
		return nil, 0, err
	}
	return teachers, total, nil
}

// FindByID fetches a teacher with subjects and availability.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers WHERE id = $1"
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	list := []models.Teacher{teacher}
	if err := r.attachRelations(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// FindByIDs loads the given teachers in id order, skipping unknown ids.
func (r *TeacherRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	if len(ids) == 0 {
		return []models.Teacher{}, nil
	}
	query := "SELECT " + teacherColumns + " FROM teachers WHERE id = ANY($1) ORDER BY id"
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find teachers by ids: %w", err)
	}
	if err := r.attachRelations(ctx, teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record. Subjects and availability are written separately.
func (r *TeacherRepository) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, name, email, phone, max_hours_per_day, max_hours_per_week, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :max_hours_per_day, :max_hours_per_week, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher record.
func (r *TeacherRepository) Update(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, max_hours_per_day = :max_hours_per_day,
		max_hours_per_week = :max_hours_per_week, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a teacher. Subject links, availability and assignments cascade.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return requireAffected(res)
}

// ReplaceSubjects overwrites the subjects a teacher may teach.
func (r *TeacherRepository) ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string, subjectIDs []string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, teacherID, subjectID); err != nil {
			return fmt.Errorf("insert teacher subject: %w", err)
		}
	}
	return nil
}

// ReplaceAvailability overwrites the weekdays a teacher can be scheduled on.
func (r *TeacherRepository) ReplaceAvailability(ctx context.Context, exec sqlx.ExtContext, teacherID string, weekdays []int) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM teacher_availability WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher availability: %w", err)
	}
	for _, day := range weekdays {
		if _, err := target.ExecContext(ctx, `INSERT INTO teacher_availability (teacher_id, weekday) VALUES ($1, $2) ON CONFLICT DO NOTHING`, teacherID, day); err != nil {
			return fmt.Errorf("insert teacher availability: %w", err)
		}
	}
	return nil
}

func (r *TeacherRepository) attachRelations(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	ids := make([]string, len(teachers))
	for i := range teachers {
		ids[i] = teachers[i].ID
	}

	var links []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &links, `SELECT teacher_id, subject_id FROM teacher_subjects WHERE teacher_id = ANY($1) ORDER BY teacher_id, subject_id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load teacher subjects: %w", err)
	}
	var days []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &days, `SELECT teacher_id, weekday FROM teacher_availability WHERE teacher_id = ANY($1) ORDER BY teacher_id, weekday`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load teacher availability: %w", err)
	}

	subjects := make(map[string][]string)
	for _, link := range links {
		subjects[link.TeacherID] = append(subjects[link.TeacherID], link.SubjectID)
	}
	available := make(map[string][]int)
	for _, day := range days {
		available[day.TeacherID] = append(available[day.TeacherID], day.Weekday)
	}
	for i := range teachers {
		teachers[i].SubjectIDs = subjects[teachers[i].ID]
		if teachers[i].SubjectIDs == nil {
			teachers[i].SubjectIDs = []string{}
		}
		teachers[i].AvailableDays = available[teachers[i].ID]
		if teachers[i].AvailableDays == nil {
			teachers[i].AvailableDays = []int{}
		}
	}
	return nil
}
