package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/homework-board/internal/models"
)

const homeworkColumns = `id, date, subject, color, description, images, created_at, updated_at`

// HomeworkRepository manages persistence for homework records.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs a HomeworkRepository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// List returns every homework, newest date first.
func (r *HomeworkRepository) List(ctx context.Context) ([]models.Homework, error) {
	const query = `SELECT ` + homeworkColumns + ` FROM homeworks ORDER BY date DESC, created_at DESC`
	var homeworks []models.Homework
	if err := r.db.SelectContext(ctx, &homeworks, query); err != nil {
		return nil, fmt.Errorf("list homeworks: %w", err)
	}
	if homeworks == nil {
		homeworks = []models.Homework{}
	}
	return homeworks, nil
}

// FindByID fetches a homework by ID. A missing row returns sql.ErrNoRows.
func (r *HomeworkRepository) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	const query = `SELECT ` + homeworkColumns + ` FROM homeworks WHERE id = $1`
	var homework models.Homework
	if err := r.db.GetContext(ctx, &homework, query, id); err != nil {
		return nil, err
	}
	return &homework, nil
}

// Create inserts a new homework, assigning its ID and creation time.
func (r *HomeworkRepository) Create(ctx context.Context, homework *models.Homework) error {
	if homework.ID == "" {
		homework.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if homework.CreatedAt.IsZero() {
		homework.CreatedAt = now
	}
	homework.UpdatedAt = now
	if homework.Images == nil {
		homework.Images = []string{}
	}

	const query = `INSERT INTO homeworks (id, date, subject, color, description, images, created_at, updated_at)
		VALUES (:id, :date, :subject, :color, :description, :images, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, homework); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// Update overwrites every editable field of an existing homework. created_at
// is left untouched. A missing row returns sql.ErrNoRows.
func (r *HomeworkRepository) Update(ctx context.Context, homework *models.Homework) error {
	homework.UpdatedAt = time.Now().UTC()
	if homework.Images == nil {
		homework.Images = []string{}
	}
	const query = `UPDATE homeworks SET date = :date, subject = :subject, color = :color, description = :description, images = :images, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, homework)
	if err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return expectRow(res, "update homework")
}

// Delete removes a homework. A missing row returns sql.ErrNoRows.
func (r *HomeworkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM homeworks WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return expectRow(res, "delete homework")
}

func expectRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
