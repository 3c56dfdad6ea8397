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

const accountColumns = `id, email, full_name, password_hash, google_sub, last_login, created_at, updated_at`

// AccountRepository persists teacher accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail fetches an account by email, case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.TeacherAccount, error) {
	const query = `SELECT ` + accountColumns + ` FROM teacher_accounts WHERE LOWER(email) = LOWER($1)`
	var account models.TeacherAccount
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// FindByID fetches an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.TeacherAccount, error) {
	const query = `SELECT ` + accountColumns + ` FROM teacher_accounts WHERE id = $1`
	var account models.TeacherAccount
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// UpsertGoogle records a Google sign-in, creating the account on first use.
func (r *AccountRepository) UpsertGoogle(ctx context.Context, account *models.TeacherAccount) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.LastLogin = &now

	const query = `INSERT INTO teacher_accounts (id, email, full_name, google_sub, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, google_sub = EXCLUDED.google_sub,
			last_login = EXCLUDED.last_login, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, account.ID, account.Email, account.FullName, account.GoogleSub, now, now, now)
	if err := row.Scan(&account.ID, &account.CreatedAt); err != nil {
		return fmt.Errorf("upsert google account: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the login time.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string) error {
	const query = `UPDATE teacher_accounts SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
