package models

import "time"

// TeacherAccount is a signed-in teacher identity persisted for auditing and
// optional password sign-in.
type TeacherAccount struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FullName     string     `db:"full_name" json:"full_name"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	GoogleSub    *string    `db:"google_sub" json:"-"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
