package models

import (
	"time"

	"github.com/lib/pq"
)

// DateLayout is the calendar date format homework dates are stored in.
const DateLayout = "2006-01-02"

// Homework is a single homework entry as stored in the homeworks table.
type Homework struct {
	ID          string         `db:"id" json:"id"`
	Date        string         `db:"date" json:"date"`
	Subject     string         `db:"subject" json:"subject"`
	Color       string         `db:"color" json:"color"`
	Description string         `db:"description" json:"description"`
	Images      pq.StringArray `db:"images" json:"images"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// SetSubject assigns the subject name and its colour as one value.
func (h *Homework) SetSubject(s Subject) {
	h.Subject = s.Name
	h.Color = s.Color
}

// SubjectInfo resolves the stored subject, falling back to the default one.
func (h *Homework) SubjectInfo() Subject {
	return ResolveSubject(h.Subject)
}

// ImageURLs returns the images as a plain slice, never nil.
func (h *Homework) ImageURLs() []string {
	if len(h.Images) == 0 {
		return []string{}
	}
	out := make([]string, len(h.Images))
	copy(out, h.Images)
	return out
}
