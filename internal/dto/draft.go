package dto

import "time"

// OpenDraftRequest starts an edit session. An empty homework ID creates a new record.
type OpenDraftRequest struct {
	HomeworkID string `json:"homework_id" validate:"omitempty,max=64"`
}

// UpdateDraftRequest replaces form fields of a draft; nil fields are left unchanged.
type UpdateDraftRequest struct {
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Subject     *string `json:"subject" validate:"omitempty,oneof=Math English Art General"`
	Description *string `json:"description"`
}

// MoveImageRequest swaps two adjacent staged images.
type MoveImageRequest struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to"`
}

// StagedImageView is one entry of a draft's image list.
type StagedImageView struct {
	Position   int        `json:"position"`
	Kind       string     `json:"kind"`
	URL        string     `json:"url,omitempty"`
	Name       string     `json:"name,omitempty"`
	Size       int        `json:"size,omitempty"`
	PreviewURL string     `json:"preview_url,omitempty"`
	ExpiresAt  *time.Time `json:"preview_expires_at,omitempty"`
}

// DraftView is the form state of an edit session.
type DraftView struct {
	ID          string            `json:"id"`
	HomeworkID  string            `json:"homework_id,omitempty"`
	Date        string            `json:"date"`
	Subject     string            `json:"subject"`
	Color       string            `json:"color"`
	Description string            `json:"description"`
	Images      []StagedImageView `json:"images"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// SubmitDraftResponse is returned after a successful save.
type SubmitDraftResponse struct {
	Homework HomeworkView `json:"homework"`
	Draft    *DraftView   `json:"draft,omitempty"`
}
