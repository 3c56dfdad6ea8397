package dto

import (
	"time"

	"github.com/noah-isme/homework-board/internal/models"
)

// HomeworkView is the public representation of a homework record.
type HomeworkView struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Subject     string    `json:"subject"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewHomeworkView maps a record to its public view.
func NewHomeworkView(h models.Homework) HomeworkView {
	return HomeworkView{
		ID:          h.ID,
		Date:        h.Date,
		Subject:     h.Subject,
		Color:       h.Color,
		Description: h.Description,
		Images:      h.ImageURLs(),
		CreatedAt:   h.CreatedAt,
	}
}

// NewHomeworkViews maps a list of records, never returning nil.
func NewHomeworkViews(list []models.Homework) []HomeworkView {
	out := make([]HomeworkView, 0, len(list))
	for _, h := range list {
		out = append(out, NewHomeworkView(h))
	}
	return out
}

// ViewerResponse describes the image currently shown by the swipe viewer.
type ViewerResponse struct {
	HomeworkID string `json:"homework_id"`
	Index      int    `json:"index"`
	Count      int    `json:"count"`
	Image      string `json:"image,omitempty"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
}

// ViewerQuery carries the viewer position and the drag to apply to it.
type ViewerQuery struct {
	Index int `form:"index" binding:"gte=0"`
	DX    int `form:"dx"`
}

// UploadReportView reports uploads performed before a submit failed.
type UploadReportView struct {
	Uploaded    []string `json:"uploaded"`
	FailedIndex *int     `json:"failed_index,omitempty"`
	FailedName  string   `json:"failed_name,omitempty"`
}
