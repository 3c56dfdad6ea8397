package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/pkg/export"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
)

type homeworkLister interface {
	List(ctx context.Context) ([]models.Homework, error)
}

// ExportFile is a rendered feed document ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the homework feed as a downloadable document.
type ExportService struct {
	homeworks homeworkLister
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(homeworks homeworkLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{homeworks: homeworks, logger: logger, now: time.Now}
}

// Export renders the current feed in the requested format.
func (s *ExportService) Export(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "unsupported export format")
	}
	renderer, err := export.For(format)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "unsupported export format")
	}

	items, err := s.homeworks.List(ctx)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(feedDataset(items))
	if err != nil {
		s.logger.Error("render export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("homework-%s%s", s.now().UTC().Format("20060102"), format.Extension()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func feedDataset(items []models.Homework) export.Dataset {
	rows := make([][]string, 0, len(items))
	for _, hw := range items {
		images := hw.ImageURLs()
		rows = append(rows, []string{
			hw.Date,
			hw.SubjectInfo().Name,
			strings.TrimSpace(hw.Description),
			strconv.Itoa(len(images)),
			strings.Join(images, "\n"),
		})
	}
	return export.Dataset{
		Title:   "Homework",
		Headers: []string{"Date", "Subject", "Description", "Images", "Image URLs"},
		Rows:    rows,
		Widths:  []float64{1, 1, 4, 0.6, 3},
	}
}
