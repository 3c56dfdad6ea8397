package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/staging"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/storage"
)

// FeedCacheKey is the cache key of the ordered homework list.
const FeedCacheKey = "homeworks:feed"

type homeworkRepository interface {
	List(ctx context.Context) ([]models.Homework, error)
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	Create(ctx context.Context, homework *models.Homework) error
	Update(ctx context.Context, homework *models.Homework) error
	Delete(ctx context.Context, id string) error
}

// ChangePublisher announces that the homework list changed.
type ChangePublisher interface {
	Publish(ctx context.Context) error
}

// SubmitInput is the form state handed to Submit. An empty ID creates a record.
type SubmitInput struct {
	ID          string
	Date        string
	Subject     string
	Description string
	Images      *staging.List
}

// UploadReport lists what was uploaded during a submit. When an upload fails
// it also names the failing file; objects already uploaded stay orphaned.
type UploadReport struct {
	Uploaded    []string
	FailedIndex int
	FailedName  string
}

// Failed reports whether an upload aborted the submit.
func (r *UploadReport) Failed() bool {
	return r != nil && r.FailedIndex >= 0
}

// HomeworkService implements reading, saving and deleting homework.
type HomeworkService struct {
	repo      homeworkRepository
	uploader  storage.Uploader
	publisher ChangePublisher
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewHomeworkService constructs a HomeworkService. publisher, cache and
// metrics may be nil.
func NewHomeworkService(repo homeworkRepository, uploader storage.Uploader, publisher ChangePublisher, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{
		repo:      repo,
		uploader:  uploader,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// List returns every homework ordered by date descending, served from cache
// when possible.
func (s *HomeworkService) List(ctx context.Context) ([]models.Homework, error) {
	var cached []models.Homework
	if hit, err := s.cache.Get(ctx, FeedCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	list, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, FeedCacheKey, list, s.cacheTTL)
	return list, nil
}

// Load reads the list straight from the store, bypassing the cache.
func (s *HomeworkService) Load(ctx context.Context) ([]models.Homework, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	return list, nil
}

// Get fetches one homework.
func (s *HomeworkService) Get(ctx context.Context, id string) (*models.Homework, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
	}
	homework, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	return homework, nil
}

// Submit validates the form, uploads pending images one at a time in list
// order and writes the whole record. The first failed upload aborts the
// submit before anything is written; the report lists what was uploaded.
func (s *HomeworkService) Submit(ctx context.Context, in SubmitInput) (*models.Homework, *UploadReport, error) {
	report := &UploadReport{Uploaded: []string{}, FailedIndex: -1}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, report, appErrors.Clone(appErrors.ErrValidation, "description is required")
	}

	images := in.Images
	if images == nil {
		images = staging.New()
	}

	var record *models.Homework
	if in.ID != "" {
		existing, err := s.Get(ctx, in.ID)
		if err != nil {
			return nil, report, err
		}
		record = existing
	} else {
		record = &models.Homework{}
	}

	for i, file := range images.Pending() {
		start := time.Now()
		url, err := s.uploader.Put(ctx, storage.Object{Name: file.Name, ContentType: file.ContentType, Data: file.Data})
		s.metrics.ObserveUpload(err == nil, time.Since(start))
		if err != nil {
			report.FailedIndex = i
			report.FailedName = file.Name
			s.logger.Warn("image upload failed",
				zap.String("homework_id", in.ID),
				zap.Int("index", i),
				zap.String("file", file.Name),
				zap.Int("orphaned", len(report.Uploaded)),
				zap.Error(err),
			)
			return nil, report, appErrors.WrapAs(err, appErrors.ErrUpload, fmt.Sprintf("failed to upload %s", displayName(file.Name, i)))
		}
		report.Uploaded = append(report.Uploaded, url)
	}

	date := strings.TrimSpace(in.Date)
	if date == "" && in.ID == "" {
		date = s.now().Format(models.DateLayout)
	}
	if date != "" {
		record.Date = date
	}
	record.SetSubject(models.ResolveSubject(in.Subject))
	record.Description = description
	record.Images = staging.Merge(images.Existing(), report.Uploaded)

	op := "create"
	var err error
	if in.ID == "" {
		err = s.repo.Create(ctx, record)
	} else {
		op = "update"
		err = s.repo.Update(ctx, record)
	}
	s.metrics.ObserveWrite(op, err == nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		s.logger.Error("homework write failed", zap.String("op", op), zap.String("homework_id", record.ID), zap.Error(err))
		return nil, report, appErrors.WrapAs(err, appErrors.ErrWrite, "failed to save homework")
	}

	s.changed(ctx)
	return record, report, nil
}

// Delete removes a homework.
func (s *HomeworkService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveWrite("delete", err == nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrWrite, "failed to delete homework")
	}
	s.changed(ctx)
	return nil
}

// changed invalidates the cached list and notifies live subscribers. Both
// are best effort; the write already succeeded.
func (s *HomeworkService) changed(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, FeedCacheKey)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx); err != nil {
		s.logger.Warn("publish homework change failed", zap.Error(err))
	}
}

func displayName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("image %d", index+1)
	}
	return name
}
