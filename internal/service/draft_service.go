package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/dto"
	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/staging"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/storage"
)

// Redirect targets returned alongside draft operations.
const (
	DashboardPath = "/teacher/"
	FeedPath      = "/homework"
)

type homeworkSubmitter interface {
	Get(ctx context.Context, id string) (*models.Homework, error)
	Submit(ctx context.Context, in SubmitInput) (*models.Homework, *UploadReport, error)
}

// DraftConfig tunes edit sessions.
type DraftConfig struct {
	TTL time.Duration
	// PreviewPath is the route prefix signed preview tokens are appended to.
	PreviewPath string
}

type draft struct {
	id          string
	owner       string
	homeworkID  string
	date        string
	subject     models.Subject
	description string
	images      *staging.List
	expiresAt   time.Time
}

// SubmitResult is the outcome of a successful draft submit. Redirect is set
// when the edit flow is finished and the client should leave the form.
type SubmitResult struct {
	Homework *models.Homework
	Report   *UploadReport
	Draft    *dto.DraftView
	Redirect string
}

// DraftService keeps the in-memory form state of teachers' edit sessions.
// Nothing is persisted until Submit; an expired or discarded draft is gone.
type DraftService struct {
	homeworks homeworkSubmitter
	signer    *storage.PreviewSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DraftConfig
	now       func() time.Time

	mu     sync.Mutex
	drafts map[string]*draft
}

// NewDraftService constructs a DraftService.
func NewDraftService(homeworks homeworkSubmitter, signer *storage.PreviewSigner, validate *validator.Validate, logger *zap.Logger, cfg DraftConfig) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	cfg.PreviewPath = strings.TrimRight(cfg.PreviewPath, "/")
	return &DraftService{
		homeworks: homeworks,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		drafts:    make(map[string]*draft),
	}
}

// Open starts an edit session. With an empty homework ID the draft is a new
// record dated today; otherwise it is seeded from the stored record.
func (s *DraftService) Open(ctx context.Context, owner string, req dto.OpenDraftRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}

	d := &draft{
		id:      uuid.NewString(),
		owner:   owner,
		date:    s.now().Format(models.DateLayout),
		subject: models.DefaultSubject(),
		images:  staging.New(),
	}

	if req.HomeworkID != "" {
		hw, err := s.homeworks.Get(ctx, req.HomeworkID)
		if err != nil {
			return nil, err
		}
		d.homeworkID = hw.ID
		d.date = hw.Date
		d.subject = hw.SubjectInfo()
		d.description = hw.Description
		d.images.AppendExisting(hw.ImageURLs()...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	d.expiresAt = s.now().Add(s.cfg.TTL)
	s.drafts[d.id] = d
	return s.viewLocked(d), nil
}

// Get returns the current state of a draft.
func (s *DraftService) Get(owner, id string) (*dto.DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookupLocked(owner, id)
	if err != nil {
		return nil, err
	}
	return s.viewLocked(d), nil
}

// Update replaces the form fields present in req.
func (s *DraftService) Update(owner, id string, req dto.UpdateDraftRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	return s.mutate(owner, id, func(d *draft) error {
		if req.Date != nil {
			d.date = *req.Date
		}
		if req.Subject != nil {
			d.subject = models.ResolveSubject(*req.Subject)
		}
		if req.Description != nil {
			d.description = *req.Description
		}
		return nil
	})
}

// AddImages stages raw files at the end of the list in the given order.
func (s *DraftService) AddImages(owner, id string, files []staging.File) (*dto.DraftView, error) {
	return s.mutate(owner, id, func(d *draft) error {
		for i := range files {
			if len(files[i].Data) == 0 {
				return appErrors.Clone(appErrors.ErrValidation, "image file is empty")
			}
		}
		for _, f := range files {
			f.Key = uuid.NewString()
			d.images.Append(f)
		}
		return nil
	})
}

// RemoveExistingImage unstages the first existing image with the given URL.
func (s *DraftService) RemoveExistingImage(owner, id, url string) (*dto.DraftView, error) {
	return s.mutate(owner, id, func(d *draft) error {
		if !d.images.RemoveExisting(url) {
			return appErrors.Clone(appErrors.ErrNotFound, "image not staged")
		}
		return nil
	})
}

// RemovePendingImage unstages the index-th pending image.
func (s *DraftService) RemovePendingImage(owner, id string, index int) (*dto.DraftView, error) {
	return s.mutate(owner, id, func(d *draft) error {
		if !d.images.RemovePending(index) {
			return appErrors.Clone(appErrors.ErrNotFound, "image not staged")
		}
		return nil
	})
}

// MoveImage swaps two staged images. Out of range moves leave the list as is.
func (s *DraftService) MoveImage(owner, id string, req dto.MoveImageRequest) (*dto.DraftView, error) {
	return s.mutate(owner, id, func(d *draft) error {
		d.images.Move(req.From, req.To)
		return nil
	})
}

// Submit saves the draft. On failure the draft is left untouched so the
// teacher can retry. On success a new-record draft keeps its date and
// subject with an empty description and image list, while an edit draft is
// discarded and the result redirects to the dashboard.
func (s *DraftService) Submit(ctx context.Context, owner, id string) (*SubmitResult, *UploadReport, error) {
	s.mu.Lock()
	d, err := s.lookupLocked(owner, id)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	in := SubmitInput{
		ID:          d.homeworkID,
		Date:        d.date,
		Subject:     d.subject.Name,
		Description: d.description,
		Images:      d.images.Clone(),
	}
	s.mu.Unlock()

	hw, report, err := s.homeworks.Submit(ctx, in)
	if err != nil {
		return nil, report, err
	}

	result := &SubmitResult{Homework: hw, Report: report}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.drafts[id]
	if !ok {
		return result, report, nil
	}
	if current.homeworkID != "" {
		delete(s.drafts, id)
		result.Redirect = DashboardPath
		return result, report, nil
	}
	current.description = ""
	current.images.Clear()
	current.expiresAt = s.now().Add(s.cfg.TTL)
	result.Draft = s.viewLocked(current)
	return result, report, nil
}

// Discard abandons a draft.
func (s *DraftService) Discard(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(owner, id); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

// Preview resolves a signed preview token to the staged file it grants.
func (s *DraftService) Preview(token string) (*staging.File, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "preview not available")
	}
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "preview link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid preview link")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[grant.DraftID]
	if !ok || s.now().After(d.expiresAt) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
	}
	for _, f := range d.images.Pending() {
		if f.Key == grant.Key {
			file := f
			return &file, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "image not staged")
}

// Sweep drops expired drafts and returns how many were removed.
func (s *DraftService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Run sweeps expired drafts every interval until ctx ends.
func (s *DraftService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired drafts removed", zap.Int("count", n))
			}
		}
	}
}

func (s *DraftService) mutate(owner, id string, fn func(d *draft) error) (*dto.DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookupLocked(owner, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	d.expiresAt = s.now().Add(s.cfg.TTL)
	return s.viewLocked(d), nil
}

func (s *DraftService) lookupLocked(owner, id string) (*draft, error) {
	d, ok := s.drafts[id]
	if !ok || d.owner != owner {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
	}
	if s.now().After(d.expiresAt) {
		delete(s.drafts, id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft expired")
	}
	return d, nil
}

func (s *DraftService) sweepLocked() int {
	now := s.now()
	removed := 0
	for id, d := range s.drafts {
		if now.After(d.expiresAt) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}

func (s *DraftService) viewLocked(d *draft) *dto.DraftView {
	view := &dto.DraftView{
		ID:          d.id,
		HomeworkID:  d.homeworkID,
		Date:        d.date,
		Subject:     d.subject.Name,
		Color:       d.subject.Color,
		Description: d.description,
		Images:      make([]dto.StagedImageView, 0, d.images.Len()),
		ExpiresAt:   d.expiresAt,
	}
	for pos, item := range d.images.Items() {
		img := dto.StagedImageView{Position: pos, Kind: item.Kind.String()}
		if item.Kind == staging.KindExisting {
			img.URL = item.URL
		} else if item.File != nil {
			img.Name = item.File.Name
			img.Size = item.File.Size()
			s.attachPreview(d.id, item.File.Key, &img)
		}
		view.Images = append(view.Images, img)
	}
	return view
}

func (s *DraftService) attachPreview(draftID, key string, img *dto.StagedImageView) {
	if s.signer == nil || key == "" {
		return
	}
	token, expiresAt, err := s.signer.Sign(draftID, key)
	if err != nil {
		s.logger.Warn("sign preview failed", zap.String("draft_id", draftID), zap.Error(err))
		return
	}
	img.PreviewURL = s.cfg.PreviewPath + "/" + token
	img.ExpiresAt = &expiresAt
}
