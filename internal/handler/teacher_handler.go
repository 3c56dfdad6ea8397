package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homework-board/internal/dto"
	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/service"
	"github.com/noah-isme/homework-board/internal/staging"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
	"github.com/noah-isme/homework-board/pkg/storage"
)

const imagesFormField = "images"

type homeworkManager interface {
	List(ctx context.Context) ([]models.Homework, error)
	Delete(ctx context.Context, id string) error
}

type draftService interface {
	Open(ctx context.Context, owner string, req dto.OpenDraftRequest) (*dto.DraftView, error)
	Get(owner, id string) (*dto.DraftView, error)
	Update(owner, id string, req dto.UpdateDraftRequest) (*dto.DraftView, error)
	AddImages(owner, id string, files []staging.File) (*dto.DraftView, error)
	RemoveExistingImage(owner, id, url string) (*dto.DraftView, error)
	RemovePendingImage(owner, id string, index int) (*dto.DraftView, error)
	MoveImage(owner, id string, req dto.MoveImageRequest) (*dto.DraftView, error)
	Submit(ctx context.Context, owner, id string) (*service.SubmitResult, *service.UploadReport, error)
	Discard(owner, id string) error
	Preview(token string) (*staging.File, error)
}

// TeacherConfig carries what the sign-in view needs to render and the upload limits.
type TeacherConfig struct {
	GoogleClientID  string
	PasswordSignIn  bool
	MaxImageBytes   int64
	MaxImagesPerAdd int
	// Images is checked against every staged file; downscaling happens at upload.
	Images storage.ImagePolicy
}

// TeacherHandler serves the signed-in teacher views: dashboard and edit form.
type TeacherHandler struct {
	homeworks homeworkManager
	drafts    draftService
	cfg       TeacherConfig
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(homeworks homeworkManager, drafts draftService, cfg TeacherConfig) *TeacherHandler {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if cfg.MaxImagesPerAdd <= 0 {
		cfg.MaxImagesPerAdd = 20
	}
	return &TeacherHandler{homeworks: homeworks, drafts: drafts, cfg: cfg}
}

// LoginView godoc
// @Summary Sign-in view
// @Description Sign-in options. A signed-in teacher is redirected to the dashboard instead.
// @Tags Teacher
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/login [get]
func (h *TeacherHandler) LoginView(c *gin.Context) {
	providers := []string{}
	if h.cfg.GoogleClientID != "" {
		providers = append(providers, models.ProviderGoogle)
	}
	if h.cfg.PasswordSignIn {
		providers = append(providers, models.ProviderPassword)
	}
	response.JSON(c, http.StatusOK, gin.H{
		"providers":        providers,
		"google_client_id": h.cfg.GoogleClientID,
	})
}

// Dashboard godoc
// @Summary Teacher dashboard
// @Tags Teacher
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /teacher/ [get]
func (h *TeacherHandler) Dashboard(c *gin.Context) {
	items, err := h.homeworks.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewHomeworkViews(items), map[string]interface{}{
		"count":     len(items),
		"principal": principalFromContext(c),
	})
}

// DeleteHomework godoc
// @Summary Delete homework
// @Tags Teacher
// @Param id path string true "Homework ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /teacher/homeworks/{id} [delete]
func (h *TeacherHandler) DeleteHomework(c *gin.Context) {
	if err := h.homeworks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// OpenDraft godoc
// @Summary Open an edit form
// @Description Starts a draft for a new record, or for an existing one when homework_id is set
// @Tags Teacher
// @Accept json
// @Produce json
// @Param payload body dto.OpenDraftRequest false "Record to edit"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/drafts [post]
func (h *TeacherHandler) OpenDraft(c *gin.Context) {
	var req dto.OpenDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
			return
		}
	}
	if req.HomeworkID == "" {
		req.HomeworkID = c.Query("homework_id")
	}

	view, err := h.drafts.Open(c.Request.Context(), h.owner(c), req)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			response.Error(c, err, response.Redirect(service.DashboardPath))
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// GetDraft godoc
// @Summary Get an edit form
// @Tags Teacher
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id} [get]
func (h *TeacherHandler) GetDraft(c *gin.Context) {
	h.respondDraft(c)(h.drafts.Get(h.owner(c), c.Param("id")))
}

// UpdateDraft godoc
// @Summary Update form fields
// @Tags Teacher
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.UpdateDraftRequest true "Fields"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id} [patch]
func (h *TeacherHandler) UpdateDraft(c *gin.Context) {
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	h.respondDraft(c)(h.drafts.Update(h.owner(c), c.Param("id"), req))
}

// AddImages godoc
// @Summary Stage images
// @Description Appends the uploaded files to the draft in the order sent
// @Tags Teacher
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Draft ID"
// @Param images formData file true "Image files"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id}/images [post]
func (h *TeacherHandler) AddImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart form required"))
		return
	}
	headers := form.File[imagesFormField]
	if len(headers) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no images attached"))
		return
	}
	if len(headers) > h.cfg.MaxImagesPerAdd {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d images per request", h.cfg.MaxImagesPerAdd)))
		return
	}

	files := make([]staging.File, 0, len(headers))
	for _, fh := range headers {
		file, err := h.readFile(fh)
		if err != nil {
			response.Error(c, err)
			return
		}
		files = append(files, file)
	}
	h.respondDraft(c)(h.drafts.AddImages(h.owner(c), c.Param("id"), files))
}

// RemoveExistingImage godoc
// @Summary Unstage a stored image
// @Tags Teacher
// @Produce json
// @Param id path string true "Draft ID"
// @Param url query string true "Image URL"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id}/images/existing [delete]
func (h *TeacherHandler) RemoveExistingImage(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "url is required"))
		return
	}
	h.respondDraft(c)(h.drafts.RemoveExistingImage(h.owner(c), c.Param("id"), url))
}

// RemovePendingImage godoc
// @Summary Unstage a pending image
// @Description index counts pending images only
// @Tags Teacher
// @Produce json
// @Param id path string true "Draft ID"
// @Param index path int true "Pending image index"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id}/images/pending/{index} [delete]
func (h *TeacherHandler) RemovePendingImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "index must be a number"))
		return
	}
	h.respondDraft(c)(h.drafts.RemovePendingImage(h.owner(c), c.Param("id"), index))
}

// MoveImage godoc
// @Summary Reorder staged images
// @Description Swaps the images at from and to; out of range positions are ignored
// @Tags Teacher
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.MoveImageRequest true "Positions"
// @Success 200 {object} response.Envelope
// @Router /teacher/drafts/{id}/images/move [post]
func (h *TeacherHandler) MoveImage(c *gin.Context) {
	var req dto.MoveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	h.respondDraft(c)(h.drafts.MoveImage(h.owner(c), c.Param("id"), req))
}

// SubmitDraft godoc
// @Summary Save the form
// @Description Uploads pending images in order then creates or updates the record
// @Tags Teacher
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /teacher/drafts/{id}/submit [post]
func (h *TeacherHandler) SubmitDraft(c *gin.Context) {
	result, report, err := h.drafts.Submit(c.Request.Context(), h.owner(c), c.Param("id"))
	if err != nil {
		meta := map[string]interface{}{}
		if report.Failed() {
			meta["upload_report"] = uploadReportView(report)
		}
		response.Error(c, err, meta)
		return
	}

	body := dto.SubmitDraftResponse{Homework: dto.NewHomeworkView(*result.Homework), Draft: result.Draft}
	meta := map[string]interface{}{"upload_report": uploadReportView(report)}
	if result.Redirect != "" {
		meta["redirect"] = result.Redirect
		response.JSON(c, http.StatusOK, body, meta)
		return
	}
	response.Created(c, body, meta)
}

// DiscardDraft godoc
// @Summary Abandon the form
// @Tags Teacher
// @Param id path string true "Draft ID"
// @Success 204
// @Router /teacher/drafts/{id} [delete]
func (h *TeacherHandler) DiscardDraft(c *gin.Context) {
	if err := h.drafts.Discard(h.owner(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview a staged image
// @Description Serves a not yet uploaded image through a signed, short lived token
// @Tags Teacher
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param token path string true "Preview token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /previews/{token} [get]
func (h *TeacherHandler) Preview(c *gin.Context) {
	file, err := h.drafts.Preview(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, file.Data)
}

func (h *TeacherHandler) owner(c *gin.Context) string {
	if p := principalFromContext(c); p != nil {
		return p.ID
	}
	return ""
}

func (h *TeacherHandler) respondDraft(c *gin.Context) func(*dto.DraftView, error) {
	return func(view *dto.DraftView, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view)
	}
}

func (h *TeacherHandler) readFile(fh *multipart.FileHeader) (staging.File, error) {
	if fh.Size > h.cfg.MaxImageBytes {
		return staging.File{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds the size limit", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return staging.File{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxImageBytes+1))
	if err != nil {
		return staging.File{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	if int64(len(data)) > h.cfg.MaxImageBytes {
		return staging.File{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds the size limit", fh.Filename))
	}
	mt, err := h.cfg.Images.Check(data)
	if err != nil {
		return staging.File{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("%s is not an accepted image", fh.Filename))
	}
	return staging.File{Name: fh.Filename, ContentType: mt.String(), Data: data}, nil
}

func uploadReportView(r *service.UploadReport) dto.UploadReportView {
	view := dto.UploadReportView{Uploaded: []string{}}
	if r == nil {
		return view
	}
	view.Uploaded = append(view.Uploaded, r.Uploaded...)
	if r.Failed() {
		idx := r.FailedIndex
		view.FailedIndex = &idx
		view.FailedName = r.FailedName
	}
	return view
}
