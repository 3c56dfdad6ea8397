package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/download"
	"github.com/noah-isme/homework-board/internal/dto"
	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/service"
	"github.com/noah-isme/homework-board/internal/viewer"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
)

type homeworkReader interface {
	List(ctx context.Context) ([]models.Homework, error)
	Get(ctx context.Context, id string) (*models.Homework, error)
}

type feedExporter interface {
	Export(ctx context.Context, format string) (*service.ExportFile, error)
}

type imageDownloader interface {
	DownloadAll(ctx context.Context, rec *models.Homework, sink download.Sink) (*download.Result, error)
}

// HomeworkHandler serves the public feed and detail views.
type HomeworkHandler struct {
	homeworks  homeworkReader
	exporter   feedExporter
	downloader imageDownloader
	metrics    *service.MetricsService
	logger     *zap.Logger
}

// NewHomeworkHandler constructs the handler.
func NewHomeworkHandler(homeworks homeworkReader, exporter feedExporter, downloader imageDownloader, metrics *service.MetricsService, logger *zap.Logger) *HomeworkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkHandler{homeworks: homeworks, exporter: exporter, downloader: downloader, metrics: metrics, logger: logger}
}

// List godoc
// @Summary Homework feed
// @Description All homework ordered by date then creation time, newest first
// @Tags Homework
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /homeworks [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	items, err := h.homeworks.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewHomeworkViews(items), map[string]interface{}{"count": len(items)})
}

// Get godoc
// @Summary Homework detail
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /homeworks/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	hw, ok := h.load(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, dto.NewHomeworkView(*hw))
}

// Viewer godoc
// @Summary Swipe viewer position
// @Description Applies a horizontal drag (start minus end, in px) to the image index
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Param index query int false "Current image index"
// @Param dx query int false "Drag distance"
// @Success 200 {object} response.Envelope
// @Router /homeworks/{id}/viewer [get]
func (h *HomeworkHandler) Viewer(c *gin.Context) {
	var q dto.ViewerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid viewer query"))
		return
	}
	hw, ok := h.load(c)
	if !ok {
		return
	}

	images := hw.ImageURLs()
	v := viewer.New(len(images), q.Index)
	v.Drag(q.DX)

	res := dto.ViewerResponse{
		HomeworkID: hw.ID,
		Index:      v.Index,
		Count:      v.Count,
		HasPrev:    v.HasPrev(),
		HasNext:    v.HasNext(),
	}
	if v.Count > 0 {
		res.Image = images[v.Index]
	}
	response.JSON(c, http.StatusOK, res)
}

// Download godoc
// @Summary Download all images
// @Description Streams every image of the record as a zip archive. Images that fail to download are skipped.
// @Tags Homework
// @Produce application/zip
// @Param id path string true "Homework ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /homeworks/{id}/download [get]
func (h *HomeworkHandler) Download(c *gin.Context) {
	hw, ok := h.load(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="homework-%s.zip"`, hw.ID))
	c.Status(http.StatusOK)

	sink := download.NewZipSink(c.Writer)
	result, err := h.downloader.DownloadAll(c.Request.Context(), hw, sink)
	if result != nil {
		h.metrics.ObserveDownloads(len(result.Saved), len(result.Failed))
	}
	if err != nil {
		h.logger.Warn("download aborted", zap.String("homework_id", hw.ID), zap.Error(err))
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Type")
			c.Writer.Header().Del("Content-Disposition")
			response.Error(c, err)
		}
		return
	}
	if err := sink.Close(); err != nil {
		h.logger.Warn("finish zip archive", zap.String("homework_id", hw.ID), zap.Error(err))
	}
}

// Export godoc
// @Summary Export the feed
// @Tags Homework
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /homeworks/export [get]
func (h *HomeworkHandler) Export(c *gin.Context) {
	file, err := h.exporter.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// load fetches the :id record, answering NotFound with a redirect to the feed.
func (h *HomeworkHandler) load(c *gin.Context) (*models.Homework, bool) {
	hw, err := h.homeworks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			response.Error(c, err, response.Redirect(service.FeedPath))
			return nil, false
		}
		response.Error(c, err)
		return nil, false
	}
	return hw, true
}
