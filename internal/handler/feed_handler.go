package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/dto"
	"github.com/noah-isme/homework-board/internal/feed"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
)

const (
	feedEvent     = "homeworks"
	keepAliveTick = 25 * time.Second
	wsWriteWait   = 10 * time.Second
)

type feedSubscriber interface {
	Subscribe(ctx context.Context) (*feed.Subscription, error)
}

// FeedHandler streams the live homework list.
type FeedHandler struct {
	hub      feedSubscriber
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewFeedHandler constructs the handler. allowedOrigins limits WebSocket
// upgrades; empty allows any origin.
func NewFeedHandler(hub feedSubscriber, allowedOrigins []string, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &FeedHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Stream godoc
// @Summary Live homework feed (SSE)
// @Description Sends the full ordered list immediately and after every change
// @Tags Homework
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /homeworks/stream [get]
func (h *FeedHandler) Stream(c *gin.Context) {
	sub, err := h.hub.Subscribe(c.Request.Context())
	if err != nil {
		response.Error(c, subscribeError(err))
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveTick)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case list, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(feedEvent, dto.NewHomeworkViews(list))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-sub.Done():
			return false
		}
	})
}

// Socket godoc
// @Summary Live homework feed (WebSocket)
// @Description Each message is the full ordered list as JSON
// @Tags Homework
// @Success 101 {string} string "switching protocols"
// @Router /homeworks/ws [get]
func (h *FeedHandler) Socket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.hub.Subscribe(ctx)
	if err != nil {
		h.logger.Error("open feed subscription", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"), time.Now().Add(wsWriteWait))
		return
	}
	defer sub.Close()

	// Incoming messages are ignored; reading detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAliveTick)
	defer ticker.Stop()

	for {
		select {
		case list, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(gin.H{"event": feedEvent, "data": dto.NewHomeworkViews(list)}); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-sub.Done():
			return
		}
	}
}

func subscribeError(err error) *appErrors.Error {
	if errors.Is(err, feed.ErrClosed) {
		return appErrors.Wrap(err, "FEED_UNAVAILABLE", http.StatusServiceUnavailable, "live feed is unavailable")
	}
	return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open feed")
}
