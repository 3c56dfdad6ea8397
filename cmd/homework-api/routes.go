package main

import (
	"net/url"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/homework-board/api/swagger"
	"github.com/noah-isme/homework-board/internal/handler"
	"github.com/noah-isme/homework-board/internal/middleware"
	"github.com/noah-isme/homework-board/pkg/config"
	"github.com/noah-isme/homework-board/pkg/logger"
	corsmiddleware "github.com/noah-isme/homework-board/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/homework-board/pkg/middleware/requestid"
)

const previewRoute = "/previews"

func newRouter(cfg *config.Config, logr *zap.Logger, app *application) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))

	metricsHandler := handler.NewMetricsHandler(app.metrics, app.ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if app.media != nil {
		r.Static(mediaRoute(cfg.Storage.MediaBaseURL), app.media.Dir())
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(app.auth, cfg.Env == config.EnvProduction)
	homeworkHandler := handler.NewHomeworkHandler(app.homeworks, app.exports, app.download, app.metrics, logr.Named("http"))
	feedHandler := handler.NewFeedHandler(app.hub, cfg.CORS.AllowedOrigins, logr.Named("feed"))
	teacherHandler := handler.NewTeacherHandler(app.homeworks, app.drafts, handler.TeacherConfig{
		GoogleClientID: cfg.Auth.GoogleClientID,
		PasswordSignIn: true,
		MaxImageBytes:  cfg.Images.MaxFileSizeBytes,
		Images:         imagePolicy(cfg),
	})

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/google", authHandler.Google)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", middleware.JWT(app.auth), authHandler.Logout)
	auth.GET("/me", middleware.JWT(app.auth), authHandler.Me)

	homeworks := api.Group("/homeworks")
	homeworks.GET("", homeworkHandler.List)
	homeworks.GET("/stream", feedHandler.Stream)
	homeworks.GET("/ws", feedHandler.Socket)
	homeworks.GET("/export", homeworkHandler.Export)
	homeworks.GET("/:id", homeworkHandler.Get)
	homeworks.GET("/:id/viewer", homeworkHandler.Viewer)
	homeworks.GET("/:id/download", homeworkHandler.Download)

	api.GET(previewRoute+"/:token", teacherHandler.Preview)

	teacher := api.Group("/teacher", middleware.OptionalJWT(app.auth), middleware.TeacherGuard(app.policy, cfg.APIPrefix, logr.Named("guard")))
	teacher.GET("/", teacherHandler.Dashboard)
	teacher.GET("/login", teacherHandler.LoginView)
	teacher.DELETE("/homeworks/:id", teacherHandler.DeleteHomework)
	teacher.POST("/drafts", teacherHandler.OpenDraft)
	teacher.GET("/drafts/:id", teacherHandler.GetDraft)
	teacher.PATCH("/drafts/:id", teacherHandler.UpdateDraft)
	teacher.DELETE("/drafts/:id", teacherHandler.DiscardDraft)
	teacher.POST("/drafts/:id/images", teacherHandler.AddImages)
	teacher.POST("/drafts/:id/images/move", teacherHandler.MoveImage)
	teacher.DELETE("/drafts/:id/images/existing", teacherHandler.RemoveExistingImage)
	teacher.DELETE("/drafts/:id/images/pending/:index", teacherHandler.RemovePendingImage)
	teacher.POST("/drafts/:id/submit", teacherHandler.SubmitDraft)

	return r
}

// mediaRoute is the path component of the public media base URL.
func mediaRoute(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Path != "" && u.Path != "/" {
		return u.Path
	}
	return "/media"
}
