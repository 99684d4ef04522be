// Package api assembles the gin engine.
package api

import (
	"github.com/gin-contrib/gzip"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/blogsphere/config"
	_ "github.com/d60-Lab/blogsphere/docs"
	"github.com/d60-Lab/blogsphere/internal/api/handler"
	"github.com/d60-Lab/blogsphere/internal/api/middleware"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

// NewRouter 注册中间件与路由
func NewRouter(cfg *config.Config, h *handler.Handler, users repository.UserRepository) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))

	r.GET("/healthz", h.Health)
	if prefix, ok := media.LocalPrefix(cfg.Media); ok {
		r.Static(prefix, cfg.Media.BaseDir)
	}
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.Auth(cfg.JWT.Secret, cfg.JWT.Issuer, users)

	posts := r.Group("/posts", auth)
	{
		posts.GET("/", h.ListPosts)
		posts.POST("/", h.CreatePost)
		posts.GET("/mine/", h.MyPosts)
		posts.GET("/:slug/", h.GetPost)
		posts.PUT("/:slug/", h.UpdatePost)
		posts.PATCH("/:slug/", h.UpdatePost)
		posts.DELETE("/:slug/", h.DeletePost)
		posts.PATCH("/:slug/bookmark/", h.BookmarkPost())
		posts.PATCH("/:slug/unbookmark/", h.UnbookmarkPost())
		posts.PATCH("/:slug/upvote/", h.UpvotePost())
		posts.PATCH("/:slug/downvote/", h.DownvotePost())
		posts.PATCH("/:slug/unvote/", h.UnvotePost())
	}

	profiles := r.Group("/profiles", auth)
	{
		profiles.GET("/me/", h.MyProfile)
		profiles.PUT("/update/", h.UpdateProfile)
		profiles.PATCH("/update/", h.UpdateProfile)
		profiles.PATCH("/avatar/", h.UploadAvatar)
	}
	return r
}
