// Package handler implements the HTTP endpoints.
package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/service"
	"github.com/d60-Lab/blogsphere/pkg/media"
	"github.com/d60-Lab/blogsphere/pkg/response"
)

// Handler 聚合所有 HTTP 接口依赖
type Handler struct {
	posts     service.PostService
	profiles  service.ProfileService
	store     media.Store
	db        *gorm.DB
	maxUpload int64
}

func New(posts service.PostService, profiles service.ProfileService, store media.Store, db *gorm.DB, maxUpload int64) *Handler {
	return &Handler{posts: posts, profiles: profiles, store: store, db: db, maxUpload: maxUpload}
}

// readUpload reads at most maxUpload+1 bytes so that oversize files are
// rejected by validation without buffering them whole.
func (h *Handler) readUpload(fh *multipart.FileHeader) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := h.maxUpload
	if limit <= 0 {
		limit = 10 << 20
	}
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	return &service.Upload{Filename: fh.Filename, Content: content}, nil
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.DetailBody
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Detail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
