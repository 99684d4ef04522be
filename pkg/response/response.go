package response

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/pkg/errcode"
	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// MessageBody is used for action endpoints (bookmark, avatar upload).
type MessageBody struct {
	Message string `json:"message"`
}

// DetailBody is used for permission, auth and not-found failures.
type DetailBody struct {
	Detail string `json:"detail"`
}

// Success 200 + data
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created 201 + data
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Message writes {"message": msg} with the given status.
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, MessageBody{Message: msg})
}

// Detail writes {"detail": msg} with the given status.
func Detail(c *gin.Context, status int, msg string) {
	c.JSON(status, DetailBody{Detail: msg})
}

// BadRequest writes field-level validation errors.
func BadRequest(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusBadRequest, fields)
}

// Unauthorized aborts the chain with 401.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, DetailBody{Detail: msg})
}

// InternalError logs err and writes a generic 500 body.
func InternalError(c *gin.Context, err error) {
	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else if sentry.CurrentHub().Client() != nil {
		sentry.CaptureException(err)
	}
	Detail(c, http.StatusInternalServerError, "A server error occurred.")
}

// Error maps a service error onto the HTTP response.
func Error(c *gin.Context, err error) {
	e := errcode.From(err)
	switch e.Kind {
	case errcode.KindValidation:
		BadRequest(c, e.Fields)
	case errcode.KindConflict:
		Message(c, e.Status(), e.Message)
	case errcode.KindPermission, errcode.KindNotFound:
		Detail(c, e.Status(), e.Message)
	case errcode.KindUnavailable:
		logger.Warn("dependency unavailable", zap.String("path", c.FullPath()), zap.Error(e))
		Detail(c, e.Status(), e.Message)
	default:
		InternalError(c, err)
	}
}
