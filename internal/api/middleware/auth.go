// Package middleware holds the gin middleware chain.
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/response"
)

const (
	ctxUserKey = "blogsphere.user"

	msgNoCredentials = "Authentication credentials were not provided."
	msgInvalidToken  = "Invalid token"
)

// Auth 校验 Bearer JWT（HS256），把 sub 对应的用户放进 gin context
func Auth(secret, issuer string, users repository.UserRepository) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, msgNoCredentials)
			return
		}
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			response.Unauthorized(c, msgInvalidToken)
			return
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || claims.Subject == "" {
			logger.Debug("reject token", zap.Error(err))
			response.Unauthorized(c, msgInvalidToken)
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.Subject)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Unauthorized(c, msgInvalidToken)
			return
		}
		if err != nil {
			response.InternalError(c, err)
			c.Abort()
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside Auth.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// SetCurrentUser is used by tests that bypass token parsing.
func SetCurrentUser(c *gin.Context, u *model.User) { c.Set(ctxUserKey, u) }
