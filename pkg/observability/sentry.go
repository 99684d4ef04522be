// Package observability wires error reporting and tracing.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/d60-Lab/blogsphere/config"
	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// InitSentry 初始化 sentry；DSN 为空时直接跳过。返回的函数在退出前 flush 事件
func InitSentry(cfg config.SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		logger.Debug("sentry disabled")
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		AttachStacktrace: true,
		ServerName:       "blogsphere",
		Release:          cfg.Release,
		Environment:      cfg.Environment,
	})
	if err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}
