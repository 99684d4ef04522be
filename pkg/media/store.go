// Package media stores uploaded images and resolves them to URLs.
package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	aws3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/casdoor/oss"
	"github.com/casdoor/oss/s3"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/d60-Lab/blogsphere/config"
	"github.com/d60-Lab/blogsphere/pkg/logger"
)

var ErrUnavailable = errors.New("media store unavailable")

// Store is the media backend seen by the services.
type Store interface {
	// Put writes r under key and returns the stored path.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	// URL resolves a stored path to a URL clients can fetch.
	URL(p string) string
}

// OSSStore adapts an oss.StorageInterface and guards it with a circuit breaker.
type OSSStore struct {
	client  oss.StorageInterface
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

// New 根据配置选择存储后端
func New(cfg config.MediaConfig) (*OSSStore, error) {
	var client oss.StorageInterface
	switch cfg.Provider {
	case "filesystem", "":
		fs, err := NewFileSystem(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		client = fs
	case "s3", "minio":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("media provider %s requires a bucket", cfg.Provider)
		}
		client = s3.New(&s3.Config{
			AccessID:         cfg.AccessID,
			AccessKey:        cfg.Secret,
			Region:           cfg.Region,
			Bucket:           cfg.Bucket,
			Endpoint:         cfg.Endpoint,
			S3Endpoint:       cfg.Endpoint,
			ACL:              aws3.BucketCannedACLPublicRead,
			S3ForcePathStyle: cfg.Provider == "minio",
		})
	default:
		return nil, fmt.Errorf("unsupported media provider %q", cfg.Provider)
	}
	return NewOSSStore(client, cfg.BaseURL), nil
}

// LocalPrefix returns the URL path under which the API itself must serve
// BaseDir: the filesystem provider with a host-relative base URL such as
// "/media/". Absolute or empty base URLs are served elsewhere.
func LocalPrefix(cfg config.MediaConfig) (string, bool) {
	if cfg.Provider != "filesystem" && cfg.Provider != "" {
		return "", false
	}
	if !strings.HasPrefix(cfg.BaseURL, "/") || strings.HasPrefix(cfg.BaseURL, "//") {
		return "", false
	}
	prefix := strings.TrimRight(cfg.BaseURL, "/")
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// NewOSSStore wraps client. baseURL, when set, is prefixed to stored paths
// instead of asking the backend for a URL.
func NewOSSStore(client oss.StorageInterface, baseURL string) *OSSStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &OSSStore{client: client, baseURL: baseURL, cb: cb}
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Put(key, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if obj, ok := res.(*oss.Object); ok && obj != nil && obj.Path != "" {
		return obj.Path, nil
	}
	return key, nil
}

func (s *OSSStore) URL(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if s.baseURL != "" {
		return strings.TrimRight(s.baseURL, "/") + "/" + strings.TrimLeft(p, "/")
	}
	u, err := s.client.GetURL(p)
	if err != nil {
		logger.Warn("resolve media url", zap.String("path", p), zap.Error(err))
		return p
	}
	return u
}

// Key builds a content-addressed object key: <prefix>/<blake2b-256 hex>.<ext>.
func Key(prefix, filename string, content []byte) string {
	sum := blake2b.Sum256(content)
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(prefix, hex.EncodeToString(sum[:16])+ext)
}
