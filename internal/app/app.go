// Package app wires configuration into running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/config"
	"github.com/d60-Lab/blogsphere/internal/api"
	"github.com/d60-Lab/blogsphere/internal/api/handler"
	"github.com/d60-Lab/blogsphere/internal/cache"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/internal/service"
	"github.com/d60-Lab/blogsphere/internal/task"
	pkgcache "github.com/d60-Lab/blogsphere/pkg/cache"
	"github.com/d60-Lab/blogsphere/pkg/database"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

// App 进程内共享的依赖
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Store    media.Store
	Queue    task.Backend
	Profiles repository.ProfileRepository
	Users    repository.UserRepository
	Posts    service.PostService
	Profile  service.ProfileService

	closers []func() error
}

// New opens the database, Redis (when configured), the media store and the
// job queue, and builds the services on top of them.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.Redis.Enabled() {
		client, err := pkgcache.NewRedisClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
	}

	store, err := media.New(cfg.Media)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	if err := a.openQueue(); err != nil {
		a.Close()
		return nil, err
	}

	a.Users = repository.NewUserRepository(db)
	a.Profiles = repository.NewProfileRepository(db)
	a.Posts = service.NewPostService(
		repository.NewPostRepository(db),
		repository.NewVoteRepository(db),
		repository.NewBookmarkRepository(db),
		a.Users,
		store,
		cache.NewPostCache(a.Redis, cfg.Redis.PostCacheTTL),
		cfg.Media.MaxImageBytes,
	)
	a.Profile = service.NewProfileService(a.Profiles, a.Users, a.Queue, cfg.Media.MaxImageBytes)
	return a, nil
}

func (a *App) openQueue() error {
	q := a.Config.Queue
	switch q.Driver {
	case "redis":
		if a.Redis == nil {
			return errors.New("queue driver redis requires redis.addr")
		}
		a.Queue = task.NewRedisQueue(a.Redis, q.RedisKey, q.MaxAttempts)
	case "rabbitmq":
		rq, err := task.DialRabbitQueue(q.AMQPURL, q.AMQPQueue, q.MaxAttempts)
		if err != nil {
			return err
		}
		a.Queue = rq
		a.closers = append(a.closers, rq.Close)
	default:
		a.Queue = task.NewMemoryQueue(q.Buffer, q.MaxAttempts)
	}
	return nil
}

// StartWorkers consumes avatar jobs in this process.
func (a *App) StartWorkers() func(context.Context) error {
	uploader := task.NewAvatarUploader(a.Store, a.Profiles)
	logger.Info("avatar workers started",
		zap.String("driver", a.Config.Queue.Driver),
		zap.Int("workers", a.Config.Queue.Workers))
	return a.Queue.Start(a.Config.Queue.Workers, uploader.Handle)
}

func (a *App) Router() *gin.Engine {
	h := handler.New(a.Posts, a.Profile, a.Store, a.DB, a.Config.Media.MaxImageBytes)
	return api.NewRouter(a.Config, h, a.Users)
}

func (a *App) HTTPServer() *http.Server {
	s := a.Config.Server
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      a.Router(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
