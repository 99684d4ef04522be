package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/cache"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/internal/task"
	"github.com/d60-Lab/blogsphere/internal/testutil"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

func pngBytes(t testing.TB) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strp(s string) *string { return &s }

type recordingQueue struct {
	mu   sync.Mutex
	jobs []task.AvatarJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job task.AvatarJob) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type fixture struct {
	db       *gorm.DB
	posts    PostService
	profiles ProfileService
	queue    *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newCachedFixture(t, nil)
}

func newCachedFixture(t *testing.T, postCache *cache.PostCache) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	fs, err := media.NewFileSystem(t.TempDir())
	require.NoError(t, err)
	store := media.NewOSSStore(fs, "/media/")

	q := &recordingQueue{}
	return &fixture{
		db: db,
		posts: NewPostService(
			repository.NewPostRepository(db),
			repository.NewVoteRepository(db),
			repository.NewBookmarkRepository(db),
			repository.NewUserRepository(db),
			store, postCache, 1<<20,
		),
		profiles: NewProfileService(repository.NewProfileRepository(db), repository.NewUserRepository(db), q, 1<<20),
		queue:    q,
	}
}
