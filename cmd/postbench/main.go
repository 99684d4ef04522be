package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/blogsphere/config"
	"github.com/d60-Lab/blogsphere/internal/cache"
	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/internal/service"
	pkgcache "github.com/d60-Lab/blogsphere/pkg/cache"
	"github.com/d60-Lab/blogsphere/pkg/database"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// postbench 对比文章详情读取（无缓存 / redis 缓存）以及投票、收藏切换的延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	store := must(media.New(cfg.Media))
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 8)
	POSTS := envInt("POSTS", 200)

	// seed: 1 author, POSTS posts, N voters
	author := model.User{ID: uuid.NewString(), Username: "bench_" + uuid.NewString()[:8]}
	mustDo(db.Create(&author).Error)
	posts := make([]model.Post, POSTS)
	now := time.Now()
	for i := range posts {
		posts[i] = model.Post{
			ID:        uuid.NewString(),
			Title:     fmt.Sprintf("bench post %d", i),
			Slug:      fmt.Sprintf("bench-%s-%d", author.ID[:8], i),
			AuthorID:  author.ID,
			Body:      "lorem ipsum",
			CreatedAt: now.Add(-time.Duration(i) * time.Second),
			UpdatedAt: now,
		}
	}
	mustDo(db.Omit("Author", "Images").CreateInBatches(&posts, 500).Error)
	voters := make([]model.User, N)
	for i := range voters {
		id := uuid.NewString()
		voters[i] = model.User{ID: id, Username: "v" + id[:12]}
	}
	mustDo(db.CreateInBatches(&voters, 1000).Error)

	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	userRepo := repository.NewUserRepository(db)

	var client *redis.Client
	if cfg.Redis.Enabled() {
		client = must(pkgcache.NewRedisClient(cfg.Redis))
		defer client.Close()
	}
	noCache := service.NewPostService(postRepo, voteRepo, bookmarkRepo, userRepo, store, nil, cfg.Media.MaxImageBytes)
	cached := service.NewPostService(postRepo, voteRepo, bookmarkRepo, userRepo, store,
		cache.NewPostCache(client, cfg.Redis.PostCacheTTL), cfg.Media.MaxImageBytes)

	fmt.Printf("N=%d, CONC=%d, POSTS=%d, redis=%v\n", N, CONC, POSTS, client != nil)

	report("get (no cache)", run(N, CONC, func(i int) error {
		_, err := noCache.Get(ctx, &voters[i], posts[i%POSTS].Slug)
		return err
	}))
	if client != nil {
		report("get (redis cache)", run(N, CONC, func(i int) error {
			_, err := cached.Get(ctx, &voters[i], posts[i%POSTS].Slug)
			return err
		}))
	}
	report("upvote", run(N, CONC, func(i int) error {
		return noCache.Upvote(ctx, &voters[i], posts[i%POSTS].Slug)
	}))
	report("switch to downvote", run(N, CONC, func(i int) error {
		return noCache.Downvote(ctx, &voters[i], posts[i%POSTS].Slug)
	}))
	report("bookmark", run(N, CONC, func(i int) error {
		return noCache.Bookmark(ctx, &voters[i], posts[i%POSTS].Slug)
	}))

	q0 := time.Now()
	mine := must(noCache.ListMine(ctx, &author))
	fmt.Printf("list mine (%d posts): %v\n", len(mine), time.Since(q0))
}

type result struct {
	total  time.Duration
	recs   []time.Duration
	errors int
}

func run(n, conc int, op func(i int) error) result {
	if conc > n {
		conc = n
	}
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)

	type rec struct {
		d   time.Duration
		err error
	}
	out := make(chan rec, n)
	t0 := time.Now()
	done := make(chan struct{}, conc)
	for w := 0; w < conc; w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				err := op(i)
				out <- rec{time.Since(st), err}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < conc; w++ {
		<-done
	}
	close(out)

	res := result{total: time.Since(t0), recs: make([]time.Duration, 0, n)}
	for r := range out {
		res.recs = append(res.recs, r.d)
		if r.err != nil {
			res.errors++
		}
	}
	return res
}

func report(name string, r result) {
	fmt.Printf("%-20s total=%v per_op=%v p50=%v p95=%v p99=%v errors=%d\n",
		name, r.total, r.total/time.Duration(max(len(r.recs), 1)),
		pct(r.recs, 0.50), pct(r.recs, 0.95), pct(r.recs, 0.99), r.errors)
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
