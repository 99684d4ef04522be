package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/testutil"
)

func TestPostRepositoryCreateWithImages(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "alice")

	post := &model.Post{ID: uuid.New().String(), Title: "Hello", Slug: "hello", AuthorID: author.ID, Body: "b"}
	images := []model.Image{
		{ID: uuid.New().String(), Image: "posts/a.png", AuthorID: author.ID},
		{ID: uuid.New().String(), Image: "posts/b.png", AuthorID: author.ID},
	}
	require.NoError(t, repo.Create(ctx, post, images))

	got, err := repo.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Author.Username)
	require.Len(t, got.Images, 2)
	for _, img := range got.Images {
		assert.Equal(t, post.ID, img.PostID)
	}
}

func TestPostRepositoryListByAuthorOrdering(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	now := time.Now()

	testutil.CreatePost(t, db, alice, "a", 5, now.Add(-3*time.Hour))
	testutil.CreatePost(t, db, alice, "b", 10, now.Add(-1*time.Hour))
	testutil.CreatePost(t, db, alice, "c", 10, now.Add(-2*time.Hour))
	testutil.CreatePost(t, db, bob, "d", 50, now)

	posts, err := repo.ListByAuthor(context.Background(), alice.ID)
	require.NoError(t, err)

	var slugs []string
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	assert.Equal(t, []string{"b", "c", "a"}, slugs)
}

func TestPostRepositoryListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	now := time.Now()

	testutil.CreatePost(t, db, alice, "go-generics", 0, now.Add(-2*time.Hour))
	testutil.CreatePost(t, db, bob, "rust-traits", 0, now.Add(-1*time.Hour))
	testutil.CreatePost(t, db, bob, "go-channels", 0, now)

	t.Run("ordering", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{Ordering: "created_at"})
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "go-generics", posts[0].Slug)
		assert.Equal(t, "go-channels", posts[2].Slug)
	})

	t.Run("invalid ordering", func(t *testing.T) {
		_, err := repo.List(ctx, PostFilter{Ordering: "upvotes"})
		assert.ErrorIs(t, err, ErrInvalidOrdering)
	})

	t.Run("search and author", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{Search: "GO-", AuthorUsername: "bob"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "go-channels", posts[0].Slug)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{Search: "_"})
		require.NoError(t, err)
		assert.Empty(t, posts)

		posts, err = repo.List(ctx, PostFilter{Search: "%"})
		require.NoError(t, err)
		assert.Empty(t, posts)

		testutil.CreatePost(t, db, alice, "100%_done", 0, now.Add(-3*time.Hour))
		posts, err = repo.List(ctx, PostFilter{Search: "%_d"})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "100%_done", posts[0].Slug)
	})

	t.Run("pagination", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{Ordering: "-created_at", Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "rust-traits", posts[0].Slug)
	})
}

func TestPostRepositoryDeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	bookmarks := NewBookmarkRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	post := &model.Post{ID: uuid.New().String(), Title: "x", Slug: "x", AuthorID: alice.ID, Body: "b"}
	require.NoError(t, repo.Create(ctx, post, []model.Image{{ID: uuid.New().String(), Image: "i.png"}}))
	_, err := bookmarks.Create(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	_, err = votes.Cast(ctx, post.ID, alice.ID, model.VoteUp)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, post.ID))

	for _, m := range []any{&model.Post{}, &model.Image{}, &model.PostVote{}, &model.PostBookmark{}} {
		var cnt int64
		require.NoError(t, db.Model(m).Count(&cnt).Error)
		assert.Zero(t, cnt)
	}
}

func TestPostRepositorySlugsWithPrefix(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	now := time.Now()
	testutil.CreatePost(t, db, alice, "hello", 0, now)
	testutil.CreatePost(t, db, alice, "hello-2", 0, now)
	testutil.CreatePost(t, db, alice, "hellos", 0, now)

	slugs, err := repo.SlugsWithPrefix(context.Background(), "hello")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hello", "hello-2"}, slugs)
}

func TestBookmarkRepositoryIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice, "p", 0, time.Now())

	created, err := repo.Create(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)

	marked, err := repo.BookmarkedAmong(ctx, alice.ID, []string{post.ID, "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{post.ID: true}, marked)

	removed, err := repo.Delete(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestVoteRepositorySwitchKeepsCountersConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice, "p", 0, time.Now())

	counters := func() (int, int) {
		var p model.Post
		require.NoError(t, db.First(&p, "id = ?", post.ID).Error)
		return p.Upvotes, p.Downvotes
	}

	out, err := repo.Cast(ctx, post.ID, alice.ID, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteCreated, out)
	up, down := counters()
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	out, err = repo.Cast(ctx, post.ID, alice.ID, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteUnchanged, out)

	out, err = repo.Cast(ctx, post.ID, alice.ID, model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, VoteSwitched, out)
	up, down = counters()
	assert.Equal(t, 0, up)
	assert.Equal(t, 1, down)

	var rows int64
	require.NoError(t, db.Model(&model.PostVote{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	removed, err := repo.Remove(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	up, down = counters()
	assert.Equal(t, 0, up)
	assert.Equal(t, 0, down)

	removed, err = repo.Remove(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestProfileRepositorySaveCreatesLazily(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	_, err := repo.GetByUserID(ctx, alice.ID)
	require.Error(t, err)

	p, err := repo.Save(ctx, alice.ID, func(p *model.Profile) { p.Bio = "hi" }, map[string]any{"first_name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Bio)
	assert.Equal(t, model.GenderOther, p.Gender)
	assert.Equal(t, model.DefaultCountry, p.Country)
	assert.Equal(t, "Alice", p.User.FirstName)

	again, err := repo.Save(ctx, alice.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	require.NoError(t, repo.SetAvatar(ctx, p.ID, "avatars/x.png"))
	got, err := repo.GetByUserID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Avatar)
	assert.Equal(t, "avatars/x.png", *got.Avatar)

	assert.Error(t, repo.SetAvatar(ctx, "missing", "x"))
}

func TestUserRepositoryUsernameTaken(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	taken, err := repo.UsernameTaken(ctx, "alice", bob.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.UsernameTaken(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}
