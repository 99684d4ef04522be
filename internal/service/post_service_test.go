package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogsphere/internal/cache"
	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/testutil"
	"github.com/d60-Lab/blogsphere/pkg/errcode"
)

func TestCreatePostDerivesUniqueSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	in := PostInput{Title: strp("Hello World"), Body: strp("first")}
	p1, err := f.posts.Create(ctx, alice, in)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", p1.Slug)
	assert.Equal(t, "alice", p1.Author.Username)

	p2, err := f.posts.Create(ctx, alice, in)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", p2.Slug)
}

func TestCreatePostWithImages(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	img := pngBytes(t)

	p, err := f.posts.Create(context.Background(), alice, PostInput{
		Title:  strp("Gallery"),
		Body:   strp("pics"),
		Banner: &Upload{Filename: "banner.png", Content: img},
		Images: []Upload{{Filename: "a.png", Content: img}, {Filename: "b.png", Content: img}},
	})
	require.NoError(t, err)
	require.NotNil(t, p.BannerImage)
	assert.True(t, strings.HasPrefix(*p.BannerImage, "posts/banner/"))
	require.Len(t, p.Images, 2)
	assert.True(t, strings.HasPrefix(p.Images[0].Image, "posts/images/"))
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")

	_, err := f.posts.Create(context.Background(), alice, PostInput{
		Title:  strp(strings.Repeat("x", 251)),
		Banner: &Upload{Filename: "x.png", Content: []byte("nope")},
	})
	require.Error(t, err)
	e := errcode.From(err)
	assert.Equal(t, errcode.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "title")
	assert.Equal(t, []string{msgRequired}, e.Fields["body"])
	assert.Equal(t, []string{msgInvalidImage}, e.Fields["banner_image"])

	var cnt int64
	f.db.Model(&model.Post{}).Count(&cnt)
	assert.Zero(t, cnt)
}

func TestUpdateOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: strp("Mine"), Body: strp("body")})
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, bob, p.Slug, PostInput{Title: strp("Stolen")}, true)
	assert.True(t, errcode.Is(err, errcode.KindPermission))
	assert.True(t, errcode.Is(f.posts.Delete(ctx, bob, p.Slug), errcode.KindPermission))

	got, err := f.posts.Get(ctx, alice, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)

	updated, err := f.posts.Update(ctx, alice, p.Slug, PostInput{Title: strp("Renamed")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "body", updated.Body)
	assert.Equal(t, p.Slug, updated.Slug, "slug is immutable")

	_, err = f.posts.Update(ctx, alice, p.Slug, PostInput{Title: strp("Only title")}, false)
	assert.True(t, errcode.Is(err, errcode.KindValidation))

	require.NoError(t, f.posts.Delete(ctx, alice, p.Slug))
	_, err = f.posts.Get(ctx, alice, p.Slug)
	assert.True(t, errcode.Is(err, errcode.KindNotFound))
}

func TestBookmarkToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	p := testutil.CreatePost(t, f.db, alice, "post", 0, time.Now())

	require.NoError(t, f.posts.Bookmark(ctx, bob, p.Slug))
	err := f.posts.Bookmark(ctx, bob, p.Slug)
	require.True(t, errcode.Is(err, errcode.KindConflict))
	assert.Equal(t, "Post already bookmarked", err.Error())

	var cnt int64
	f.db.Model(&model.PostBookmark{}).Where("post_id = ?", p.ID).Count(&cnt)
	assert.EqualValues(t, 1, cnt)

	view, err := f.posts.Get(ctx, bob, p.Slug)
	require.NoError(t, err)
	assert.True(t, view.IsBookmarked)

	require.NoError(t, f.posts.Unbookmark(ctx, bob, p.Slug))
	err = f.posts.Unbookmark(ctx, bob, p.Slug)
	require.True(t, errcode.Is(err, errcode.KindConflict))
	assert.Equal(t, "You can't remove a bookmark that did not exist", err.Error())

	assert.True(t, errcode.Is(f.posts.Bookmark(ctx, bob, "missing"), errcode.KindNotFound))
}

func TestVoteSwitching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	p := testutil.CreatePost(t, f.db, alice, "post", 0, time.Now())

	require.NoError(t, f.posts.Upvote(ctx, bob, p.Slug))
	assert.True(t, errcode.Is(f.posts.Upvote(ctx, bob, p.Slug), errcode.KindConflict))

	require.NoError(t, f.posts.Downvote(ctx, bob, p.Slug))
	view, err := f.posts.Get(ctx, bob, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Upvotes)
	assert.Equal(t, 1, view.Downvotes)
	assert.False(t, view.IsUpvoted())
	assert.True(t, view.IsDownvoted())

	var rows int64
	f.db.Model(&model.PostVote{}).Where("post_id = ? AND user_id = ?", p.ID, bob.ID).Count(&rows)
	assert.EqualValues(t, 1, rows)

	require.NoError(t, f.posts.RemoveVote(ctx, bob, p.Slug))
	assert.True(t, errcode.Is(f.posts.RemoveVote(ctx, bob, p.Slug), errcode.KindConflict))
	view, err = f.posts.Get(ctx, bob, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Downvotes)
}

func TestListMineOrdering(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	now := time.Now()
	testutil.CreatePost(t, f.db, alice, "a", 1, now.Add(-3*time.Hour))
	testutil.CreatePost(t, f.db, alice, "b", 5, now.Add(-2*time.Hour))
	testutil.CreatePost(t, f.db, alice, "c", 1, now.Add(-1*time.Hour))

	views, err := f.posts.ListMine(context.Background(), alice)
	require.NoError(t, err)
	var slugs []string
	for _, v := range views {
		slugs = append(slugs, v.Slug)
	}
	assert.Equal(t, []string{"b", "c", "a"}, slugs)
}

func TestListOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	now := time.Now()
	for i, s := range []string{"one", "two", "three"} {
		testutil.CreatePost(t, f.db, alice, s, 0, now.Add(time.Duration(i)*time.Minute))
	}

	_, err := f.posts.List(ctx, alice, ListOptions{Ordering: "title"})
	e := errcode.From(err)
	require.Equal(t, errcode.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "ordering")

	views, err := f.posts.List(ctx, alice, ListOptions{Ordering: "created_at", Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "one", views[0].Slug)

	views, err = f.posts.List(ctx, nil, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, views, 3)
	assert.Equal(t, "three", views[0].Slug)
	assert.False(t, views[0].IsBookmarked)
}

func TestGetCachedPostFollowsAuthorRename(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f := newCachedFixture(t, cache.NewPostCache(client, time.Minute))
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: strp("Cached"), Body: strp("body")})
	require.NoError(t, err)

	v, err := f.posts.Get(ctx, alice, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "alice", v.Author.Username)
	assert.True(t, mr.Exists("post:slug:"+p.Slug))

	_, err = f.profiles.Update(ctx, alice, ProfileInput{Username: strp("alice2")}, true)
	require.NoError(t, err)

	v, err = f.posts.Get(ctx, alice, p.Slug)
	require.NoError(t, err)
	require.NotNil(t, v.Author)
	assert.Equal(t, "alice2", v.Author.Username)
}
