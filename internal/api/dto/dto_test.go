package dto

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/service"
)

type urlStore struct{}

func (urlStore) Put(context.Context, string, io.Reader) (string, error) { return "", nil }
func (urlStore) URL(p string) string                                  { return "https://cdn.test/" + p }

func TestPostResponse(t *testing.T) {
	created := time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC)
	updated := created.Add(26 * time.Hour)
	banner := "posts/banner/x.png"

	resp := NewPostResponse(service.PostView{
		Post: &model.Post{
			ID:          "p1",
			Title:       "T",
			Slug:        "t",
			Author:      &model.User{Username: "alice"},
			BannerImage: &banner,
			Images:      []model.Image{{Image: "posts/images/a.png"}},
			CreatedAt:   created,
			UpdatedAt:   updated,
		},
		Vote:         model.VoteUp,
		IsBookmarked: true,
	}, urlStore{})

	assert.Equal(t, "alice", resp.Author)
	assert.Equal(t, "03.07.2024, 14:05:09", resp.CreatedAt)
	// updated_at reports the real modification time, not created_at
	assert.Equal(t, "03.08.2024, 16:05:09", resp.UpdatedAt)
	assert.Equal(t, "https://cdn.test/posts/banner/x.png", *resp.BannerImage)
	assert.Equal(t, []ImageResponse{{Image: "https://cdn.test/posts/images/a.png"}}, resp.Images)
	assert.True(t, resp.IsUpvoted)
	assert.True(t, resp.IsBookmarked)
}

func TestFormatTimeUsesUTC(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	ts := time.Date(2024, 3, 8, 2, 30, 0, 0, shanghai)
	assert.Equal(t, "03.07.2024, 18:30:00", FormatTime(ts))
	assert.Equal(t, FormatTime(ts), FormatTime(ts.UTC()))
}

func TestPostResponseEmptyRelations(t *testing.T) {
	resp := NewPostResponse(service.PostView{Post: &model.Post{Slug: "x"}}, urlStore{})
	assert.Nil(t, resp.BannerImage)
	assert.NotNil(t, resp.Images)
	assert.Empty(t, resp.Images)
	assert.False(t, resp.IsUpvoted)
}

func TestProfileResponse(t *testing.T) {
	avatar := "avatars/p/a.png"
	resp := NewProfileResponse(&model.Profile{
		ID:      "p",
		Gender:  model.GenderFemale,
		Country: "KE",
		Avatar:  &avatar,
		User:    &model.User{Username: "alice", Email: "a@x.io", FirstName: "Alice", LastName: "L"},
	}, urlStore{})
	assert.Equal(t, "Alice L", resp.FullName)
	assert.Equal(t, "female", resp.Gender)
	assert.Equal(t, "https://cdn.test/avatars/p/a.png", *resp.Avatar)

	resp = NewProfileResponse(&model.Profile{ID: "p"}, urlStore{})
	assert.Nil(t, resp.Avatar)
}
