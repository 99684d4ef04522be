// Package dto converts domain values to response bodies.
package dto

import (
	"time"

	"github.com/d60-Lab/blogsphere/internal/service"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

// TimeLayout is the display format for timestamps, e.g. 07.03.2024, 14:05:09.
const TimeLayout = "01.02.2006, 15:04:05"

type ImageResponse struct {
	Image string `json:"image"`
}

type PostResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Author       string          `json:"author"`
	Body         string          `json:"body"`
	BannerImage  *string         `json:"banner_image"`
	Upvotes      int             `json:"upvotes"`
	Downvotes    int             `json:"downvotes"`
	IsUpvoted    bool            `json:"is_upvoted"`
	IsBookmarked bool            `json:"is_bookmarked"`
	Images       []ImageResponse `json:"images"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

// FormatTime renders t in UTC so output does not depend on the host zone.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

func NewPostResponse(v service.PostView, store media.Store) PostResponse {
	resp := PostResponse{
		ID:           v.ID,
		Title:        v.Title,
		Slug:         v.Slug,
		Body:         v.Body,
		Upvotes:      v.Upvotes,
		Downvotes:    v.Downvotes,
		IsUpvoted:    v.IsUpvoted(),
		IsBookmarked: v.IsBookmarked,
		Images:       make([]ImageResponse, 0, len(v.Images)),
		CreatedAt:    FormatTime(v.CreatedAt),
		UpdatedAt:    FormatTime(v.UpdatedAt),
	}
	if v.Author != nil {
		resp.Author = v.Author.Username
	}
	if v.BannerImage != nil && *v.BannerImage != "" {
		u := store.URL(*v.BannerImage)
		resp.BannerImage = &u
	}
	for _, img := range v.Images {
		resp.Images = append(resp.Images, ImageResponse{Image: store.URL(img.Image)})
	}
	return resp
}

func NewPostList(views []service.PostView, store media.Store) []PostResponse {
	out := make([]PostResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewPostResponse(v, store))
	}
	return out
}
