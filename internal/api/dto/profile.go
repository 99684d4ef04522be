package dto

import (
	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

type ProfileResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Bio      string  `json:"bio"`
	Gender   string  `json:"gender"`
	Country  string  `json:"country"`
	Avatar   *string `json:"avatar"`
}

func NewProfileResponse(p *model.Profile, store media.Store) ProfileResponse {
	resp := ProfileResponse{
		ID:      p.ID,
		Bio:     p.Bio,
		Gender:  string(p.Gender),
		Country: p.Country,
	}
	if p.User != nil {
		resp.Username = p.User.Username
		resp.Email = p.User.Email
		resp.FullName = p.User.FullName()
	}
	if p.Avatar != nil && *p.Avatar != "" {
		u := store.URL(*p.Avatar)
		resp.Avatar = &u
	}
	return resp
}
