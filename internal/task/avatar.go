package task

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

// AvatarUploader stores the avatar and points the profile at it.
type AvatarUploader struct {
	store    media.Store
	profiles repository.ProfileRepository
}

func NewAvatarUploader(store media.Store, profiles repository.ProfileRepository) *AvatarUploader {
	return &AvatarUploader{store: store, profiles: profiles}
}

// Handle implements Handler.
func (u *AvatarUploader) Handle(ctx context.Context, job AvatarJob) error {
	key := media.Key("avatars/"+job.ProfileID, job.Filename, job.Content)
	stored, err := u.store.Put(ctx, key, bytes.NewReader(job.Content))
	if err != nil {
		return fmt.Errorf("store avatar: %w", err)
	}
	if err := u.profiles.SetAvatar(ctx, job.ProfileID, stored); err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	logger.Info("avatar updated", zap.String("profile_id", job.ProfileID), zap.String("path", stored))
	return nil
}
