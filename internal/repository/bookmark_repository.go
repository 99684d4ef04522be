package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogsphere/internal/model"
)

type BookmarkRepository interface {
	// Create reports false when the bookmark already existed.
	Create(ctx context.Context, postID, userID string) (bool, error)
	// Delete reports false when there was nothing to delete.
	Delete(ctx context.Context, postID, userID string) (bool, error)
	Exists(ctx context.Context, postID, userID string) (bool, error)
	BookmarkedAmong(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) BookmarkRepository { return &bookmarkRepository{db: db} }

func (r *bookmarkRepository) Create(ctx context.Context, postID, userID string) (bool, error) {
	b := &model.PostBookmark{ID: uuid.New().String(), PostID: postID, UserID: userID}
	// 唯一键冲突时不报错，通过 RowsAffected 判断是否重复收藏
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookmarkRepository) Delete(ctx context.Context, postID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.PostBookmark{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookmarkRepository) Exists(ctx context.Context, postID, userID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.PostBookmark{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *bookmarkRepository) BookmarkedAmong(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	res := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return res, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.PostBookmark{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		res[id] = true
	}
	return res, nil
}
