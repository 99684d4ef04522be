package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	// UsernameTaken reports whether username belongs to a user other than exceptID.
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
