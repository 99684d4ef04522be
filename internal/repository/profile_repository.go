package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogsphere/internal/model"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Save get-or-creates the user's profile, applies fn to it and, in the same
	// transaction, writes userFields onto the users row.
	Save(ctx context.Context, userID string, fn func(*model.Profile), userFields map[string]any) (*model.Profile, error)
	SetAvatar(ctx context.Context, profileID, avatar string) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &profileRepository{db: db} }

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Save(ctx context.Context, userID string, fn func(*model.Profile), userFields map[string]any) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(model.Profile{UserID: userID}).
			Attrs(model.Profile{ID: uuid.New().String(), Gender: model.GenderOther, Country: model.DefaultCountry}).
			FirstOrCreate(&profile).Error
		if err != nil {
			return err
		}
		if fn != nil {
			fn(&profile)
		}
		if err := tx.Omit(clause.Associations).Save(&profile).Error; err != nil {
			return err
		}
		if len(userFields) == 0 {
			return nil
		}
		return tx.Model(&model.User{}).Where("id = ?", userID).Updates(userFields).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, profile.ID)
}

func (r *profileRepository) SetAvatar(ctx context.Context, profileID, avatar string) error {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", profileID).Update("avatar", avatar)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
