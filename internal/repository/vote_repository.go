package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/model"
)

// VoteOutcome describes what Cast did.
type VoteOutcome int

const (
	VoteUnchanged VoteOutcome = iota
	VoteCreated
	VoteSwitched
)

type VoteRepository interface {
	Cast(ctx context.Context, postID, userID string, value int8) (VoteOutcome, error)
	// Remove reports false when the user had not voted.
	Remove(ctx context.Context, postID, userID string) (bool, error)
	VotesAmong(ctx context.Context, userID string, postIDs []string) (map[string]int8, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository { return &voteRepository{db: db} }

func counterColumn(value int8) string {
	if value > 0 {
		return "upvotes"
	}
	return "downvotes"
}

func bump(tx *gorm.DB, postID string, value int8, delta int) error {
	col := counterColumn(value)
	return tx.Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

// Cast 投票：一条 (post, user) 记录，方向相反时翻转并同步两个计数器
func (r *voteRepository) Cast(ctx context.Context, postID, userID string, value int8) (VoteOutcome, error) {
	outcome := VoteUnchanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PostVote
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v := &model.PostVote{ID: uuid.New().String(), PostID: postID, UserID: userID, Value: value}
			if err := tx.Create(v).Error; err != nil {
				return err
			}
			outcome = VoteCreated
			return bump(tx, postID, value, 1)
		case err != nil:
			return err
		case existing.Value == value:
			return nil
		}

		// Update 会把新值写回 existing，先记下旧方向
		prev := existing.Value
		if err := tx.Model(&existing).Update("value", value).Error; err != nil {
			return err
		}
		if err := bump(tx, postID, prev, -1); err != nil {
			return err
		}
		outcome = VoteSwitched
		return bump(tx, postID, value, 1)
	})
	if err != nil {
		return VoteUnchanged, err
	}
	return outcome, nil
}

func (r *voteRepository) Remove(ctx context.Context, postID, userID string) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PostVote
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Delete(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return bump(tx, postID, existing.Value, -1)
	})
	return removed, err
}

func (r *voteRepository) VotesAmong(ctx context.Context, userID string, postIDs []string) (map[string]int8, error) {
	res := make(map[string]int8, len(postIDs))
	if len(postIDs) == 0 {
		return res, nil
	}
	var rows []model.PostVote
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, v := range rows {
		res[v.PostID] = v.Value
	}
	return res, nil
}
