package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogsphere/internal/model"
)

var ErrInvalidOrdering = errors.New("invalid ordering")

// 允许的排序字段，对应 ?ordering=
var orderings = map[string]string{
	"created_at":  "posts.created_at ASC",
	"-created_at": "posts.created_at DESC",
	"updated_at":  "posts.updated_at ASC",
	"-updated_at": "posts.updated_at DESC",
}

// PostFilter narrows List. Zero values mean "no constraint".
type PostFilter struct {
	Ordering       string
	Search         string
	AuthorUsername string
	Offset         int
	Limit          int
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post, images []model.Image) error
	Update(ctx context.Context, post *model.Post, newImages []model.Image) error
	Delete(ctx context.Context, postID string) error
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	List(ctx context.Context, f PostFilter) ([]*model.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Images", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("post_images.created_at ASC")
	})
}

// Create 在一个事务内写入 post 及其图集
func (r *postRepository) Create(ctx context.Context, post *model.Post, images []model.Image) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		for i := range images {
			images[i].PostID = post.ID
		}
		if err := tx.CreateInBatches(images, 100).Error; err != nil {
			return fmt.Errorf("insert images: %w", err)
		}
		post.Images = append(post.Images, images...)
		return nil
	})
}

func (r *postRepository) Update(ctx context.Context, post *model.Post, newImages []model.Image) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 计数器只通过投票接口修改
		if err := tx.Model(post).
			Select("title", "body", "banner_image", "author_id", "updated_at").
			Updates(post).Error; err != nil {
			return err
		}
		if len(newImages) == 0 {
			return nil
		}
		for i := range newImages {
			newImages[i].PostID = post.ID
		}
		if err := tx.CreateInBatches(newImages, 100).Error; err != nil {
			return fmt.Errorf("insert images: %w", err)
		}
		post.Images = append(post.Images, newImages...)
		return nil
	})
}

// Delete removes the post with its gallery, votes and bookmarks.
func (r *postRepository) Delete(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.Image{}, &model.PostVote{}, &model.PostBookmark{}} {
			if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", postID).Delete(&model.Post{}).Error
	})
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var p model.Post
	if err := withRelations(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 让 % 和 _ 按字面匹配
func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r *postRepository) List(ctx context.Context, f PostFilter) ([]*model.Post, error) {
	q := withRelations(r.db.WithContext(ctx)).Model(&model.Post{})

	order := "posts.created_at DESC"
	if f.Ordering != "" {
		o, ok := orderings[f.Ordering]
		if !ok {
			return nil, ErrInvalidOrdering
		}
		order = o
	}
	if f.Search != "" {
		q = q.Where(`LOWER(posts.title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	if f.AuthorUsername != "" {
		q = q.Joins("JOIN users ON users.id = posts.author_id").Where("users.username = ?", f.AuthorUsername)
	}
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	var res []*model.Post
	err := q.Order(order).Find(&res).Error
	return res, err
}

// ListByAuthor 按赞数降序、创建时间降序
func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	var res []*model.Post
	err := withRelations(r.db.WithContext(ctx)).
		Where("author_id = ?", authorID).
		Order("upvotes DESC").Order("created_at DESC").
		Find(&res).Error
	return res, err
}
