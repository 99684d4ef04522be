package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogsphere/internal/cache"
	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/repository"
	"github.com/d60-Lab/blogsphere/pkg/errcode"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/media"
)

const (
	maxTitleLen     = 250
	defaultPageSize = 20
	maxPageSize     = 100
)

// PostView is a post together with the caller's relation to it.
type PostView struct {
	*model.Post
	Vote         int8
	IsBookmarked bool
}

func (v PostView) IsUpvoted() bool   { return v.Vote == model.VoteUp }
func (v PostView) IsDownvoted() bool { return v.Vote == model.VoteDown }

// ListOptions filters the post list. Page 0 returns everything.
type ListOptions struct {
	Ordering string
	Search   string
	Author   string
	Page     int
	PageSize int
}

// PostInput carries create and update fields. Nil pointers mean "not sent".
type PostInput struct {
	Title  *string
	Body   *string
	Banner *Upload
	Images []Upload
}

// PostService 文章领域服务
type PostService interface {
	List(ctx context.Context, caller *model.User, opts ListOptions) ([]PostView, error)
	Create(ctx context.Context, caller *model.User, in PostInput) (*PostView, error)
	ListMine(ctx context.Context, caller *model.User) ([]PostView, error)
	Get(ctx context.Context, caller *model.User, slug string) (*PostView, error)
	// Update replaces title and body when partial is false, otherwise only
	// the fields that were sent.
	Update(ctx context.Context, caller *model.User, slug string, in PostInput, partial bool) (*PostView, error)
	Delete(ctx context.Context, caller *model.User, slug string) error
	Bookmark(ctx context.Context, caller *model.User, slug string) error
	Unbookmark(ctx context.Context, caller *model.User, slug string) error
	Upvote(ctx context.Context, caller *model.User, slug string) error
	Downvote(ctx context.Context, caller *model.User, slug string) error
	RemoveVote(ctx context.Context, caller *model.User, slug string) error
}

type postService struct {
	posts     repository.PostRepository
	votes     repository.VoteRepository
	bookmarks repository.BookmarkRepository
	users     repository.UserRepository
	store     media.Store
	cache     *cache.PostCache
	maxImage  int64
}

func NewPostService(
	posts repository.PostRepository,
	votes repository.VoteRepository,
	bookmarks repository.BookmarkRepository,
	users repository.UserRepository,
	store media.Store,
	postCache *cache.PostCache,
	maxImageBytes int64,
) PostService {
	return &postService{
		posts:     posts,
		votes:     votes,
		bookmarks: bookmarks,
		users:     users,
		store:     store,
		cache:     postCache,
		maxImage:  maxImageBytes,
	}
}

func (s *postService) List(ctx context.Context, caller *model.User, opts ListOptions) ([]PostView, error) {
	f := repository.PostFilter{Ordering: opts.Ordering, Search: opts.Search, AuthorUsername: opts.Author}
	if opts.Page < 0 {
		return nil, errcode.FieldError("page", "Invalid page.")
	}
	if opts.Page > 0 {
		size := opts.PageSize
		if size <= 0 {
			size = defaultPageSize
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		f.Offset = (opts.Page - 1) * size
		f.Limit = size
	}

	posts, err := s.posts.List(ctx, f)
	if errors.Is(err, repository.ErrInvalidOrdering) {
		return nil, errcode.FieldError("ordering",
			fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", opts.Ordering))
	}
	if err != nil {
		return nil, err
	}
	return s.views(ctx, caller, posts)
}

func (s *postService) Create(ctx context.Context, caller *model.User, in PostInput) (*PostView, error) {
	if err := s.validate(in, false); err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, s.posts, *in.Title)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     *in.Title,
		Slug:      slug,
		AuthorID:  caller.ID,
		Body:      *in.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Banner != nil {
		p, err := s.put(ctx, "posts/banner", in.Banner)
		if err != nil {
			return nil, err
		}
		post.BannerImage = &p
	}
	images, err := s.storeImages(ctx, post, in.Images)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, post, images); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发下同名标题抢到了同一个 slug
			return nil, errcode.FieldError("title", "A post with a similar title was created at the same time, please retry.")
		}
		return nil, err
	}

	logger.Info("post created",
		zap.String("title", post.Title),
		zap.String("first_name", caller.FirstName),
		zap.String("slug", post.Slug),
	)
	return s.fresh(ctx, caller, post.Slug)
}

func (s *postService) ListMine(ctx context.Context, caller *model.User) ([]PostView, error) {
	posts, err := s.posts.ListByAuthor(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, caller, posts)
}

func (s *postService) Get(ctx context.Context, caller *model.User, slug string) (*PostView, error) {
	post, err := s.cache.GetOrLoad(ctx, slug, func(ctx context.Context) (*model.Post, error) {
		return s.load(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	// 缓存里不存作者，用户名可能已改
	if post.Author == nil {
		author, err := s.users.GetByID(ctx, post.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("load author of %s: %w", slug, err)
		}
		post.Author = author
	}
	return s.view(ctx, caller, post)
}

func (s *postService) Update(ctx context.Context, caller *model.User, slug string, in PostInput, partial bool) (*PostView, error) {
	post, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != caller.ID {
		return nil, errcode.PermissionDenied("")
	}
	if err := s.validate(in, partial); err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Body != nil {
		post.Body = *in.Body
	}
	if in.Banner != nil {
		p, err := s.put(ctx, "posts/banner", in.Banner)
		if err != nil {
			return nil, err
		}
		post.BannerImage = &p
	}
	post.AuthorID = caller.ID
	post.UpdatedAt = time.Now()

	images, err := s.storeImages(ctx, post, in.Images)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post, images); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, slug)
	return s.fresh(ctx, caller, slug)
}

func (s *postService) Delete(ctx context.Context, caller *model.User, slug string) error {
	post, err := s.load(ctx, slug)
	if err != nil {
		return err
	}
	if post.AuthorID != caller.ID {
		return errcode.PermissionDenied("")
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, slug)
	logger.Info("post deleted", zap.String("slug", slug), zap.String("user_id", caller.ID))
	return nil
}

func (s *postService) Bookmark(ctx context.Context, caller *model.User, slug string) error {
	post, err := s.load(ctx, slug)
	if err != nil {
		return err
	}
	exists, err := s.bookmarks.Exists(ctx, post.ID, caller.ID)
	if err != nil {
		return err
	}
	if exists {
		return errcode.Conflict("Post already bookmarked")
	}
	created, err := s.bookmarks.Create(ctx, post.ID, caller.ID)
	if err != nil {
		return err
	}
	if !created {
		return errcode.Conflict("Post already bookmarked")
	}
	return nil
}

func (s *postService) Unbookmark(ctx context.Context, caller *model.User, slug string) error {
	post, err := s.load(ctx, slug)
	if err != nil {
		return err
	}
	deleted, err := s.bookmarks.Delete(ctx, post.ID, caller.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errcode.Conflict("You can't remove a bookmark that did not exist")
	}
	return nil
}

func (s *postService) Upvote(ctx context.Context, caller *model.User, slug string) error {
	return s.cast(ctx, caller, slug, model.VoteUp, "Post already upvoted")
}

func (s *postService) Downvote(ctx context.Context, caller *model.User, slug string) error {
	return s.cast(ctx, caller, slug, model.VoteDown, "Post already downvoted")
}

func (s *postService) RemoveVote(ctx context.Context, caller *model.User, slug string) error {
	post, err := s.load(ctx, slug)
	if err != nil {
		return err
	}
	removed, err := s.votes.Remove(ctx, post.ID, caller.ID)
	if err != nil {
		return err
	}
	if !removed {
		return errcode.Conflict("You can't remove a vote that did not exist")
	}
	s.cache.Invalidate(ctx, slug)
	return nil
}

func (s *postService) cast(ctx context.Context, caller *model.User, slug string, value int8, dupMsg string) error {
	post, err := s.load(ctx, slug)
	if err != nil {
		return err
	}
	outcome, err := s.votes.Cast(ctx, post.ID, caller.ID, value)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 同一用户并发投票，另一请求已写入
		return errcode.Conflict(dupMsg)
	}
	if err != nil {
		return err
	}
	if outcome == repository.VoteUnchanged {
		return errcode.Conflict(dupMsg)
	}
	s.cache.Invalidate(ctx, slug)
	return nil
}

func (s *postService) load(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.NotFound("")
	}
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", slug, err)
	}
	return post, nil
}

// fresh reloads a post from the database, skipping the cache.
func (s *postService) fresh(ctx context.Context, caller *model.User, slug string) (*PostView, error) {
	post, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, caller, post)
}

func (s *postService) view(ctx context.Context, caller *model.User, post *model.Post) (*PostView, error) {
	views, err := s.views(ctx, caller, []*model.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views 批量查询调用者的投票/收藏状态，避免 N+1
func (s *postService) views(ctx context.Context, caller *model.User, posts []*model.Post) ([]PostView, error) {
	out := make([]PostView, len(posts))
	for i, p := range posts {
		out[i] = PostView{Post: p}
	}
	if caller == nil || len(posts) == 0 {
		return out, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	votes, err := s.votes.VotesAmong(ctx, caller.ID, ids)
	if err != nil {
		return nil, err
	}
	marks, err := s.bookmarks.BookmarkedAmong(ctx, caller.ID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Vote = votes[out[i].ID]
		out[i].IsBookmarked = marks[out[i].ID]
	}
	return out, nil
}

func (s *postService) validate(in PostInput, partial bool) error {
	fields := map[string][]string{}
	checkText := func(name string, v *string, maxLen int) {
		if v == nil {
			if !partial {
				fields[name] = append(fields[name], msgRequired)
			}
			return
		}
		if *v == "" {
			fields[name] = append(fields[name], msgBlank)
			return
		}
		if maxLen > 0 && utf8.RuneCountInString(*v) > maxLen {
			fields[name] = append(fields[name], fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		}
	}
	checkText("title", in.Title, maxTitleLen)
	checkText("body", in.Body, 0)

	if in.Banner != nil {
		if msgs := validateImage(in.Banner, s.maxImage); msgs != nil {
			fields["banner_image"] = msgs
		}
	}
	for i := range in.Images {
		if msgs := validateImage(&in.Images[i], s.maxImage); msgs != nil {
			fields["uploaded_images"] = append(fields["uploaded_images"], msgs...)
		}
	}
	if len(fields) > 0 {
		return errcode.Validation(fields)
	}
	return nil
}

func (s *postService) put(ctx context.Context, prefix string, u *Upload) (string, error) {
	p, err := s.store.Put(ctx, media.Key(prefix, u.Filename, u.Content), bytes.NewReader(u.Content))
	if errors.Is(err, media.ErrUnavailable) {
		return "", errcode.Unavailable("Media storage is temporarily unavailable.", err)
	}
	if err != nil {
		return "", fmt.Errorf("store %s: %w", prefix, err)
	}
	return p, nil
}

func (s *postService) storeImages(ctx context.Context, post *model.Post, uploads []Upload) ([]model.Image, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	images := make([]model.Image, 0, len(uploads))
	for i := range uploads {
		p, err := s.put(ctx, "posts/images", &uploads[i])
		if err != nil {
			return nil, err
		}
		images = append(images, model.Image{
			ID:        uuid.New().String(),
			PostID:    post.ID,
			Image:     p,
			AuthorID:  post.AuthorID,
			CreatedAt: time.Now(),
		})
	}
	return images, nil
}
