package model

import "time"

// Post 文章
type Post struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Title       string    `gorm:"type:varchar(250);not null"`
	Slug        string    `gorm:"type:varchar(300);uniqueIndex;not null"`
	AuthorID    string    `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Author      *User     `gorm:"foreignKey:AuthorID"`
	Body        string    `gorm:"type:text;not null"`
	BannerImage *string   `gorm:"type:varchar(512)"`
	Upvotes     int       `gorm:"not null;default:0"`
	Downvotes   int       `gorm:"not null;default:0"`
	Images      []Image   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (Post) TableName() string { return "posts" }

// Image 文章图集中的一张图片
type Image struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"type:varchar(36);index:idx_image_post;not null"`
	Image     string    `gorm:"type:varchar(512);not null"`
	AuthorID  string    `gorm:"type:varchar(36);index"`
	CreatedAt time.Time
}

func (Image) TableName() string { return "post_images" }

const (
	VoteUp   int8 = 1
	VoteDown int8 = -1
)

// PostVote 投票关系；(post_id, user_id) 唯一，保证同一用户只能处于赞或踩其中之一
type PostVote struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_vote_post_user"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_vote_post_user;index:idx_vote_user"`
	Value     int8      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostVote) TableName() string { return "post_votes" }

// PostBookmark 收藏关系
type PostBookmark struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_bookmark_post_user"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_bookmark_post_user;index:idx_bookmark_user"`
	CreatedAt time.Time
}

func (PostBookmark) TableName() string { return "post_bookmarks" }
