// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/blogsphere/internal/model"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps
// every query on the same in-memory instance.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...), "migrate")
	return db
}

// CreateUser inserts a user with the given username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "First" + username,
		LastName:  "Last",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post directly, bypassing the service layer.
func CreatePost(t testing.TB, db *gorm.DB, author *model.User, slug string, upvotes int, createdAt time.Time) *model.Post {
	t.Helper()
	p := &model.Post{
		ID:        uuid.New().String(),
		Title:     slug,
		Slug:      slug,
		AuthorID:  author.ID,
		Body:      "body of " + slug,
		Upvotes:   upvotes,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Omit("Author", "Images").Create(p).Error)
	return p
}
