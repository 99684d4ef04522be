package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/internal/testutil"
)

func BenchmarkBookmarkToggle(b *testing.B) {
	db := testutil.NewDB(b)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()

	// 预创建用户与文章
	users := make([]*model.User, 100)
	for i := range users {
		users[i] = testutil.CreateUser(b, db, fmt.Sprintf("u%04d", i))
	}
	posts := make([]*model.Post, 100)
	for i := range posts {
		posts[i] = testutil.CreatePost(b, db, users[i], fmt.Sprintf("p%04d", i), 0, time.Now())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		u := users[rand.Intn(len(users))]
		p := posts[rand.Intn(len(posts))]
		if created, _ := repo.Create(ctx, p.ID, u.ID); !created {
			_, _ = repo.Delete(ctx, p.ID, u.ID)
		}
	}
}

func BenchmarkListByAuthor(b *testing.B) {
	db := testutil.NewDB(b)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(b, db, "author")
	now := time.Now()
	for i := 0; i < 500; i++ {
		testutil.CreatePost(b, db, author, fmt.Sprintf("post-%d", i), rand.Intn(100), now.Add(-time.Duration(i)*time.Minute))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = repo.ListByAuthor(ctx, author.ID)
	}
}
