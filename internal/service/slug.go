package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/d60-Lab/blogsphere/internal/repository"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// baseSlug 标题转 slug；标题全是符号时退化为随机 id
func baseSlug(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = gonanoid.MustGenerate(slugAlphabet, 10)
	}
	return s
}

// nextSlug returns base if it is free, otherwise base-N with the smallest
// N >= 2 that is not in existing.
func nextSlug(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func uniqueSlug(ctx context.Context, posts repository.PostRepository, title string) (string, error) {
	base := strings.Trim(baseSlug(title), "-")
	existing, err := posts.SlugsWithPrefix(ctx, base)
	if err != nil {
		return "", err
	}
	return nextSlug(base, existing), nil
}
