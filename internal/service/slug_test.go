package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSlug(t *testing.T) {
	assert.Equal(t, "hello-world", nextSlug("hello-world", nil))
	assert.Equal(t, "hello-world-2", nextSlug("hello-world", []string{"hello-world"}))
	assert.Equal(t, "hello-world-3", nextSlug("hello-world", []string{"hello-world", "hello-world-2", "hello-world-x"}))
	assert.Equal(t, "hello-world-2", nextSlug("hello-world", []string{"hello-world", "hello-world-3"}))
}

func TestBaseSlug(t *testing.T) {
	assert.Equal(t, "hello-world", baseSlug("Hello, World!"))
	s := baseSlug("!!!")
	assert.Len(t, s, 10)
	assert.Regexp(t, `^[a-z0-9]+$`, s)
}
