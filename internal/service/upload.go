package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
)

// Upload is an uploaded file read fully into memory.
type Upload struct {
	Filename string
	Content  []byte
}

const (
	msgRequired     = "This field is required."
	msgBlank        = "This field may not be blank."
	msgEmptyFile    = "The submitted file is empty."
	msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// validateImage returns field messages for a bad upload, nil when it is fine.
func validateImage(u *Upload, maxBytes int64) []string {
	if u == nil {
		return []string{"No file was submitted."}
	}
	if len(u.Content) == 0 {
		return []string{msgEmptyFile}
	}
	if maxBytes > 0 && int64(len(u.Content)) > maxBytes {
		return []string{fmt.Sprintf("Ensure this file is no larger than %d bytes.", maxBytes)}
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(u.Content)); err != nil {
		return []string{msgInvalidImage}
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if ext != "" && !imageExts[ext] {
		return []string{fmt.Sprintf("File extension %q is not allowed.", strings.TrimPrefix(ext, "."))}
	}
	return nil
}
