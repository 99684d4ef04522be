package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/casdoor/oss"
)

var _ oss.StorageInterface = (*FileSystem)(nil)

// FileSystem is a local-disk oss.StorageInterface rooted at Folder.
type FileSystem struct {
	Folder string
}

// NewFileSystem creates folder if needed.
func NewFileSystem(folder string) (*FileSystem, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve media folder: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media folder: %w", err)
	}
	return &FileSystem{Folder: abs}, nil
}

// GetFullPath joins p onto the root folder, refusing to escape it.
func (fs *FileSystem) GetFullPath(p string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(p, fs.Folder))
	return filepath.Join(fs.Folder, clean)
}

func (fs *FileSystem) Get(p string) (*os.File, error) {
	return os.Open(fs.GetFullPath(p))
}

func (fs *FileSystem) GetStream(p string) (io.ReadCloser, error) {
	return os.Open(fs.GetFullPath(p))
}

func (fs *FileSystem) Put(p string, r io.Reader) (*oss.Object, error) {
	fp := fs.GetFullPath(p)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("write file: %w", err)
	}
	// 原子替换，避免读到写了一半的文件
	if err := os.Rename(tmp.Name(), fp); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("rename file: %w", err)
	}

	return &oss.Object{Path: p, Name: filepath.Base(p), Size: n, StorageInterface: fs}, nil
}

func (fs *FileSystem) Delete(p string) error {
	return os.Remove(fs.GetFullPath(p))
}

func (fs *FileSystem) List(p string) ([]*oss.Object, error) {
	var objects []*oss.Object
	root := fs.GetFullPath(p)
	err := filepath.Walk(root, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fp == root || info.IsDir() {
			return nil
		}
		mt := info.ModTime()
		rel, _ := filepath.Rel(fs.Folder, fp)
		objects = append(objects, &oss.Object{
			Path:             filepath.ToSlash(rel),
			Name:             info.Name(),
			LastModified:     &mt,
			Size:             info.Size(),
			StorageInterface: fs,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return objects, nil
}

func (fs *FileSystem) GetEndpoint() string { return "/" }

func (fs *FileSystem) GetURL(p string) (string, error) { return p, nil }
