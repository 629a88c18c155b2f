package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"ctph/internal/fuzzy"
)

// FileSystem implements Source over a billy filesystem.
type FileSystem struct {
	fs        billy.Filesystem
	root      string
	recursive bool
}

// Assert that FileSystem implements the Source interface
var _ Source = (*FileSystem)(nil)

// NewFileSystem returns a source rooted at root within fs. Unless recursive
// is set only the regular files directly inside root are visited. A root
// naming a regular file yields just that file.
func NewFileSystem(fs billy.Filesystem, root string, recursive bool) *FileSystem {
	if root == "" {
		root = "."
	}
	return &FileSystem{
		fs:        fs,
		root:      root,
		recursive: recursive,
	}
}

// NewOSFileSystem returns a source over the host filesystem. Object names
// are absolute paths, as ssdeep prints them by default.
func NewOSFileSystem(root string, recursive bool) (*FileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fuzzy.ErrIO, err)
	}
	return NewFileSystem(osfs.New(string(filepath.Separator)), abs, recursive), nil
}

func (s *FileSystem) Walk(ctx context.Context, fn func(Object) error) error {
	info, err := s.fs.Lstat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %w", fuzzy.ErrIO, err)
	}
	if info.Mode().IsRegular() {
		return fn(Object{Name: s.root, Size: info.Size()})
	}

	return util.Walk(s.fs, s.root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %w", fuzzy.ErrIO, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			if !s.recursive && filepath.Clean(name) != filepath.Clean(s.root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return fn(Object{Name: name, Size: info.Size()})
	})
}

func (s *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w", fuzzy.ErrIO, err)
	}
	return f, nil
}
