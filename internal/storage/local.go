package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local keeps images in <root>/uploads, served statically under /uploads/.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(root, UploadsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Dir() string {
	return filepath.Join(l.root, UploadsDir)
}

// Save writes to a temp file first and renames it into place.
func (l *Local) Save(_ context.Context, name string, data []byte) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}

	f, err := os.CreateTemp(l.Dir(), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to sync image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close image: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to chmod image: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(l.Dir(), name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move image into place: %w", err)
	}

	return path.Join(UploadsDir, name), nil
}

func (l *Local) Delete(_ context.Context, imagePath string) error {
	name, err := objectName(imagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.Dir(), name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", imagePath, err)
	}
	return nil
}

// List skips directories and in-flight temp files.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir())
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, path.Join(UploadsDir, e.Name()))
	}
	return paths, nil
}

func (l *Local) URL(imagePath string) string {
	return "/" + strings.TrimPrefix(imagePath, "/")
}
