// Package storage holds sticker image files. Every stored image is addressed
// by a relative path of the form "uploads/<name>", whichever backend keeps
// the bytes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const UploadsDir = "uploads"

var ErrInvalidPath = errors.New("invalid image path")

// Store is implemented by the local directory and the S3 backends.
type Store interface {
	// Save writes data under name and returns its relative image path.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Delete removes the image. A missing image is not an error.
	Delete(ctx context.Context, imagePath string) error
	// List returns the image paths of every stored file.
	List(ctx context.Context) ([]string, error)
	// URL is the public address the image is served from.
	URL(imagePath string) string
}

var prefixPattern = regexp.MustCompile(`[^a-z0-9-]+`)

// FileName builds <prefix>_<yyyymmddhhmmss>_<uuid8>.jpg.
func FileName(prefix string, now time.Time) string {
	prefix = prefixPattern.ReplaceAllString(strings.ToLower(prefix), "")
	if prefix == "" {
		prefix = "sticker"
	}
	return fmt.Sprintf("%s_%s_%s.jpg", prefix, now.UTC().Format("20060102150405"), uuid.New().String()[:8])
}

// objectName validates imagePath and returns the file name inside the
// uploads directory.
func objectName(imagePath string) (string, error) {
	p := strings.TrimPrefix(imagePath, "/")
	dir, name := path.Split(p)
	if dir != UploadsDir+"/" || !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, imagePath)
	}
	return name, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// ImagePath returns the image path of a stored file name.
func ImagePath(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return UploadsDir + "/" + name, nil
}
