// Package storage accepts uploaded product media and returns the public
// URL it will be served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

var (
	ErrTooLarge    = errors.New("file exceeds the 10 MiB limit")
	ErrUnsupported = errors.New("only image and video files are accepted")
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// LocalUploader writes files under Dir and builds URLs below BaseURL. The
// router serves Dir at /uploads.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

// NewLocalUploader creates dir when missing.
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalUploader{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Accepts reports whether contentType is an image or video type.
func Accepts(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "video/")
}

// Upload stores r under a random name keeping the original extension.
// Oversized input is rejected and its partial file removed.
func (u *LocalUploader) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if !Accepts(contentType) {
		return "", ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(u.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return fmt.Sprintf("%s/uploads/%s", u.BaseURL, name), nil
}
