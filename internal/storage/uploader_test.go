package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploaderStoresFile(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(filepath.Join(dir, "media"), "http://cdn.test/")
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), "Photo.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://cdn.test/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, "media", filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalUploaderRejects(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "http://cdn.test")
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupported)

	big := bytes.NewReader(make([]byte, MaxUploadBytes+1))
	_, err = u.Upload(context.Background(), "a.mp4", "video/mp4", big)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccepts(t *testing.T) {
	assert.True(t, Accepts("image/jpeg"))
	assert.True(t, Accepts("video/mp4; codecs=avc1"))
	assert.False(t, Accepts("application/pdf"))
	assert.False(t, Accepts(""))
}
