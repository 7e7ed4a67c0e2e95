package uploader

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader records calls and fails uploads for configured names.
type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, name string, content io.Reader) (string, error) {
	if _, err := io.ReadAll(content); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[name] {
		return "", errors.New("storage unavailable")
	}
	f.uploaded = append(f.uploaded, name)
	return "https://cdn.example.com/" + name, nil
}

func (f *fakeUploader) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func batch(names ...string) []File {
	files := make([]File, len(names))
	for i, name := range names {
		files[i] = File{Name: name, Content: strings.NewReader("data-" + name)}
	}
	return files
}

func TestUploadBatch(t *testing.T) {
	u := &fakeUploader{}
	urls, err := UploadBatch(context.Background(), u, batch("a.png", "b.png", "c.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.png",
		"https://cdn.example.com/b.png",
		"https://cdn.example.com/c.png",
	}, urls, "urls come back in input order regardless of completion order")
	assert.Empty(t, u.deleted)
}

func TestUploadBatchEmpty(t *testing.T) {
	urls, err := UploadBatch(context.Background(), &fakeUploader{}, nil)
	require.NoError(t, err)
	assert.Nil(t, urls)
}

func TestUploadBatchTooMany(t *testing.T) {
	_, err := UploadBatch(context.Background(), &fakeUploader{}, batch("1", "2", "3", "4", "5"))
	require.Error(t, err)
}

func TestUploadBatchAllOrNothing(t *testing.T) {
	u := &fakeUploader{failOn: map[string]bool{"b.png": true}}
	_, err := UploadBatch(context.Background(), u, batch("a.png", "b.png", "c.png"))
	require.Error(t, err)

	// Everything that did make it up is torn down again.
	u.mu.Lock()
	defer u.mu.Unlock()
	assert.ElementsMatch(t, u.uploaded, u.deleted, "no orphaned objects after a failed batch")
	assert.NotContains(t, u.deleted, "b.png")
}
