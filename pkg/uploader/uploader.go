package uploader

import (
	"context"
	"fmt"
	"io"
)

// MaxImages caps how many images one post may attach.
const MaxImages = 4

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, content io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// File is one pending upload.
type File struct {
	Name    string
	Content io.Reader
}

type result struct {
	index int
	url   string
	err   error
}

// UploadBatch uploads up to MaxImages files concurrently and returns
// their URLs in input order. It is all-or-nothing: if any upload
// fails, the ones that succeeded are deleted so no orphaned object is
// left behind an unreferenced row.
func UploadBatch(ctx context.Context, u Uploader, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxImages {
		return nil, fmt.Errorf("at most %d images per upload, got %d", MaxImages, len(files))
	}

	results := make(chan result, len(files))
	for i, f := range files {
		go func(i int, f File) {
			url, err := u.Upload(ctx, f.Name, f.Content)
			results <- result{index: i, url: url, err: err}
		}(i, f)
	}

	urls := make([]string, len(files))
	uploaded := make([]int, 0, len(files))
	var firstErr error
	for range files {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		urls[res.index] = res.url
		uploaded = append(uploaded, res.index)
	}

	if firstErr != nil {
		// Cleanup after a failed batch; the original error is the one
		// worth reporting.
		for _, i := range uploaded {
			_ = u.Delete(ctx, files[i].Name)
		}
		return nil, firstErr
	}
	return urls, nil
}
