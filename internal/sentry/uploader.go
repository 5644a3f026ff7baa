package sentry

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/takeshy/sentryrelease/internal/assets"
)

// UploadResult represents the result of a file upload
type UploadResult struct {
	File         assets.File
	UploadedName string
	Error        error
}

// Uploader attaches files to a release with a pool of workers
type Uploader struct {
	client      *Client
	org         string
	release     string
	urlPrefix   string
	parallelism int
}

// NewUploader creates a new uploader. A parallelism below 1 starts one
// worker per file.
func NewUploader(client *Client, org, release, urlPrefix string, parallelism int) *Uploader {
	return &Uploader{
		client:      client,
		org:         org,
		release:     release,
		urlPrefix:   urlPrefix,
		parallelism: parallelism,
	}
}

// fileStack hands out files last-in first-out. Pop is the only way files
// leave the stack so no file is uploaded twice or skipped.
type fileStack struct {
	mu    sync.Mutex
	files []assets.File
}

func (s *fileStack) pop() (assets.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.files)
	if n == 0 {
		return assets.File{}, false
	}
	f := s.files[n-1]
	s.files = s.files[:n-1]
	return f, true
}

// UploadFiles uploads every file and returns one result per file that was
// attempted. A failed upload does not stop the others. Result order follows
// completion, which is not deterministic. Cancelling ctx stops workers from
// taking further files.
func (u *Uploader) UploadFiles(ctx context.Context, files []assets.File, progressCallback func(result UploadResult)) []UploadResult {
	stack := &fileStack{files: append([]assets.File(nil), files...)}

	workers := Workers(u.parallelism, len(files))

	var (
		mu      sync.Mutex
		results = make([]UploadResult, 0, len(files))
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				file, ok := stack.pop()
				if !ok {
					return nil
				}

				result := u.uploadFile(ctx, file)

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if progressCallback != nil {
					progressCallback(result)
				}
			}
		})
	}
	_ = g.Wait()

	return results
}

// Workers returns how many workers upload n files. A parallelism below 1
// starts one worker per file.
func Workers(parallelism, n int) int {
	if parallelism < 1 || parallelism > n {
		return n
	}
	return parallelism
}

func (u *Uploader) uploadFile(ctx context.Context, file assets.File) UploadResult {
	name := u.urlPrefix + file.Name
	return UploadResult{
		File:         file,
		UploadedName: name,
		Error:        u.client.UploadFile(ctx, u.org, u.release, file, name),
	}
}

// Failed joins the errors of all failed uploads, or returns nil.
func Failed(results []UploadResult) error {
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	return errors.Join(errs...)
}
