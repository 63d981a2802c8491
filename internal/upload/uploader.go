// Package upload inserts media that must be uploaded before it can be
// shown.
//
// Uploads run in two phases. Start inserts an upload placeholder node
// synchronously and returns; the upload runs in the background and a
// follow-up transaction swaps the placeholder, found by its upload id,
// for the real node. A failed upload leaves the placeholder in the
// document marked failed, from where it can be retried or canceled.
package upload

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// Errors returned by upload sessions.
var (
	// ErrUpload wraps every failure reported by an Uploader.
	ErrUpload = errors.New("upload: failed")

	// ErrUnknownUpload means no upload with the given id is tracked.
	ErrUnknownUpload = errors.New("upload: unknown upload")

	// ErrNotFailed means Retry was called on an upload that has not failed.
	ErrNotFailed = errors.New("upload: upload has not failed")

	// ErrPlaceholderGone means the placeholder was removed from the
	// document before the upload finished.
	ErrPlaceholderGone = errors.New("upload: placeholder no longer in document")

	// ErrNoFiles means an upload was started without files.
	ErrNoFiles = errors.New("upload: no files")
)

// Media kinds, matching the placeholder "kind" attribute.
const (
	KindImage = "image"
	KindVideo = "video"
	KindFile  = "file"
)

// File is media waiting to be uploaded. Data is kept so a failed upload
// can be retried.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Type returns the content type, inferred from the file extension when
// unset.
func (f File) Type() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// videoTypes covers video extensions missing from Go's built-in table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".ogv":  "video/ogg",
}

// Kind returns the media kind for the file's content type.
func (f File) Kind() string {
	t := f.Type()
	switch {
	case strings.HasPrefix(t, "image/"):
		return KindImage
	case strings.HasPrefix(t, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// Result locates uploaded media.
type Result struct {
	// URL is where the media can be fetched.
	URL string
	// Key identifies the object in the backing store.
	Key string
}

// Uploader stores media and returns where it can be fetched. The editor
// never talks to storage directly.
type Uploader interface {
	Upload(ctx context.Context, f File) (Result, error)
}

// Func adapts an ordinary function to the Uploader interface.
type Func func(ctx context.Context, f File) (Result, error)

// Upload implements Uploader.
func (fn Func) Upload(ctx context.Context, f File) (Result, error) {
	return fn(ctx, f)
}
