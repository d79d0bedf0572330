// Package imagehost resolves uploaded image blobs to public URLs.
package imagehost

import (
	"context"
	"fmt"
)

// Blob is an uploaded image.
type Blob struct {
	Filename string
	Data     []byte
}

// Resolver turns a blob into a stable, publicly dereferenceable URL.
// A nil blob resolves to "" without contacting any external system.
type Resolver interface {
	Resolve(ctx context.Context, blob *Blob) (string, error)
}

// UploadError reports that a blob could not be stored by the image host.
type UploadError struct {
	Host string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload failed: %v", e.Host, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Nop is a Resolver for deployments without an image host. Any blob is rejected.
type Nop struct{}

// Resolve implements Resolver.
func (Nop) Resolve(_ context.Context, blob *Blob) (string, error) {
	if blob == nil {
		return "", nil
	}
	return "", &UploadError{Host: "none", Err: fmt.Errorf("no image host configured")}
}
