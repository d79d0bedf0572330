package imagehost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Local stores blobs in a directory that is served under BaseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Resolve implements Resolver. Files are named product_<uuid>.<ext>, the
// extension taken from the sniffed content type.
func (l *Local) Resolve(ctx context.Context, blob *Blob) (string, error) {
	if blob == nil {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := "bin"
	if kind, err := filetype.Match(blob.Data); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}
	name := fmt.Sprintf("product_%s.%s", strings.ReplaceAll(uuid.NewString(), "-", ""), ext)

	// Write to a temp name first so a failed upload never leaves a partial file behind.
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", &UploadError{Host: "local", Err: err}
	}
	if _, err := tmp.Write(blob.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &UploadError{Host: "local", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &UploadError{Host: "local", Err: err}
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", &UploadError{Host: "local", Err: err}
	}
	return l.baseURL + "/" + name, nil
}
