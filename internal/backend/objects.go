package backend

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, data []byte) (publicURL string, err error)
}

// DiskObjects writes uploads below Root; the api serves Root at /uploads.
type DiskObjects struct {
	Root    string
	BaseURL string
}

func (d DiskObjects) Put(_ context.Context, bucket, objectPath string, data []byte) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if bucket == "" || strings.Contains(bucket, "/") || bucket == ".." || clean == "" || clean == "." {
		return "", ErrInvalidPath
	}

	full := filepath.Join(d.Root, bucket, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	public := "/uploads/" + bucket + "/" + clean
	if d.BaseURL != "" {
		public = strings.TrimRight(d.BaseURL, "/") + public
	}
	return public, nil
}
