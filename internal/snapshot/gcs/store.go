// Package gcs archives raw fetched bodies in Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to write snapshots.
type Config struct {
	Bucket string
	Prefix string
}

// Store writes raw page snapshots keyed by content hash.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed snapshot store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Put uploads the body under <prefix>/<hash>.html and returns a gs:// URI.
// Re-putting the same hash overwrites with identical bytes, so the call is
// idempotent.
func (s *Store) Put(ctx context.Context, hash, contentType string, body []byte) (string, error) {
	if strings.TrimSpace(hash) == "" {
		return "", fmt.Errorf("hash is required")
	}
	path := s.objectPath(hash)
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(body)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy snapshot: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

func (s *Store) objectPath(hash string) string {
	if s.prefix == "" {
		return hash + ".html"
	}
	return s.prefix + "/" + hash + ".html"
}
