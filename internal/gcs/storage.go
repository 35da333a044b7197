package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

// IsURI reports whether s names a Cloud Storage object.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.HasSuffix(parts[1], "/") {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ObjectBase returns the final element of a GCS URI's object path,
// e.g. "gs://bucket/backups/tx.db" gives "tx.db".
func ObjectBase(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Client is the Cloud Storage implementation of StorageService. A new
// storage client is created per call; backups are infrequent.
type Client struct {
	opts []option.ClientOption
}

// NewClient returns a Client. An empty credentialsFile falls back to
// Application Default Credentials.
func NewClient(credentialsFile string) *Client {
	c := &Client{}
	if credentialsFile != "" {
		c.opts = append(c.opts, option.WithCredentialsFile(credentialsFile))
	}
	return c
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
func (c *Client) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx, c.opts...)
	if err != nil {
		return fmt.Errorf("UploadFile: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/vnd.sqlite3"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return nil
}

// DownloadFile copies a GCS object to filePath, replacing it atomically.
func (c *Client) DownloadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	client, err := storage.NewClient(ctx, c.opts...)
	if err != nil {
		return fmt.Errorf("DownloadFile: create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("DownloadFile: open GCS object reader: %w", err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".download-*")
	if err != nil {
		return fmt.Errorf("DownloadFile: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("DownloadFile: read GCS object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("DownloadFile: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("DownloadFile: rename: %w", err)
	}

	return nil
}
