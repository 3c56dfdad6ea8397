package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore persists files on disk under a base directory and serves them
// from a base URL.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes the object under a unique name and returns its public URL.
func (s *LocalStore) Put(ctx context.Context, obj Object) (string, error) {
	if len(obj.Data) == 0 {
		return "", ErrEmptyObject
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := UniqueName(obj.Name, time.Now())
	if err := s.Save(name, obj.Data); err != nil {
		return "", err
	}
	return s.URL(name), nil
}

// Save writes the given bytes to the relative path under the base dir.
func (s *LocalStore) Save(filename string, data []byte) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write media file: %w", err)
	}
	return nil
}

// SaveStream copies from reader into the target file path.
func (s *LocalStore) SaveStream(filename string, r io.Reader) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare media directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write media stream: %w", err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStore) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStore) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// Dir returns the base directory.
func (s *LocalStore) Dir() string { return s.baseDir }

// URL returns the public URL of a stored file.
func (s *LocalStore) URL(filename string) string {
	escaped := strings.Split(filepath.ToSlash(filename), "/")
	for i, part := range escaped {
		escaped[i] = url.PathEscape(part)
	}
	return s.baseURL + "/" + strings.Join(escaped, "/")
}

func (s *LocalStore) resolve(filename string) (string, error) {
	clean := filepath.Clean("/" + filename)
	if clean == "/" {
		return "", fmt.Errorf("invalid media path %q", filename)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// UniqueName builds a dated, collision free object name keeping a sanitised
// form of the original file name.
func UniqueName(original string, now time.Time) string {
	base := sanitizeFilename(filepath.Base(original))
	if base == "" || base == "." || base == "_" {
		base = "image"
	}
	return fmt.Sprintf("%s/%s-%s", now.UTC().Format("20060102"), uuid.NewString(), base)
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
