// Package media stores uploaded post images on disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

// ContentTypes are the sniffed MIME types accepted for post images.
var ContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Store writes images below a root directory and serves them back.
type Store struct {
	root     string
	maxBytes int64
}

// NewStore returns a store rooted at root that rejects files over maxBytes.
func NewStore(root string, maxBytes int64) *Store {
	return &Store{root: root, maxBytes: maxBytes}
}

// Save sniffs the content of r, and when it is an accepted image writes it to
// posts/<uuid><ext> below the root. It returns the path relative to the root.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	detected := mimetype.Detect(data)
	if !slices.ContainsFunc(ContentTypes, detected.Is) {
		return "", fmt.Errorf("%s: %w", detected.String(), ErrUnsupportedType)
	}

	rel := filepath.ToSlash(filepath.Join("posts", uuid.NewString()+detected.Extension()))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Delete removes a stored file. Missing files are ignored.
func (s *Store) Delete(rel string) error {
	if rel == "" || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Handler serves stored files. Directory listings are not exposed.
func (s *Store) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// URL returns the public path for a stored file.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + rel
}
