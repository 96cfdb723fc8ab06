package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store is a file cache for rendered blog post HTML, keyed by slug.
// The file name carries an xxHash of the slug so a renamed slug never
// collides with a stale file from a previous name.
type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(slug string) string {
	hash := xxhash.Sum64String(slug)
	return filepath.Join(s.Dir, "posts", fmt.Sprintf("%s_%016x.html", slug, hash))
}

// Write stores rendered HTML for a slug.
func (s *Store) Write(slug, html string) error {
	path := s.path(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0644)
}

// Read returns the cached HTML for a slug if present and fresher than
// maxAge.
func (s *Store) Read(slug string, maxAge time.Duration) (string, bool) {
	path := s.path(slug)

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// Clear drops the cache entry for a slug, including leftovers from a
// previous hash of the same slug prefix.
func (s *Store) Clear(slug string) error {
	if err := os.Remove(s.path(slug)); err != nil && !os.IsNotExist(err) {
		return err
	}

	matches, err := filepath.Glob(filepath.Join(s.Dir, "posts", slug+"_*.html"))
	if err != nil {
		return nil
	}
	for _, match := range matches {
		os.Remove(match)
	}
	return nil
}

// ClearOld removes cached files older than maxAge.
func (s *Store) ClearOld(maxAge time.Duration) error {
	root := filepath.Join(s.Dir, "posts")
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
