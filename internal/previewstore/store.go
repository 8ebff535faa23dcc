// Package previewstore maps page URLs to stable output file paths
// inside a previews directory.
package previewstore

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrDirRequired = errors.New("preview store dir is required")
	ErrBadPageURL  = errors.New("page url must have a host")
)

type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the output file for rawURL, creating the store
// directory if needed. The same URL always maps to the same file, so
// re-running a page overwrites its previous preview.
func (s *Store) Path(rawURL string) (string, error) {
	if s.Dir == "" {
		return "", ErrDirRequired
	}

	slug, err := Slug(rawURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, slug+".png"), nil
}

// Slug derives a filesystem-safe name from a page URL: host plus path,
// lowercased, with every unsafe rune collapsed to a single dash. Query
// and fragment are ignored.
func Slug(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", ErrBadPageURL
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(parsed.Host + parsed.Path) {
		safe := r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.'
		if safe {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-.")
	if slug == "" {
		return "", ErrBadPageURL
	}
	return slug, nil
}
