// Package library lists the PDF books under a configured root directory and
// resolves library-relative paths without letting callers escape the root.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("file not found")
)

// Entry is one PDF in the library.
type Entry struct {
	Path     string `json:"path"` // relative to the library root, slash-separated
	Filename string `json:"filename"`
	Size     int64  `json:"size_bytes"`
}

type Library struct {
	root string
}

// New returns a Library rooted at dir. The directory must exist.
func New(dir string) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve library root failed: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("library root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", abs)
	}
	return &Library{root: abs}, nil
}

// Root returns the absolute library root.
func (l *Library) Root() string {
	return l.root
}

// List walks the root recursively and returns every PDF found, sorted by
// the walk order (lexical within each directory).
func (l *Library) List() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Path:     filepath.ToSlash(rel),
			Filename: d.Name(),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk library failed: %w", err)
	}
	return entries, nil
}

// Resolve turns a library-relative path into an absolute one. Paths that
// would land outside the root are rejected with ErrAccessDenied; missing
// files report ErrNotFound.
func (l *Library) Resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || cleaned == "" {
		return "", ErrAccessDenied
	}
	full := filepath.Join(l.root, cleaned)
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", ErrAccessDenied
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %s failed: %w", rel, err)
	}
	return full, nil
}
