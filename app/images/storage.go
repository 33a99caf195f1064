package images

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists generated images and returns their public URL.
type Storage interface {
	Save(slug string, data []byte, mimeType string) (string, error)
	Delete(slug string) error
}

// LocalStorage writes images to a directory served as static files.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Save(slug string, data []byte, mimeType string) (string, error) {
	name := slug + extensionFor(mimeType)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", path, err)
	}

	slog.Debug("Hero image stored", "path", path, "size", len(data))
	return s.baseURL + "/" + name, nil
}

func (s *LocalStorage) Delete(slug string) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, slug+".*"))
	if err != nil {
		return fmt.Errorf("failed to find images for %s: %w", slug, err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

var _ Storage = (*LocalStorage)(nil)
