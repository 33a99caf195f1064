package generator

import (
	"fmt"

	"github.com/gosimple/slug"
)

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(slug string) (bool, error)

// UniqueSlug derives a URL slug from the article title, appending a
// numeric suffix until the slug is free.
func UniqueSlug(title string, exists SlugExistsFunc) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
