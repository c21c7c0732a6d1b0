package attendance

import (
	"context"
	"fmt"
	"strings"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// NormalizeTheme maps free-form input to a known theme (default light).
func NormalizeTheme(s string) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeLight
	}
}

// LoadTheme reads the theme slot. Missing or unreadable values give ThemeLight.
func LoadTheme(ctx context.Context, store KV) Theme {
	if store == nil {
		return ThemeLight
	}
	v, ok, err := store.Get(ctx, ThemeKey)
	if err != nil || !ok {
		return ThemeLight
	}
	return NormalizeTheme(v)
}

// SaveTheme writes the normalized theme and returns what was stored.
func SaveTheme(ctx context.Context, store KV, theme string) (Theme, error) {
	t := NormalizeTheme(theme)
	if store == nil {
		return t, nil
	}
	if err := store.Set(ctx, ThemeKey, string(t)); err != nil {
		return t, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return t, nil
}
