package store

import (
	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/kv"
)

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme returns the persisted theme preference, defaulting to light when
// absent or unrecognized.
func (s *Store) Theme() string {
	blob, ok, err := kv.Get(s.db, kv.KeyTheme)
	if err != nil || !ok {
		return ThemeLight
	}
	if string(blob) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SetTheme persists the theme preference.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return errors.NewInvalidRequest("theme must be one of: light, dark")
	}
	return kv.Set(s.db, kv.KeyTheme, []byte(theme))
}

// ToggleTheme flips between light and dark and returns the new value.
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeDark
	if s.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, s.SetTheme(next)
}
