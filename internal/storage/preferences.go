package storage

import (
	"context"
	"fmt"
)

// Supported UI preferences
const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

// Preferences is the persisted UI configuration
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// DefaultPreferences applies when nothing has been stored yet
var DefaultPreferences = Preferences{Theme: ThemeLight, Language: LanguageEnglish}

// Validate rejects unsupported theme or language values. Empty fields are
// treated as "leave unchanged".
func (p Preferences) Validate() error {
	switch p.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("unsupported theme %q", p.Theme)
	}
	switch p.Language {
	case "", LanguageEnglish, LanguageArabic:
	default:
		return fmt.Errorf("unsupported language %q", p.Language)
	}
	return nil
}

// RTL reports whether the language is written right to left
func (p Preferences) RTL() bool {
	return p.Language == LanguageArabic
}

// LoadPreferences reads the stored preferences over the defaults
func LoadPreferences(ctx context.Context, kv KV) (Preferences, error) {
	theme, err := GetOr(ctx, kv, KeyTheme, DefaultPreferences.Theme)
	if err != nil {
		return Preferences{}, err
	}
	lang, err := GetOr(ctx, kv, KeyLanguage, DefaultPreferences.Language)
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{Theme: theme, Language: lang}, nil
}

// SavePreferences validates p and stores its non-empty fields, returning the
// resulting preferences.
func SavePreferences(ctx context.Context, kv KV, p Preferences) (Preferences, error) {
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	if p.Theme != "" {
		if err := kv.Set(ctx, KeyTheme, p.Theme); err != nil {
			return Preferences{}, err
		}
	}
	if p.Language != "" {
		if err := kv.Set(ctx, KeyLanguage, p.Language); err != nil {
			return Preferences{}, err
		}
	}
	return LoadPreferences(ctx, kv)
}
