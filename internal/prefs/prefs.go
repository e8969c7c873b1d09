// Package prefs persists tern's UI preferences in ~/.config/tern/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for tern.
type Prefs struct {
	Theme        string   `toml:"theme"`
	LastScope    string   `toml:"last_scope"`
	RecentScopes []string `toml:"recent_scopes"`
}

const (
	defaultPrefsPath = "~/.config/tern/prefs.toml"
	defaultTheme     = "Nightfox"

	// MaxRecentScopes bounds RecentScopes.
	MaxRecentScopes = 8
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Remember records scope as the most recent one, moving it to the front of
// RecentScopes.
func (p *Prefs) Remember(scope string) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return
	}
	p.LastScope = scope
	recent := slices.DeleteFunc(slices.Clone(p.RecentScopes), func(s string) bool { return s == scope })
	recent = append([]string{scope}, recent...)
	if len(recent) > MaxRecentScopes {
		recent = recent[:MaxRecentScopes]
	}
	p.RecentScopes = recent
}

// Load reads preferences from the given path, falling back to defaults if
// the file is missing or unreadable. Preferences are never fatal.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return prefs, nil
	}

	var loaded Prefs
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return prefs, nil
	}

	if theme := strings.TrimSpace(loaded.Theme); theme != "" {
		prefs.Theme = theme
	}
	prefs.LastScope = strings.TrimSpace(loaded.LastScope)
	for _, s := range loaded.RecentScopes {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(prefs.RecentScopes, s) {
			prefs.RecentScopes = append(prefs.RecentScopes, s)
		}
	}
	if len(prefs.RecentScopes) > MaxRecentScopes {
		prefs.RecentScopes = prefs.RecentScopes[:MaxRecentScopes]
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The file is replaced atomically.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
