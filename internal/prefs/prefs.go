// Package prefs persists terminal UI preferences in
// ~/.config/kitchen/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for the terminal UI.
type Prefs struct {
	Theme       string `toml:"theme"`
	HideChecked bool   `toml:"hide_checked"`
	// LastList is the list the UI reopens its cursor on.
	LastList string `toml:"last_list,omitempty"`
}

const (
	defaultPath  = "~/.config/kitchen/prefs.toml"
	defaultTheme = "Nightfox"
)

// Defaults returns the preferences used before anything is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path, or the default path when empty. A
// missing, unreadable or invalid file yields Defaults.
func Load(path string) Prefs {
	resolved, err := Resolve(path)
	if err != nil {
		return Defaults()
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return Defaults()
	}
	var p Prefs
	if err := toml.Unmarshal(raw, &p); err != nil {
		return Defaults()
	}
	return p.normalized()
}

// Save writes p to path, creating parent directories. The file is replaced
// atomically so a crash never leaves half a prefs file behind.
func Save(path string, p Prefs) error {
	resolved, err := Resolve(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	raw, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Resolve expands ~ and returns an absolute path, defaulting when empty.
func Resolve(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = defaultPath
	}
	if rest, ok := strings.CutPrefix(p, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		p = filepath.Join(home, rest)
	}
	return filepath.Abs(p)
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.LastList = strings.TrimSpace(p.LastList)
	return p
}
