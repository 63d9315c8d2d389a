package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if p := Load(""); p != Defaults() {
		t.Fatalf("Load() = %+v, want %+v", p, Defaults())
	}
}

func TestLoad_ReadsDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "kitchen")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "theme = \"Slate\"\nhide_checked = true\nlast_list = \" weekly \"\n"
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	want := Prefs{Theme: "Slate", HideChecked: true, LastList: "weekly"}
	if p := Load(""); p != want {
		t.Fatalf("Load() = %+v, want %+v", p, want)
	}
}

func TestSave_RoundTripsAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir")
	path := filepath.Join(dir, "prefs.toml")

	first := Prefs{Theme: "Kanagawa", HideChecked: true, LastList: "party"}
	if err := Save(path, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := Prefs{Theme: "Slate"}
	if err := Save(path, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := Load(path); got != second {
		t.Fatalf("Load() = %+v, want %+v", got, second)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only prefs.toml", len(entries))
	}
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Prefs
	}{
		{name: "empty theme", content: "theme = \"\"\nhide_checked = true\n", want: Prefs{Theme: defaultTheme, HideChecked: true}},
		{name: "invalid toml", content: "not valid toml {{{\n", want: Defaults()},
		{name: "wrong type", content: "hide_checked = \"yes\"\n", want: Defaults()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if p := Load(path); p != tt.want {
				t.Fatalf("Load() = %+v, want %+v", p, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := Resolve("  ~/prefs.toml ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join(home, "prefs.toml"); got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}
