package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "karel.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "maze"

[program]
source = "maze.kl"
entry = "solve"

[world]
file = "maze.world"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Project.Name != "maze" {
		t.Errorf("name = %q, want maze", m.Project.Name)
	}
	if m.Program.Entry != "solve" {
		t.Errorf("entry = %q, want solve", m.Program.Entry)
	}
	if m.SourcePath() != filepath.Join(m.Dir, "maze.kl") {
		t.Errorf("SourcePath = %q", m.SourcePath())
	}
	if m.WorldPath() != filepath.Join(m.Dir, "maze.world") {
		t.Errorf("WorldPath = %q", m.WorldPath())
	}
}

func TestLoadDefaultsEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
source = "a.kl"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Program.Entry != "main" {
		t.Errorf("entry = %q, want main", m.Program.Entry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected an error for a missing manifest")
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\nname=")
	if _, err := Load(dir); err == nil {
		t.Error("expected a parse error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[program]
source = "a.kl"
`)
	nested := filepath.Join(root, "sub", "deeper")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m == nil {
		t.Fatal("manifest not found from nested directory")
	}
	if m.Dir != root {
		t.Errorf("Dir = %q, want %q", m.Dir, root)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m != nil {
		t.Error("expected nil for a directory tree without a manifest")
	}
}

func TestEmptyPaths(t *testing.T) {
	m := &Manifest{Dir: "/tmp/x"}
	if m.SourcePath() != "" {
		t.Error("SourcePath should be empty when unset")
	}
	if m.WorldPath() != "" {
		t.Error("WorldPath should be empty when unset")
	}
}
