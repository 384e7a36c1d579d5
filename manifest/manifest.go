// Package manifest handles karel.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const manifestName = "karel.toml"

// Manifest represents a karel.toml project configuration.
type Manifest struct {
	Project Project    `toml:"project"`
	Program ProgramCfg `toml:"program"`
	World   WorldCfg   `toml:"world"`
	Store   StoreCfg   `toml:"store"`

	// Dir is the directory containing the karel.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// ProgramCfg configures the source file and entry symbol.
type ProgramCfg struct {
	Source string `toml:"source"`
	Entry  string `toml:"entry"`
}

// WorldCfg configures where the initial world comes from: a snapshot file,
// or a named world in the store. File wins when both are set.
type WorldCfg struct {
	File  string `toml:"file"`
	Store string `toml:"store"`
}

// StoreCfg overrides the world-store database location.
type StoreCfg struct {
	Path string `toml:"path"`
}

// defaults returns a manifest pre-filled with every default value; decoding
// a file into it overrides only the keys the file actually sets.
func defaults(dir string) Manifest {
	return Manifest{
		Dir:     dir,
		Program: ProgramCfg{Entry: "main"},
	}
}

// Load parses the karel.toml in dir.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	m := defaults(abs)
	path := filepath.Join(abs, manifestName)
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad searches startDir and its ancestors for a karel.toml and
// loads the first one found. Returns nil without error when the walk
// reaches the filesystem root empty-handed.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", startDir, err)
	}

	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, manifestName)); err == nil {
			return Load(dir)
		}
	}
	return nil, nil
}

// SourcePath returns the absolute path of the configured source file, or ""
// when none is configured.
func (m *Manifest) SourcePath() string {
	if m.Program.Source == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Program.Source)
}

// WorldPath returns the absolute path of the configured world snapshot, or
// "" when none is configured.
func (m *Manifest) WorldPath() string {
	if m.World.File == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.World.File)
}
