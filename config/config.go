// Package config loads the on-disk profile layout described informally by
// spec.md §6: a directory tree whose leaf subdirectories named
// "<id>.profile" hold file configurations, feeding an overlay.Registry.
// Reads are wrapped in a readahead buffer the way the teacher wraps its
// source-file reads, and an optional YAML sidecar ("profile.yaml" per
// directory) supplies profile attributes.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/shellcore/overlay"
)

// profileSuffix is the leaf-directory marker identifying a profile
// (spec.md §6 "Profile on-disk layout").
const profileSuffix = ".profile"

// sidecarName is the optional per-profile metadata file consulted for
// attributes and parent ids.
const sidecarName = "profile.yaml"

// sidecar is the YAML shape of a profile's metadata file.
type sidecar struct {
	Parents    []string          `yaml:"parents"`
	Attributes map[string]string `yaml:"attributes"`
}

// Load walks root and returns an overlay.MapRegistry populated with every
// discovered profile (spec.md §6: "Profile id is the path from the root
// with the filesystem separator replaced by '-' and the '.profile' suffix
// stripped").
func Load(root string) (overlay.MapRegistry, error) {
	reg := make(overlay.MapRegistry)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || !strings.HasSuffix(d.Name(), profileSuffix) {
			return nil
		}

		profile, loadErr := loadProfileDir(root, path)
		if loadErr != nil {
			return loadErr
		}

		reg[profile.ID] = profile

		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func loadProfileDir(root, dir string) (overlay.Profile, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return overlay.Profile{}, err
	}

	id := idFromRelPath(rel)

	p := overlay.Profile{ID: id, Files: make(map[string][]byte)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return overlay.Profile{}, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if entry.Name() == sidecarName {
			side, sideErr := readSidecar(filepath.Join(dir, entry.Name()))
			if sideErr != nil {
				return overlay.Profile{}, sideErr
			}

			p.ParentIDs = side.Parents
			p.Attributes = side.Attributes

			continue
		}

		data, readErr := readFileAhead(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			return overlay.Profile{}, readErr
		}

		p.Files[entry.Name()] = data
	}

	return p, nil
}

func idFromRelPath(rel string) string {
	rel = strings.TrimSuffix(rel, profileSuffix)

	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

func readSidecar(path string) (sidecar, error) {
	data, err := readFileAhead(path)
	if err != nil {
		return sidecar{}, err
	}

	var s sidecar
	if err := yaml.Unmarshal(data, &s); err != nil {
		return sidecar{}, err
	}

	return s, nil
}

// readFileAhead opens path and reads it through a read-ahead buffer, the
// same pattern the teacher applies to parsed source input.
func readFileAhead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	return io.ReadAll(ra)
}
