package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/shellcore/log"
)

// initSidecarName mirrors config.sidecarName; duplicated here rather than
// exported from config to keep that package's surface read-only.
const initSidecarName = "profile.yaml"

// Init scaffolds an empty profile directory under the profile root,
// writing a sidecar metadata file with the requested parent chain.
type Init struct {
	ID      string   `arg:"" help:"Profile identifier to create, e.g. 'team-dev'" name:"id"`
	Root    string   `       help:"Profile root directory"                                    default:"." short:"r"`
	Parents []string `       help:"Parent profile ids this profile overlays"                              short:"p"`
	Force   bool     `       help:"Overwrite an existing sidecar"                                         short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	dir := filepath.Join(i.Root, i.ID+".profile")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrWriteConfig.With(slog.String("dir", dir)).Wrap(err)
	}

	sidecarPath := filepath.Join(dir, initSidecarName)

	if _, statErr := os.Stat(sidecarPath); statErr == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", sidecarPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.Marshal(struct {
		Parents    []string          `yaml:"parents"`
		Attributes map[string]string `yaml:"attributes"`
	}{Parents: i.Parents})
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", sidecarPath)).Wrap(err)
	}

	if err := os.WriteFile(sidecarPath, data, 0o644); err != nil {
		return ErrWriteConfig.With(slog.String("file", sidecarPath)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized profile directory",
		slog.String("id", i.ID),
		slog.String("dir", dir),
	)

	return nil
}
