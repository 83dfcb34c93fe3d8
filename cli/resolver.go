package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolve returns a [kong.ConfigurationLoader] that reads a YAML document
// and exposes its top-level "name" mapping as flag defaults.
//
// Kong flags use hyphens (e.g. "log-level"); YAML keys conventionally use
// underscores (e.g. "log_level"). Resolve tries both forms.
func resolve(name string) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return config{}, nil
		}

		var doc map[string]any

		if err := yaml.Unmarshal(data, &doc); err != nil {
			return config{}, nil
		}

		section, ok := doc[name].(map[string]any)
		if !ok {
			return config{}, nil
		}

		return config(flatten(section)), nil
	}
}

// config implements [kong.Resolver] for a flat key/value configuration map.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	name := flag.Name
	underscoreName := strings.ReplaceAll(name, "-", "_")

	if value, ok := r[name]; ok {
		return value, nil
	}

	if value, ok := r[underscoreName]; ok {
		return value, nil
	}

	return nil, nil
}

// flatten converts YAML-decoded numeric types to strings, which Kong
// expects when resolving scalar flag values.
func flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))

	for k, v := range m {
		switch n := v.(type) {
		case int:
			out[k] = strconv.Itoa(n)
		case int64:
			out[k] = strconv.FormatInt(n, 10)
		case float64:
			out[k] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[k] = v
		}
	}

	return out
}
