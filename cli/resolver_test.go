package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func TestResolveConfigReadsSection(t *testing.T) {
	doc := "config:\n  log_level: debug\n  log_format: text\nother:\n  foo: bar\n"

	loader := resolve("config")

	resolver, err := loader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	val, err := resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "log-level"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if val != "debug" {
		t.Fatalf("log-level = %v, want debug (via underscore fallback)", val)
	}

	other, err := resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "foo"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if other != nil {
		t.Fatalf("expected 'other' section not consulted, got %v", other)
	}
}

func TestResolveMissingSectionReturnsEmptyConfig(t *testing.T) {
	loader := resolve("missing")

	resolver, err := loader(strings.NewReader("existing:\n  foo: bar\n"))
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	val, err := resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "foo"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if val != nil {
		t.Fatalf("expected nil for missing section, got %v", val)
	}
}

func TestResolveNumericValuesStringified(t *testing.T) {
	loader := resolve("config")

	resolver, err := loader(strings.NewReader("config:\n  retries: 3\n"))
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	val, err := resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "retries"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if val != "3" {
		t.Fatalf("retries = %v (%T), want string \"3\"", val, val)
	}
}
