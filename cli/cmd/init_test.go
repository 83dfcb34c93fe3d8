package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
)

func TestInitScaffoldsProfileDirectory(t *testing.T) {
	root := t.TempDir()

	ic := &Init{ID: "team-dev", Root: root, Parents: []string{"base"}}
	if err := ic.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sidecarPath := filepath.Join(root, "team-dev.profile", initSidecarName)

	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var side struct {
		Parents []string `yaml:"parents"`
	}

	if err := yaml.Unmarshal(data, &side); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(side.Parents) != 1 || side.Parents[0] != "base" {
		t.Fatalf("parents = %v, want [base]", side.Parents)
	}
}

func TestInitRefusesOverwriteWithoutForce(t *testing.T) {
	root := t.TempDir()

	ic := &Init{ID: "x", Root: root}
	if err := ic.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := ic.Run(context.Background()); err == nil {
		t.Fatal("expected error on second Run without --force")
	}

	ic.Force = true
	if err := ic.Run(context.Background()); err != nil {
		t.Fatalf("forced Run: %v", err)
	}
}
