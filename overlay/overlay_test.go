package overlay

import (
	"bytes"
	"testing"
)

func TestOverlayFlattensParentChain(t *testing.T) {
	reg := MapRegistry{
		"base": {
			ID:    "base",
			Files: map[string][]byte{"app.properties": []byte("a=1\nb=2\n")},
		},
		"child": {
			ID:        "child",
			ParentIDs: []string{"base"},
			Files:     map[string][]byte{"app.properties": []byte("b=20\n")},
		},
	}

	got, err := Overlay(reg["child"], reg, "")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	props := parseProperties(got.Files["app.properties"])

	if props.values["a"] != "1" {
		t.Errorf("expected inherited a=1, got %q", props.values["a"])
	}

	if props.values["b"] != "20" {
		t.Errorf("expected overridden b=20, got %q", props.values["b"])
	}
}

func TestOverlayDeleteSentinel(t *testing.T) {
	reg := MapRegistry{
		"base": {
			ID:    "base",
			Files: map[string][]byte{"app.properties": []byte("a=1\nb=2\n")},
		},
		"child": {
			ID:        "child",
			ParentIDs: []string{"base"},
			Files:     map[string][]byte{"app.properties": []byte("a=#deleted#\n")},
		},
	}

	got, err := Overlay(reg["child"], reg, "")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	props := parseProperties(got.Files["app.properties"])

	if _, exists := props.values["a"]; exists {
		t.Errorf("expected a removed by delete sentinel, got %v", props.values)
	}

	if props.values["b"] != "2" {
		t.Errorf("expected b=2 preserved, got %q", props.values["b"])
	}
}

func TestOverlayOpaqueFileOverwrites(t *testing.T) {
	reg := MapRegistry{
		"base": {ID: "base", Files: map[string][]byte{"script.sh": []byte("old")}},
		"child": {
			ID:        "child",
			ParentIDs: []string{"base"},
			Files:     map[string][]byte{"script.sh": []byte("new")},
		},
	}

	got, err := Overlay(reg["child"], reg, "")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	if !bytes.Equal(got.Files["script.sh"], []byte("new")) {
		t.Errorf("expected opaque overwrite, got %q", got.Files["script.sh"])
	}
}

func TestOverlayEnvironmentQualified(t *testing.T) {
	reg := MapRegistry{
		"p": {
			ID: "p",
			Files: map[string][]byte{
				"app.properties":      []byte("a=base\n"),
				"app.properties#prod": []byte("a=prod\n"),
			},
		},
	}

	got, err := Overlay(reg["p"], reg, "prod")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	props := parseProperties(got.Files["app.properties"])
	if props.values["a"] != "prod" {
		t.Errorf("expected environment-qualified value, got %q", props.values["a"])
	}

	if _, exists := got.Files["app.properties#prod"]; exists {
		t.Errorf("environment-qualified key must not survive into flattened output")
	}
}

func TestOverlayMissingProfile(t *testing.T) {
	reg := MapRegistry{
		"child": {ID: "child", ParentIDs: []string{"ghost"}},
	}

	_, err := Overlay(reg["child"], reg, "")
	if err == nil {
		t.Fatal("expected MissingProfile error")
	}
}

func TestOverlayIdempotent(t *testing.T) {
	reg := MapRegistry{
		"base":  {ID: "base", Files: map[string][]byte{"app.properties": []byte("a=1\n")}},
		"child": {ID: "child", ParentIDs: []string{"base"}, Files: map[string][]byte{"app.properties": []byte("b=2\n")}},
	}

	once, err := Overlay(reg["child"], reg, "")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	reg["child-overlaid"] = once

	twice, err := Overlay(once, reg, "")
	if err != nil {
		t.Fatalf("Overlay twice: %v", err)
	}

	if string(once.Files["app.properties"]) != string(twice.Files["app.properties"]) {
		t.Errorf("overlay not idempotent: %q != %q", once.Files["app.properties"], twice.Files["app.properties"])
	}
}

func TestOverlayCyclicParents(t *testing.T) {
	reg := MapRegistry{
		"a": {ID: "a", ParentIDs: []string{"b"}, Files: map[string][]byte{"x.properties": []byte("k=a\n")}},
		"b": {ID: "b", ParentIDs: []string{"a"}, Files: map[string][]byte{"x.properties": []byte("k=b\n")}},
	}

	done := make(chan error, 1)

	go func() {
		_, err := Overlay(reg["a"], reg, "")
		done <- err
	}()

	if err := <-done; err != nil {
		t.Fatalf("Overlay with cyclic parents: %v", err)
	}
}

func TestWithAttribute(t *testing.T) {
	p := Profile{ID: "p"}
	p2 := p.WithAttribute("env", "prod")

	if len(p.Attributes) != 0 {
		t.Fatal("WithAttribute must not mutate the receiver")
	}

	if p2.Attributes["env"] != "prod" {
		t.Fatalf("expected env=prod, got %v", p2.Attributes)
	}
}
