package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedErrorsRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	keys := []string{
		"errors.name_too_long", "errors.creator_missing", "errors.room_not_found",
		"errors.room_full", "errors.not_in_room", "errors.already_seated",
		"errors.capacity", "errors.invalid_arguments", "errors.internal",
	}
	if err := c.Require(keys...); err != nil {
		t.Fatalf("Require: %v", err)
	}
	got, err := c.Render("errors.name_too_long", map[string]any{"MaxNameLength": 50})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "50") {
		t.Fatalf("limit not rendered: %q", got)
	}
}

func TestRenderMissingKeyFails(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("errors.nope", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("close.parse", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
	if err := c.Require("errors.room_full", "errors.nope"); err == nil || !strings.Contains(err.Error(), "errors.nope") {
		t.Fatalf("Require should name the missing key, got %v", err)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  room_full: \"full!\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("errors.room_full", nil)
	if err != nil || got != "full!" {
		t.Fatalf("override not applied: %q %v", got, err)
	}
	if got, _ := c.Render("errors.capacity", nil); got == "" {
		t.Fatalf("defaults must survive overrides")
	}
}

func TestOverrideDirRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("errors:\n  room_full: x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("errors:\n  room_full: 3\n")); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
