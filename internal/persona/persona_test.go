package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_AllFieldsSet(t *testing.T) {
	p := Default()
	if p.SystemPrompt == "" || p.AckTurn == "" || p.Fallback == "" ||
		p.RecordClosing == "" || p.RecordUsage == "" || p.RecordError == "" {
		t.Fatalf("default persona has empty fields: %+v", p)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")
	content := "systemPrompt: custom prompt\nfallback: custom fallback\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.SystemPrompt != "custom prompt" {
		t.Errorf("systemPrompt = %q", p.SystemPrompt)
	}
	if p.Fallback != "custom fallback" {
		t.Errorf("fallback = %q", p.Fallback)
	}
	// Omitted fields keep the built-in defaults.
	if p.RecordUsage != Default().RecordUsage {
		t.Errorf("recordUsage should keep default, got %q", p.RecordUsage)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("systemPrompt: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")

	p := Default()
	p.SystemPrompt = "round trip"
	if err := Save(path, p); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.SystemPrompt != "round trip" {
		t.Errorf("systemPrompt = %q", got.SystemPrompt)
	}
}
