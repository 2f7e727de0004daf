package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultMatchesDocumentedFallbacks(t *testing.T) {
	c := Default()
	if c.Listen.Addr != ":8000" || c.Listen.RPCPath != "/rpc" || c.Codec.Kind != "tagged" {
		t.Fatalf("got %+v, want the documented demo defaults", c)
	}
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	c, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Fatalf("got %+v, want Default()", c)
	}
}

func TestLoadMergesYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "listen:\n  addr: \":9090\"\ncodec:\n  kind: binary\n"
	writeFile(t, path, yamlBody)

	c, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Listen.Addr != ":9090" {
		t.Fatalf("got addr %q, want the overridden value", c.Listen.Addr)
	}
	if c.Codec.Kind != "binary" {
		t.Fatalf("got codec %q, want the overridden value", c.Codec.Kind)
	}
	// fields absent from the YAML keep their defaults
	if c.Listen.RPCPath != "/rpc" {
		t.Fatalf("got rpc_path %q, want the default preserved", c.Listen.RPCPath)
	}
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatal("expected an error reading a nonexistent config file")
	}
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v, want a missing env file to be tolerated", err)
	}
}

func TestDurationHelpersConvertMillisecondFields(t *testing.T) {
	c := Default()
	c.Session.ReleaseFlushIntervalMS = 50
	c.Session.DrainGraceMS = 2000

	if got := c.ReleaseFlushInterval(); got != 50*time.Millisecond {
		t.Fatalf("got %v, want 50ms", got)
	}
	if got := c.DrainGrace(); got != 2*time.Second {
		t.Fatalf("got %v, want 2s", got)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
