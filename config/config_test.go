package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsNilNil(t *testing.T) {
	dir := t.TempDir()

	p, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Fatalf("expected a nil project for a missing %s, got %+v", FileName, p)
	}
}

func TestInitThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	if err := Init(dir, "Hello"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p == nil {
		t.Fatalf("expected a project after Init, got nil")
	}
	if p.Package != "Hello" {
		t.Fatalf("got package %q, want %q", p.Package, "Hello")
	}
}

func TestLoadDecodesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	contents := "package: Sample\noutput: bin/sample\nextended: true\nlinkLibraries:\n  - -lm\nruntimeObject: rt.o\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Package != "Sample" || p.Output != "bin/sample" || !p.Extended || p.RuntimeOf != "rt.o" {
		t.Fatalf("decoded project mismatch: %+v", p)
	}
	if len(p.LinkLibs) != 1 || p.LinkLibs[0] != "-lm" {
		t.Fatalf("got link libs %v, want [-lm]", p.LinkLibs)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := ioutil.WriteFile(path, []byte("package: [unterminated"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected an error decoding malformed YAML")
	}
}

func TestInitFailsWhenDirMissing(t *testing.T) {
	if err := Init(filepath.Join(os.TempDir(), "vsopc-config-test-does-not-exist"), "X"); err == nil {
		t.Fatalf("expected an error writing into a nonexistent directory")
	}
}
