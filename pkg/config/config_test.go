package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "docs")
	s := &sample{Count: 7}
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\n"), s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "docs" || s.Count != 7 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	err := Load(writeFile(t, "nmae: typo\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "nmae") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_Validates(t *testing.T) {
	err := Load(writeFile(t, "count: -1\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	s := &sample{Name: "x"}
	if err := Load(writeFile(t, ""), s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "x" {
		t.Errorf("got %+v", s)
	}
}

func TestLoadOptional(t *testing.T) {
	s := &sample{Name: "default"}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), s)
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if s.Name != "default" {
		t.Errorf("defaults lost: %+v", s)
	}

	bad := &sample{Count: -5}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), bad); err == nil {
		t.Error("invalid defaults should fail")
	}

	found, err = LoadOptional(writeFile(t, "name: file\n"), s)
	if err != nil || !found || s.Name != "file" {
		t.Errorf("found=%v err=%v s=%+v", found, err, s)
	}
}
