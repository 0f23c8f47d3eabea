package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NOTTERUN_T_A=base\nNOTTERUN_T_B=base\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.staging"), []byte("NOTTERUN_T_A=staging\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "staging")
	t.Setenv("NOTTERUN_T_A", "")
	t.Setenv("NOTTERUN_T_B", "")
	t.Setenv("NOTTERUN_T_C", "preset")
	os.Unsetenv("NOTTERUN_T_A")
	os.Unsetenv("NOTTERUN_T_B")

	loaded, err := LoadEnv(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded: %v", loaded)
	}
	if got := os.Getenv("NOTTERUN_T_A"); got != "staging" {
		t.Errorf("A: got %q, want staging", got)
	}
	if got := os.Getenv("NOTTERUN_T_B"); got != "base" {
		t.Errorf("B: got %q, want base", got)
	}
	if got := os.Getenv("NOTTERUN_T_C"); got != "preset" {
		t.Errorf("C: got %q", got)
	}
}

func TestLoadEnv_NoFiles(t *testing.T) {
	t.Setenv("APP_ENV", "")
	loaded, err := LoadEnv(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded: %v", loaded)
	}
}
