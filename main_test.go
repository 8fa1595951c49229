package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateApplyInspect(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "old")
	newDir := filepath.Join(tmpDir, "new")
	writeTree(t, oldDir, map[string]string{
		"keep.txt":   "same",
		"change.txt": "version one",
		"drop.txt":   "bye",
	})
	newFiles := map[string]string{
		"keep.txt":       "same",
		"change.txt":     "version two",
		"nested/add.txt": "hello",
	}
	writeTree(t, newDir, newFiles)

	patchPath := filepath.Join(tmpDir, "release.zip")
	metricsPath := filepath.Join(tmpDir, "dirdelta.prom")

	out, err := execute(t, "create", oldDir, newDir, "--out", patchPath, "--metrics-file", metricsPath, "--workers", "2")
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "updated:    1") {
		t.Errorf("create output missing counts:\n%s", out)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(prom), "dirdelta_run_total") {
		t.Errorf("metrics file missing run counter")
	}

	out, err = execute(t, "inspect", patchPath, "--list")
	if err != nil {
		t.Fatalf("inspect failed: %v\n%s", err, out)
	}
	for _, want := range []string{"created   nested/add.txt", "deleted   drop.txt", "updated   change.txt", "unchanged keep.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	outDir := filepath.Join(tmpDir, "rebuilt")
	out, err = execute(t, "apply", oldDir, patchPath, "--out", outDir)
	if err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}
	for rel, want := range newFiles {
		got, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", rel, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "drop.txt")); !os.IsNotExist(err) {
		t.Errorf("deleted file was restored")
	}
}

func TestCreateMissingRootLeavesNoFile(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "new")
	writeTree(t, newDir, map[string]string{"a": "1"})
	patchPath := filepath.Join(tmpDir, "out.zip")

	if _, err := execute(t, "create", filepath.Join(tmpDir, "missing"), newDir, "--out", patchPath); err == nil {
		t.Fatal("create with a missing root succeeded")
	}
	if _, err := os.Stat(patchPath); !os.IsNotExist(err) {
		t.Errorf("patch file exists after failed create")
	}
}

func TestMalformedInvocations(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"create without args", []string{"create"}},
		{"create without out", []string{"create", "a", "b"}},
		{"apply with one arg", []string{"apply", "a", "--out", "x"}},
		{"inspect too many", []string{"inspect", "a", "b"}},
		{"unknown command", []string{"merge"}},
		{"bad diff library", []string{"inspect", "a", "--diff-library", "xdelta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("%v succeeded, want error", tt.args)
			}
		})
	}
}

func TestEnvironmentFlagPrecedence(t *testing.T) {
	t.Setenv("DIRDELTA_HASH_ALGO", "sha256")
	t.Setenv("DIRDELTA_WORKERS", "3")

	create, _, err := newRootCmd().Find([]string{"create"})
	if err != nil {
		t.Fatal(err)
	}
	if err := create.ParseFlags([]string{"--workers", "5"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(create, &globalFlags{workers: 5})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HashAlgo != "sha256" {
		t.Errorf("HashAlgo = %q, want env value sha256", cfg.HashAlgo)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want flag value 5", cfg.Workers)
	}
}
