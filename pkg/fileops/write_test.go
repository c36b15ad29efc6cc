package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func readFileContent(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func TestAtomicWrite(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), ".cursor", "mcp.json")

		if err := AtomicWrite(dest, []byte(`{"mcpServers":{}}`), 0o644); err != nil {
			t.Fatalf("AtomicWrite failed: %v", err)
		}
		if got := readFileContent(t, dest); got != `{"mcpServers":{}}` {
			t.Errorf("Expected written content, got %q", got)
		}
	})

	t.Run("overwrites existing file and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "mcp.json")
		if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := AtomicWrite(dest, []byte("new"), 0o644); err != nil {
			t.Fatalf("AtomicWrite failed: %v", err)
		}
		if got := readFileContent(t, dest); got != "new" {
			t.Errorf("Expected 'new', got %q", got)
		}

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("Temporary file left behind: %s", e.Name())
			}
		}
	})

	t.Run("fails when destination is a directory", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "taken")
		if err := os.Mkdir(target, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(target, "child"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := AtomicWrite(target, []byte("data"), 0o644); err == nil {
			t.Error("Expected error when destination is a non-empty directory")
		}
	})
}

func TestAtomicCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.json")
	if err := os.WriteFile(src, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "nested", "dest.json")
	if err := AtomicCopy(src, dest); err != nil {
		t.Fatalf("AtomicCopy failed: %v", err)
	}
	if got := readFileContent(t, dest); got != "payload" {
		t.Errorf("Expected 'payload', got %q", got)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dest)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("Expected permissions 0600, got %o", info.Mode().Perm())
		}
	}

	if err := AtomicCopy(filepath.Join(dir, "missing"), dest); err == nil {
		t.Error("Expected error for missing source")
	}
	if err := AtomicCopy(dir, dest); err == nil {
		t.Error("Expected error when source is a directory")
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDirectoryExists(nested); err != nil {
		t.Fatalf("EnsureDirectoryExists failed: %v", err)
	}
	if err := EnsureDirectoryExists(nested); err != nil {
		t.Errorf("Second call should be a no-op, got: %v", err)
	}
	if info, err := os.Stat(nested); err != nil || !info.IsDir() {
		t.Errorf("Expected directory at %s", nested)
	}
}

func TestBackupFile(t *testing.T) {
	now := time.Date(2025, 3, 4, 15, 6, 7, 0, time.UTC)

	t.Run("missing file is not an error", func(t *testing.T) {
		got, err := BackupFile(filepath.Join(t.TempDir(), "mcp.json"), now)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("Expected no backup path, got %q", got)
		}
	})

	t.Run("copies existing file with timestamp suffix", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcp.json")
		if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := BackupFile(path, now)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if want := path + ".backup_20250304_150607"; got != want {
			t.Errorf("Expected backup %q, got %q", want, got)
		}
		if content := readFileContent(t, got); content != "v1" {
			t.Errorf("Expected backup content 'v1', got %q", content)
		}
		if content := readFileContent(t, path); content != "v1" {
			t.Errorf("Original must be untouched, got %q", content)
		}
	})

	t.Run("same second does not overwrite earlier backup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcp.json")
		var got []string
		for _, content := range []string{"v1", "v2", "v3"} {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			backup, err := BackupFile(path, now)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got = append(got, backup)
		}

		base := path + ".backup_20250304_150607"
		want := []string{base, base + "_1", base + "_2"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Backup %d: expected %q, got %q", i, want[i], got[i])
			}
		}
		for i, content := range []string{"v1", "v2", "v3"} {
			if c := readFileContent(t, want[i]); c != content {
				t.Errorf("Backup %d: expected content %q, got %q", i, content, c)
			}
		}
	})

	t.Run("directory is rejected", func(t *testing.T) {
		if _, err := BackupFile(t.TempDir(), now); err == nil {
			t.Error("Expected error when backing up a directory")
		}
	})
}
