package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), "fintrack")
	path := filepath.Join(dir, "credentials.yaml")
	s := NewFileStore(path)

	if err := s.Set("token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
	dinfo, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat(dir) error = %v", err)
	}
	if perm := dinfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir mode = %o, want 700", perm)
	}
}

func TestFileStore_ClearLastKeyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	s := NewFileStore(path)

	if err := s.Set("token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Clear("token"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after clearing last key: %v", err)
	}
}

func TestFileStore_SharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	a, b := NewFileStore(path), NewFileStore(path)

	if err := a.Set("token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok, _ := b.Get("token"); !ok || v != "abc" {
		t.Errorf("second instance Get() = %q, %v", v, ok)
	}
}

func TestFileStore_YAMLContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	s := NewFileStore(path)
	if err := s.Set("token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "token: abc") {
		t.Errorf("file content = %q", data)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("token: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileStore(path).Get("token"); err == nil {
		t.Error("Get() on corrupt file should fail")
	}
}
