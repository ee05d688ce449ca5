package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "north")
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	name := filepath.Join(dir, "north_traffic_data.json")
	if fsys.Exists(name) {
		t.Fatalf("%s should not exist yet", name)
	}
	if err := fsys.WriteFile(name, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := fsys.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{}` {
		t.Errorf("ReadFile = %q", got)
	}
}

func TestMemoryFileSystem_RequiresParentDir(t *testing.T) {
	m := NewMemoryFileSystem()
	err := m.WriteFile("/out/north/report.json", []byte("x"), 0o644)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("WriteFile without parent: err = %v, want ErrNotExist", err)
	}

	if err := m.MkdirAll("/out/north", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if !m.Exists("/out") || !m.Exists("/out/north") {
		t.Errorf("MkdirAll should create every parent")
	}
	if err := m.WriteFile("/out/north/report.json", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := m.Files(); len(got) != 1 || got[0] != "/out/north/report.json" {
		t.Errorf("Files() = %v", got)
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	data := []byte("abc")
	if err := m.WriteFile("a.json", data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data[0] = 'z'

	got, err := m.ReadFile("./a.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("stored data was aliased: %q", got)
	}
	got[1] = 'z'
	again, _ := m.ReadFile("a.json")
	if string(again) != "abc" {
		t.Errorf("returned data was aliased: %q", again)
	}

	if _, err := m.ReadFile("missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(missing) err = %v", err)
	}
}
