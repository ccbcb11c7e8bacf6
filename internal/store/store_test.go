package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDirStore_WriteAndScan(t *testing.T) {
	root := t.TempDir()
	s := NewDirStore(root, "entity.json")

	if err := s.Create("alpha"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Write("alpha", doc{Name: "Alpha", Count: 2}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// A directory without a document is reported, not fatal.
	if err := s.Create("empty"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	seen := map[string]string{}
	var failed []string
	err := s.Scan(func(dir string, data []byte, err error) {
		if err != nil {
			failed = append(failed, dir)
			return
		}
		seen[dir] = string(data)
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(seen) != 1 || seen["alpha"] == "" {
		t.Errorf("expected one readable document, got %v", seen)
	}
	if !reflect.DeepEqual(failed, []string{"empty"}) {
		t.Errorf("expected read failure for empty dir, got %v", failed)
	}

	if _, err := os.Stat(filepath.Join(root, "alpha", "entity.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not be left behind")
	}
}

func TestDirStore_ScanMissingRoot(t *testing.T) {
	s := NewDirStore(filepath.Join(t.TempDir(), "missing"), "entity.json")

	calls := 0
	if err := s.Scan(func(string, []byte, error) { calls++ }); err != nil {
		t.Fatalf("Scan of missing root should succeed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no callbacks, got %d", calls)
	}
}

func TestDirStore_CreateExisting(t *testing.T) {
	s := NewDirStore(t.TempDir(), "entity.json")

	if err := s.Create("pack"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Create("pack"); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestDirStore_CopyAndMove(t *testing.T) {
	root := t.TempDir()
	s := NewDirStore(root, "entity.json")

	if err := s.Create("src"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("src", doc{Name: "Source"}); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "src", "mods", "a.jar")
	if err := os.MkdirAll(filepath.Dir(nested), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(nested, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Copy("src", "dst"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "dst", "mods", "a.jar"))
	if err != nil || string(data) != "jar" {
		t.Fatalf("nested file not copied: %q, %v", data, err)
	}
	if err := s.Copy("src", "dst"); !errors.Is(err, ErrExists) {
		t.Errorf("second copy should fail with ErrExists, got %v", err)
	}

	if err := s.Move("dst", "moved"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if s.Exists("dst") || !s.Exists("moved") {
		t.Error("Move should rename the directory")
	}

	if err := s.Remove("moved"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Exists("moved") {
		t.Error("Remove should delete the directory")
	}
}

func TestListStore_RoundTrip(t *testing.T) {
	s := NewListStore(filepath.Join(t.TempDir(), "nested", "list.json"))

	var empty []doc
	found, err := s.Load(&empty)
	if err != nil || found {
		t.Fatalf("Load of missing file: found=%v err=%v", found, err)
	}

	want := []doc{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var got []doc
	found, err = s.Load(&got)
	if err != nil || !found {
		t.Fatalf("Load failed: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch\nexpected: %#v\nactual: %#v", want, got)
	}
}

func TestListStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got []doc
	found, err := NewListStore(path).Load(&got)
	if !found || err == nil {
		t.Errorf("expected decode error for corrupt file, got found=%v err=%v", found, err)
	}
}

func TestDirStore_RemoveRejectsEscapingNames(t *testing.T) {
	root := filepath.Join(t.TempDir(), "entities")
	s := NewDirStore(root, "entity.json")
	if err := s.Create("alpha"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../entities"} {
		if err := s.Remove(name); !errors.Is(err, ErrBadName) {
			t.Errorf("Remove(%q) = %v, want ErrBadName", name, err)
		}
	}
	if !s.Exists("alpha") {
		t.Error("alpha removed")
	}
}
