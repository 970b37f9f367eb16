package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type state struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadJSONMissing(t *testing.T) {
	var s state
	err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"), &s)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadJSONCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	var s state
	err := LoadJSON(path, &s)
	if err == nil {
		t.Fatal("corrupt file did not error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("corrupt file reported as not found")
	}
}

func TestSaveLoadJSONRoundtrip(t *testing.T) {
	// The parent directory does not exist yet; SaveJSON must create it.
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	want := state{Name: "baseline", Count: 7}
	if err := SaveJSON(path, &want); err != nil {
		t.Fatal(err)
	}

	var got state
	if err := LoadJSON(path, &got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}

func TestSaveLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.enc")
	if err := SaveText(path, "opaque-blob"); err != nil {
		t.Fatal(err)
	}
	got, err := LoadText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "opaque-blob" {
		t.Errorf("got %q", got)
	}

	if _, err := LoadText(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing text file err = %v, want ErrNotFound", err)
	}
}

func TestRemoveIgnoresAbsence(t *testing.T) {
	Remove(filepath.Join(t.TempDir(), "never-existed"))

	path := filepath.Join(t.TempDir(), "gone.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after Remove")
	}
}

func TestUnmarshalJSONCorrupt(t *testing.T) {
	var s state
	if err := UnmarshalJSON([]byte("garbage"), &s); err == nil {
		t.Fatal("garbage bytes did not error")
	}
}
