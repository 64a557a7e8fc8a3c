package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileKVStore_GetMissing(t *testing.T) {
	s := NewFileKVStore(filepath.Join(t.TempDir(), "store"))

	_, err := s.Get("lists")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestFileKVStore_SetGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := NewFileKVStore(dir)

	if err := s.Set("lists", []byte("a: [x]\n")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("lists", []byte("b: [y]\n")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := s.Get("lists")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "b: [y]\n" {
		t.Errorf("Get = %q, want overwritten value", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "lists.yaml")); err != nil {
		t.Errorf("expected lists.yaml on disk: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileKVStore_RejectsUnsafeKeys(t *testing.T) {
	s := NewFileKVStore(t.TempDir())

	for _, key := range []string{"", "../escape", "a/b", "with space"} {
		if err := s.Set(key, []byte("x")); err == nil {
			t.Errorf("Set(%q) should fail", key)
		}
		if _, err := s.Get(key); err == nil || errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Get(%q) should fail with a key error, got %v", key, err)
		}
	}
}

func TestOpenKVStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		path    string
		wantErr bool
	}{
		{"yaml", filepath.Join(dir, "files"), false},
		{"", filepath.Join(dir, "default"), false},
		{"sqlite", filepath.Join(dir, "db", "wheel.db"), false},
		{"redis", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := OpenKVStore(tt.backend, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer s.Close()

			if err := s.Set("k", []byte("v")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get("k")
			if err != nil || string(got) != "v" {
				t.Errorf("Get = %q, %v", got, err)
			}
		})
	}
}
