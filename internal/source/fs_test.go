package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"ctph/internal/fuzzy"
	"ctph/internal/source"
)

func writeFiles(t *testing.T, files map[string]string) *source.FileSystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		if err := util.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return source.NewFileSystem(fs, "evidence", false)
}

func walkNames(t *testing.T, src source.Source) []string {
	t.Helper()
	var names []string
	err := src.Walk(context.Background(), func(obj source.Object) error {
		names = append(names, obj.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	sort.Strings(names)
	return names
}

func TestFileSystemWalk(t *testing.T) {
	files := map[string]string{
		"evidence/a.txt":        "Hello there!",
		"evidence/b.txt":        "other",
		"evidence/nested/c.txt": "nested",
		"unrelated/d.txt":       "ignored",
	}
	fs := memfs.New()
	for name, content := range files {
		if err := util.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	flat := walkNames(t, source.NewFileSystem(fs, "evidence", false))
	if want := []string{"evidence/a.txt", "evidence/b.txt"}; !slices.Equal(flat, want) {
		t.Errorf("expected %v, got %v", want, flat)
	}

	deep := walkNames(t, source.NewFileSystem(fs, "evidence", true))
	if want := []string{"evidence/a.txt", "evidence/b.txt", filepath.Join("evidence", "nested", "c.txt")}; !slices.Equal(deep, want) {
		t.Errorf("expected %v, got %v", want, deep)
	}

	single := walkNames(t, source.NewFileSystem(fs, "evidence/a.txt", false))
	if want := []string{"evidence/a.txt"}; !slices.Equal(single, want) {
		t.Errorf("expected %v, got %v", want, single)
	}
}

func TestFileSystemHash(t *testing.T) {
	src := writeFiles(t, map[string]string{"evidence/a.txt": "Hello there!"})

	sig, err := source.Hash(context.Background(), src, source.Object{Name: "evidence/a.txt", Size: 12}, 0)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if got := sig.String(); got != "3:aNRn:aNRn:evidence/a.txt" {
		t.Errorf("expected labelled signature, got %q", got)
	}
}

func TestFileSystemHashErrors(t *testing.T) {
	src := writeFiles(t, map[string]string{"evidence/a.txt": "Hello there!"})
	ctx := context.Background()

	_, err := source.Hash(ctx, src, source.Object{Name: "evidence/missing"}, 0)
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = source.Hash(ctx, src, source.Object{Name: "evidence/a.txt", Size: 12}, 4)
	if !errors.Is(err, source.ErrTooLarge) || !errors.Is(err, fuzzy.ErrInvalidInput) {
		t.Errorf("expected ErrTooLarge wrapping ErrInvalidInput, got %v", err)
	}

	// A stale size from the walk must not bypass the limit.
	_, err = source.Hash(ctx, src, source.Object{Name: "evidence/a.txt", Size: 1}, 4)
	if !errors.Is(err, source.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge for a stale size, got %v", err)
	}
}

func TestOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("Hello there!"), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := source.NewOSFileSystem(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	names := walkNames(t, src)
	want := filepath.Join(dir, "hello.txt")
	if len(names) != 1 || names[0] != want {
		t.Fatalf("expected [%s], got %v", want, names)
	}

	sig, err := source.Hash(context.Background(), src, source.Object{Name: want}, 0)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if sig.Part1 != "aNRn" || sig.Label != want {
		t.Errorf("unexpected signature %q", sig)
	}
}
