package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/any-hub/asset-locator/internal/backend"
)

func TestLocalStoreBrowse(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "images/a b.png", []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := util.WriteFile(fsys, "images/icons/c.svg", []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	store := NewLocalStoreFS(fsys)

	listing, err := store.Browse(context.Background(), backend.DirectorySpec{Kind: backend.KindLocal, CurrentPath: "images"})
	if err != nil {
		t.Fatalf("Browse error: %v", err)
	}
	sort.Strings(listing.Files)
	if len(listing.Files) != 1 || listing.Files[0] != "images/a%20b.png" {
		t.Fatalf("unexpected files: %v", listing.Files)
	}
	if len(listing.Dirs) != 1 || listing.Dirs[0] != "images/icons" {
		t.Fatalf("unexpected dirs: %v", listing.Dirs)
	}
	if listing.IsBundle {
		t.Fatalf("local directories are never bundles")
	}
}

func TestLocalStoreBrowseMissing(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "notes.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	store := NewLocalStoreFS(fsys)

	for _, current := range []string{"nowhere", "notes.txt"} {
		_, err := store.Browse(context.Background(), backend.DirectorySpec{Kind: backend.KindLocal, CurrentPath: current})
		if !errors.Is(err, backend.ErrNotFound) {
			t.Fatalf("Browse(%s) expected ErrNotFound, got %v", current, err)
		}
	}
}

func TestLocalStoreUploadCreatesParents(t *testing.T) {
	fsys := memfs.New()
	store := NewLocalStoreFS(fsys)
	spec := backend.DirectorySpec{Kind: backend.KindLocal, CurrentPath: "tokens/heroes"}

	result, err := store.Upload(context.Background(), spec, backend.File{Name: "hero one.png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if result.Path != "tokens/heroes/hero%20one.png" {
		t.Fatalf("unexpected upload path: %s", result.Path)
	}
	data, err := util.ReadFile(fsys, "tokens/heroes/hero one.png")
	if err != nil || string(data) != "png" {
		t.Fatalf("uploaded content mismatch: %q %v", data, err)
	}

	listing, err := store.Browse(context.Background(), spec)
	if err != nil || len(listing.Files) != 1 || listing.Files[0] != result.Path {
		t.Fatalf("uploaded file should be listed with the same url: %v %v", listing.Files, err)
	}
}

func TestNewLocalStoreCreatesRoot(t *testing.T) {
	root := t.TempDir() + "/assets"
	store, err := NewLocalStore(root)
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}
	spec := backend.DirectorySpec{Kind: backend.KindLocal, CurrentPath: "maps"}
	if _, err := store.Upload(context.Background(), spec, backend.File{Name: "town.jpg", Data: []byte("jpg")}); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	listing, err := store.Browse(context.Background(), spec)
	if err != nil || len(listing.Files) != 1 || listing.Files[0] != "maps/town.jpg" {
		t.Fatalf("unexpected listing: %+v %v", listing, err)
	}
}
