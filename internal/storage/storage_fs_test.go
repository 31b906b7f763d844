package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAbsolute_OverwritesDanglingSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nonexistent")
	dest := filepath.Join(dir, "index.js")

	// Create a dangling symlink at the destination.
	if err := os.Symlink(target, dest); err != nil {
		t.Fatal(err)
	}

	s := &FSStorage{}
	if err := s.writeFileAbsolute(dest, []byte("hello")); err != nil {
		t.Fatalf("writeFileAbsolute failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	// Ensure it's a regular file, not a symlink.
	info, err := os.Lstat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Fatal("expected regular file, got symlink")
	}
	if _, err := os.Lstat(target); !os.IsNotExist(err) {
		t.Fatal("symlink target should not have been created")
	}
}

func TestCreate_ReplacesCircularSymlink(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.js")

	// Create circular symlinks: a -> b -> a
	if err := os.Symlink(b, a); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(a, b); err != nil {
		t.Fatal(err)
	}

	s := NewFSStorage(dir)
	f, err := s.Create("a.js")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.WriteString("content"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Fatalf("got %q, want %q", got, "content")
	}
}

func TestCreate_MakesParentDirs(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStorage(dir)
	f, err := s.Create(filepath.Join(dir, "out", "js", "index.js"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = f.Close()
	if _, err := os.Stat(filepath.Join(dir, "out", "js", "index.js")); err != nil {
		t.Fatal(err)
	}
}

func TestRewritePage_PreservesModeAndSymlink(t *testing.T) {
	dir := t.TempDir()
	realPath := filepath.Join(dir, "real.html")
	if err := os.WriteFile(realPath, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(realPath, filepath.Join(dir, "link.html")); err != nil {
		t.Fatal(err)
	}

	s := NewFSStorage(dir)
	ctx := context.Background()
	if err := s.RewritePage(ctx, "link.html", []byte("new")); err != nil {
		t.Fatalf("RewritePage failed: %v", err)
	}

	got, err := s.ReadPage(ctx, "real.html")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected write-through to target, got %q", got)
	}
	info, err := os.Lstat(filepath.Join(dir, "link.html"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("symlink should be kept")
	}
	info, err = os.Stat(realPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode changed to %v", info.Mode().Perm())
	}
}

func TestRewritePage_MissingPage(t *testing.T) {
	s := NewFSStorage(t.TempDir())
	if err := s.RewritePage(context.Background(), "sub/missing.html", []byte("x")); err == nil {
		t.Fatal("expected error rewriting a missing page")
	}
}

func TestWriteFile_RelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStorage(dir)
	if err := s.WriteFile(context.Background(), "nested/sitemap.xml", []byte("<x/>")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "nested", "sitemap.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<x/>" {
		t.Fatalf("got %q", got)
	}
}
