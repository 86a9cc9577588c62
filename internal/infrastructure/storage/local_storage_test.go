package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, "http://localhost:8080/files/")
	ctx := context.Background()

	url, err := store.Upload(ctx, "ảnh lỗi.jpg", strings.NewReader("jpeg-bytes"), "rca")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/files/rca/") {
		t.Fatalf("Upload() url = %q", url)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "rca", "*-ảnh lỗi.jpg"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("stored files = %v, err = %v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("stored content = %q, err = %v", data, err)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(matches[0]); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete(twice) error = %v", err)
	}
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	ctx := context.Background()

	if _, err := store.Upload(ctx, "x.txt", strings.NewReader("x"), "../outside"); err == nil {
		t.Fatalf("Upload(../outside) expected error")
	}
	if err := store.Delete(ctx, "http://elsewhere/files/a.txt"); !errors.Is(err, ErrForeignURL) {
		t.Fatalf("Delete(foreign) error = %v", err)
	}
	if err := store.Delete(ctx, "http://localhost:8080/files/../../etc/passwd"); !errors.Is(err, ErrForeignURL) {
		t.Fatalf("Delete(traversal) error = %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":       "report.pdf",
		"C:\\tmp\\a.png":   "a.png",
		"../../etc/passwd": "passwd",
		"what?.txt":        "what_.txt",
		"..":               "",
	}
	for input, want := range cases {
		if got := sanitizeName(input); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}
