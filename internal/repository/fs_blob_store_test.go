package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"StockCast/internal/domain/errs"
)

func TestFSBlobStorePutGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSBlobStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	loc, err := store.Put(ctx, "training/raw/a.json", []byte(`{"ok":true}`), "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(loc, "file://") || !strings.HasSuffix(loc, "/training/raw/a.json") {
		t.Fatalf("location = %s", loc)
	}

	for _, ref := range []string{loc, "training/raw/a.json"} {
		b, err := store.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get(%s): %v", ref, err)
		}
		if string(b) != `{"ok":true}` {
			t.Fatalf("Get(%s) = %s", ref, b)
		}
	}

	key, err := store.Key(loc)
	if err != nil || key != "training/raw/a.json" {
		t.Fatalf("Key = %q, %v", key, err)
	}

	url, err := store.PresignGet(ctx, loc, time.Hour)
	if err != nil || url != loc {
		t.Fatalf("PresignGet = %q, %v", url, err)
	}

	entries, err := os.ReadDir(filepath.Join(store.root, "training", "raw"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestFSBlobStoreMissingObject(t *testing.T) {
	store, err := NewFSBlobStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Get(context.Background(), "training/models/lstm_model.json")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
	if _, err := store.Get(context.Background(), "s3://bucket/key"); err == nil {
		t.Fatal("foreign scheme must be rejected")
	}
}

func TestFSBlobStoreConfinesKeysToRoot(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	root := filepath.Join(parent, "blobs")
	store, err := NewFSBlobStore(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("TOPSECRET"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{
		"../secret.txt",
		"training/../../secret.txt",
		"/../secret.txt",
		"file://" + filepath.ToSlash(filepath.Join(parent, "secret.txt")),
	} {
		b, err := store.Get(ctx, ref)
		if !errors.Is(err, errs.ErrMalformedInput) {
			t.Fatalf("Get(%s) = %q, %v; want malformed input", ref, b, err)
		}
	}

	for _, key := range []string{"../escaped.txt", "a/../../escaped.txt", "", "."} {
		if _, err := store.Put(ctx, key, []byte("x"), "text/plain"); !errors.Is(err, errs.ErrMalformedInput) {
			t.Fatalf("Put(%q) err = %v, want malformed input", key, err)
		}
	}
	if _, err := os.Stat(filepath.Join(parent, "escaped.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("escaped.txt written outside the root: %v", err)
	}

	loc, err := store.Put(ctx, "training/./raw//b.json", []byte("{}"), "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(loc, "/blobs/training/raw/b.json") {
		t.Fatalf("location = %s", loc)
	}
}

func TestParseS3Location(t *testing.T) {
	b, k, err := parseS3Location("s3://stock-bucket/training/processed/x.csv")
	if err != nil || b != "stock-bucket" || k != "training/processed/x.csv" {
		t.Fatalf("parse = %q %q %v", b, k, err)
	}
	if _, _, err := parseS3Location("s3://bucket-only"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
