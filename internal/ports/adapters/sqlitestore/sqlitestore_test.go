package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ocr.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if _, ok, err := s.Get(ctx, "v/url/1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "v/url/1", "youtube.com/watch?v=abc12345678"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "v/url/1")
	if err != nil || !ok || got != "youtube.com/watch?v=abc12345678" {
		t.Fatalf("got %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Put(ctx, "v/url/1", "updated"); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.Get(ctx, "v/url/1"); got != "updated" {
		t.Fatalf("upsert failed, got %q", got)
	}
}

func TestEmptyTextIsAHit(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if err := s.Put(ctx, "k", ""); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected hit for empty text, ok=%v err=%v", ok, err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ocr.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got, ok, _ := s2.Get(ctx, "k"); !ok || got != "v" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, k := range []string{"a/url/1", "a/url/2", "b/url/1"} {
		if err := s.Put(ctx, k, "x"); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.DeletePrefix(ctx, "a/")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
	if _, ok, _ := s.Get(ctx, "b/url/1"); !ok {
		t.Fatalf("unrelated key removed")
	}
}

func TestRetryOnBusy_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	want := errors.New("boom")
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryOnBusy_RetriesLockedDatabase(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}
