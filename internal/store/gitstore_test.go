package store

import (
	"context"
	"errors"
	"testing"
)

func TestGitStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}

	token, err := s.Write(ctx, "data/news-posts.json", []byte(`{"posts":[]}`), "", "Initial posts")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	doc, err := s.Read(ctx, "data/news-posts.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(doc.Content) != `{"posts":[]}` {
		t.Fatalf("unexpected content: %s", doc.Content)
	}
	if doc.Token != token {
		t.Fatalf("token mismatch: write=%s read=%s", token, doc.Token)
	}

	next, err := s.Write(ctx, "data/news-posts.json", []byte(`{"posts":[{"id":"a"}]}`), token, "Add post")
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if next == token {
		t.Fatal("expected a new token after a content change")
	}
}

func TestGitStoreIdenticalContentKeepsToken(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}

	token, err := s.Write(ctx, "data/gallery.json", []byte(`{"images":[]}`), "", "Initial gallery")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	same, err := s.Write(ctx, "data/gallery.json", []byte(`{"images":[]}`), token, "No-op write")
	if err != nil {
		t.Fatalf("no-op Write() error = %v", err)
	}
	if same != token {
		t.Fatalf("byte-identical write changed the token: %s -> %s", token, same)
	}
}

func TestGitStoreConflict(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}

	token, err := s.Write(ctx, "data/progress.json", []byte(`{"goals":[]}`), "", "Initial progress")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Two writers start from the same token. The first lands, the second
	// must be rejected.
	if _, err := s.Write(ctx, "data/progress.json", []byte(`{"goals":[{"id":"a"}]}`), token, "Writer one"); err != nil {
		t.Fatalf("first writer error = %v", err)
	}
	_, err = s.Write(ctx, "data/progress.json", []byte(`{"goals":[{"id":"b"}]}`), token, "Writer two")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	doc, err := s.Read(ctx, "data/progress.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(doc.Content) != `{"goals":[{"id":"a"}]}` {
		t.Fatalf("losing writer clobbered the document: %s", doc.Content)
	}
}

func TestGitStoreCreateOnlyToken(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}

	if _, err := s.Write(ctx, "data/doc.json", []byte(`{}`), "", "Create"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_, err = s.Write(ctx, "data/doc.json", []byte(`{"x":1}`), "", "Create again")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for create over existing document, got %v", err)
	}
}

func TestGitStoreNotFound(t *testing.T) {
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}
	_, err = s.Read(context.Background(), "data/missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGitStoreRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}
	for _, path := range []string{"../outside.json", "/etc/passwd", "data/../../x"} {
		if _, err := s.Write(ctx, path, []byte(`{}`), "", "Escape"); err == nil {
			t.Errorf("Write(%q) succeeded, want error", path)
		}
	}
}

func TestGitStoreHistory(t *testing.T) {
	ctx := context.Background()
	s, err := NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}

	token, err := s.Write(ctx, "data/doc.json", []byte(`{"v":1}`), "", "Add doc")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := s.Write(ctx, "data/doc.json", []byte(`{"v":2}`), token, "Update doc"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	revisions, err := s.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	if revisions[0].Message != "Update doc" {
		t.Fatalf("expected newest first, got %q", revisions[0].Message)
	}
}
