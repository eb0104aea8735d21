package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitStore keeps every document inside a single local git repository. The
// integrity token of a document is the git blob hash of its file at the
// head of the current branch, so a token uniquely identifies the exact
// persisted byte sequence.
type GitStore struct {
	mu      sync.Mutex
	repo    *git.Repository
	baseDir string
	author  string
}

func NewGitStore(baseDir, author string) (*GitStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	repo, err := git.PlainOpen(baseDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(baseDir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open store repo: %w", err)
	}
	if author == "" {
		author = "Content API"
	}
	return &GitStore{repo: repo, baseDir: baseDir, author: author}, nil
}

func (s *GitStore) Read(ctx context.Context, path string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkPath(path); err != nil {
		return Document{}, err
	}
	commit, err := s.headCommit()
	if err != nil {
		return Document{}, err
	}
	if commit == nil {
		return Document{}, ErrNotFound
	}
	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s from head: %w", path, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Document{Path: path, Content: content, Token: file.Hash.String()}, nil
}

func (s *GitStore) Write(ctx context.Context, path string, content []byte, token, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkPath(path); err != nil {
		return "", err
	}
	current, err := s.currentToken(path)
	if err != nil {
		return "", err
	}
	if token != current {
		return "", ErrConflict
	}
	// A byte-identical write produces no new revision and keeps its token.
	if current != "" && current == blobToken(content) {
		return current, nil
	}

	target := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create parent dirs for %s: %w", path, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(path); err != nil {
		return "", fmt.Errorf("git add %s: %w", path, err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: fmt.Sprintf("%s@caringcms.local", sanitizeEmail(s.author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", path, err)
	}

	commit, err := s.repo.CommitObject(hash)
	if err != nil {
		return "", fmt.Errorf("read commit object: %w", err)
	}
	file, err := commit.File(path)
	if err != nil {
		return "", fmt.Errorf("resolve new token for %s: %w", path, err)
	}
	return file.Hash.String(), nil
}

// History returns the most recent revision messages for the whole store,
// newest first.
func (s *GitStore) History(limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, err := s.headCommit()
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, nil
	}
	iter, err := s.repo.Log(&git.LogOptions{From: commit.Hash})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0, limit)
	err = iter.ForEach(func(c *object.Commit) error {
		items = append(items, Revision{
			Token:     c.Hash.String(),
			Message:   strings.TrimRight(c.Message, "\n"),
			Author:    c.Author.Name,
			CreatedAt: c.Author.When,
		})
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Revision is one persisted write in the store's history.
type Revision struct {
	Token     string
	Message   string
	Author    string
	CreatedAt time.Time
}

func (s *GitStore) currentToken(path string) (string, error) {
	commit, err := s.headCommit()
	if err != nil {
		return "", err
	}
	if commit == nil {
		return "", nil
	}
	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve token for %s: %w", path, err)
	}
	return file.Hash.String(), nil
}

// headCommit resolves the current branch head. A repository with no commits
// yet yields nil, which readers treat as an empty store.
func (s *GitStore) headCommit() (*object.Commit, error) {
	ref, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return commit, nil
}

func blobToken(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

func checkPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("invalid document path %q", path)
	}
	return nil
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "api"
	}
	return strings.ToLower(string(runes))
}
