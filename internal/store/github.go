package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GitHubStore persists documents through the GitHub contents API. The
// integrity token is the file's blob SHA as reported by GitHub; conditional
// writes rely on GitHub rejecting a PUT whose sha no longer matches.
type GitHubStore struct {
	client  *http.Client
	baseURL string
	token   string
	repo    string // "owner/name"
	branch  string
}

func NewGitHubStore(token, repo, branch string) *GitHubStore {
	return &GitHubStore{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.github.com",
		token:   token,
		repo:    repo,
		branch:  branch,
	}
}

type githubContent struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type githubPutBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type githubPutResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type githubErrorBody struct {
	Message string `json:"message"`
}

func (s *GitHubStore) Read(ctx context.Context, path string) (Document, error) {
	endpoint := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build contents request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Document{}, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Document{}, fmt.Errorf("%w: %s", ErrUnavailable, githubMessage(resp))
	}

	var body githubContent
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Document{}, fmt.Errorf("%w: decode contents response: %v", ErrUnavailable, err)
	}
	content, err := base64.StdEncoding.DecodeString(stripNewlines(body.Content))
	if err != nil {
		return Document{}, fmt.Errorf("decode %s content: %w", path, err)
	}
	return Document{Path: path, Content: content, Token: body.SHA}, nil
}

func (s *GitHubStore) Write(ctx context.Context, path string, content []byte, token, message string) (string, error) {
	if token == "" {
		// Create-only: GitHub accepts a sha-less PUT as an unconditional
		// create, so probe first to keep the strict semantics.
		if _, err := s.Read(ctx, path); err == nil {
			return "", ErrConflict
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	payload, err := json.Marshal(githubPutBody{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.branch,
		SHA:     token,
	})
	if err != nil {
		return "", fmt.Errorf("marshal put body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build put request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return "", ErrConflict
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: %s", ErrUnavailable, githubMessage(resp))
	}

	var body githubPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode put response: %v", ErrUnavailable, err)
	}
	return body.Content.SHA, nil
}

func (s *GitHubStore) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.baseURL, s.repo, path)
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+s.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "caringcms-api")
	req.Header.Set("Content-Type", "application/json")
}

func githubMessage(resp *http.Response) string {
	var body githubErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Sprintf("github responded %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Sprintf("github responded %d", resp.StatusCode)
}

func stripNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
