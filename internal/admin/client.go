// Package admin is the dashboard-side controller layer: it owns the
// in-memory copy of each collection and mediates every mutation through
// the persistence and upload endpoints.
package admin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"caringcms/api/internal/app"
	"caringcms/api/internal/content"
)

// APIError is a structured failure from the API, kept typed so the
// controller can tell a 409 conflict apart from other failures and ask the
// operator to reload.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// IsConflict reports whether an error is a concurrent-write rejection.
func IsConflict(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusConflict
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 60 * time.Second}}
}

func (c *Client) FetchPosts(ctx context.Context) (content.PostsDoc, error) {
	var doc content.PostsDoc
	err := c.get(ctx, "/api/posts", &doc)
	return doc, err
}

func (c *Client) SavePost(ctx context.Context, req app.PostSaveRequest) (string, error) {
	var resp struct {
		PostID string `json:"postId"`
	}
	if err := c.post(ctx, "/api/posts/save", req, &resp); err != nil {
		return "", err
	}
	return resp.PostID, nil
}

func (c *Client) FetchGallery(ctx context.Context) (content.GalleryDoc, error) {
	var doc content.GalleryDoc
	err := c.get(ctx, "/api/gallery", &doc)
	return doc, err
}

func (c *Client) SaveGallery(ctx context.Context, req app.GallerySaveRequest) (string, error) {
	var resp struct {
		ImageID string `json:"imageId"`
	}
	if err := c.post(ctx, "/api/gallery/save", req, &resp); err != nil {
		return "", err
	}
	return resp.ImageID, nil
}

func (c *Client) FetchProgress(ctx context.Context) (content.ProgressDoc, error) {
	var doc content.ProgressDoc
	err := c.get(ctx, "/api/progress", &doc)
	return doc, err
}

func (c *Client) SaveProgress(ctx context.Context, req app.ProgressSaveRequest) (string, error) {
	var resp struct {
		GoalID string `json:"goalId"`
	}
	if err := c.post(ctx, "/api/progress/save", req, &resp); err != nil {
		return "", err
	}
	return resp.GoalID, nil
}

// UploadFile stores one binary asset and returns its site-relative path.
func (c *Client) UploadFile(ctx context.Context, filename, mimeType, ownerID string, data []byte) (string, error) {
	req := app.UploadRequest{
		File:     base64.StdEncoding.EncodeToString(data),
		Filename: filename,
		MimeType: mimeType,
		PostID:   ownerID,
	}
	var resp struct {
		Path string `json:"path"`
	}
	if err := c.post(ctx, "/api/upload", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, target)
}

func (c *Client) post(ctx context.Context, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
