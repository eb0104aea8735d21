// Package assets validates and stores uploaded binary files (post images
// and PDF documents) under a path namespaced by the owning record.
package assets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxImageBytes    = 10 << 20 // 10 MiB
	maxDocumentBytes = 25 << 20 // 25 MiB
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

var (
	ErrMissingField    = errors.New("assets: missing required field")
	ErrInvalidFileType = errors.New("assets: file type not allowed")
	ErrPayloadTooLarge = errors.New("assets: file too large")
)

// BlobStore persists a binary object at a path. The message is recorded by
// backends that keep revision history and ignored by plain object stores.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType, message string) error
}

// Request describes one decoded upload.
type Request struct {
	Filename string
	MimeType string
	OwnerID  string
	Data     []byte
}

// Result reports where the asset was stored.
type Result struct {
	Path     string
	Filename string
}

type Service struct {
	blobs BlobStore
}

func NewService(blobs BlobStore) *Service {
	return &Service{blobs: blobs}
}

// Upload validates the request and stores the asset. Images land under
// images/news/{ownerId}/ and documents under documents/news/{ownerId}/ so
// assets for the same record group together.
func (s *Service) Upload(ctx context.Context, req Request) (Result, error) {
	if len(req.Data) == 0 || req.Filename == "" || req.MimeType == "" || req.OwnerID == "" {
		return Result{}, ErrMissingField
	}

	ext, ok := allowedTypes[req.MimeType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidFileType, req.MimeType)
	}

	isImage := strings.HasPrefix(req.MimeType, "image/")
	limit := maxDocumentBytes
	if isImage {
		limit = maxImageBytes
	}
	if len(req.Data) > limit {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(req.Data), limit)
	}

	filename := SanitizeFilename(req.Filename) + ext
	folder := "documents/news"
	kind := "PDF"
	if isImage {
		folder = "images/news"
		kind = "image"
	}
	path := fmt.Sprintf("%s/%s/%s", folder, req.OwnerID, filename)

	message := fmt.Sprintf("Upload %s: %s", kind, filename)
	if err := s.blobs.Put(ctx, path, req.Data, req.MimeType, message); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Filename: filename}, nil
}

var (
	extensionRe = regexp.MustCompile(`\.[^.]+$`)
	unsafeRe    = regexp.MustCompile(`[^a-z0-9.-]`)
	dashRunRe   = regexp.MustCompile(`-+`)
)

// SanitizeFilename lowercases the name, strips its extension and reduces it
// to the [a-z0-9.-] character set with separator runs collapsed.
func SanitizeFilename(name string) string {
	base := extensionRe.ReplaceAllString(name, "")
	base = strings.ToLower(base)
	base = unsafeRe.ReplaceAllString(base, "-")
	base = dashRunRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "file"
	}
	return base
}
