package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"caringcms/api/internal/assets"
	"caringcms/api/internal/content"
	"caringcms/api/internal/store"
)

// DocumentPaths names the three collection documents inside the store.
type DocumentPaths struct {
	Posts    string
	Gallery  string
	Progress string
}

func DefaultDocumentPaths() DocumentPaths {
	return DocumentPaths{
		Posts:    "data/news-posts.json",
		Gallery:  "data/gallery.json",
		Progress: "data/progress.json",
	}
}

// Service implements the persistence functions: each save operation loads
// the owning document, applies the mutation, canonical-sorts the
// collection, and writes the document back conditioned on the token
// observed at read time. A stale token surfaces as a 409 so the operator
// can reload and retry instead of silently clobbering a concurrent writer.
type Service struct {
	store   store.Store
	uploads *assets.Service
	paths   DocumentPaths
}

func New(st store.Store, uploads *assets.Service, paths DocumentPaths) *Service {
	return &Service{store: st, uploads: uploads, paths: paths}
}

// Ready reports whether the service has a configured store. Without one
// every persistence and upload call is a hard 500.
func (s *Service) Ready() bool {
	return s != nil && s.store != nil
}

func (s *Service) GetPosts(ctx context.Context) (content.PostsDoc, error) {
	var doc content.PostsDoc
	if _, err := s.loadDoc(ctx, s.paths.Posts, &doc); err != nil {
		return content.PostsDoc{}, err
	}
	content.SortPosts(doc.Posts)
	if doc.Posts == nil {
		doc.Posts = []content.Post{}
	}
	return doc, nil
}

func (s *Service) SavePost(ctx context.Context, req PostSaveRequest) (SaveResult, error) {
	var doc content.PostsDoc
	token, err := s.loadDoc(ctx, s.paths.Posts, &doc)
	if err != nil {
		return SaveResult{}, err
	}

	var message, affectedID string
	switch req.Action {
	case ActionCreate:
		post := *req.Post
		post.Normalize()
		post.ID = uniqueID(post.ID, doc.Posts)
		doc.Posts = content.Create(doc.Posts, post, true)
		message = "Add post: " + post.Title
		affectedID = post.ID

	case ActionUpdate:
		post := *req.Post
		post.ID = req.PostID
		post.Normalize()
		updated, err := content.Update(doc.Posts, req.PostID, post)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Post not found")
		}
		doc.Posts = updated
		message = "Update post: " + post.Title
		affectedID = post.ID

	case ActionDelete:
		title := req.PostID
		for _, post := range doc.Posts {
			if post.ID == req.PostID {
				title = post.Title
				break
			}
		}
		remaining, err := content.Delete(doc.Posts, req.PostID)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Post not found")
		}
		doc.Posts = remaining
		message = "Delete post: " + title
		affectedID = req.PostID
	}

	content.SortPosts(doc.Posts)
	if err := s.writeDoc(ctx, s.paths.Posts, doc, token, message); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: affectedID, Message: fmt.Sprintf("Post %sd successfully", req.Action)}, nil
}

func (s *Service) GetGallery(ctx context.Context) (content.GalleryDoc, error) {
	var doc content.GalleryDoc
	if _, err := s.loadDoc(ctx, s.paths.Gallery, &doc); err != nil {
		return content.GalleryDoc{}, err
	}
	content.SortGallery(doc.Images)
	if doc.Images == nil {
		doc.Images = []content.GalleryImage{}
	}
	if doc.Categories == nil {
		doc.Categories = []string{}
	}
	return doc, nil
}

func (s *Service) SaveGallery(ctx context.Context, req GallerySaveRequest) (SaveResult, error) {
	var doc content.GalleryDoc
	token, err := s.loadDoc(ctx, s.paths.Gallery, &doc)
	if err != nil {
		return SaveResult{}, err
	}

	var message, affectedID string
	switch req.Action {
	case ActionCreate:
		image := *req.Image
		image.ID = uuid.NewString()
		if image.Order == 0 {
			image.Order = nextOrder(doc.Images, func(i content.GalleryImage) int { return i.Order })
		}
		doc.Images = content.Create(doc.Images, image, false)
		message = "Add gallery image: " + captionOrUntitled(image.Caption)
		affectedID = image.ID

	case ActionUpdate:
		image := *req.Image
		image.ID = req.ImageID
		updated, err := content.Update(doc.Images, req.ImageID, image)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Image not found")
		}
		doc.Images = updated
		message = "Update gallery image: " + captionOrUntitled(image.Caption)
		affectedID = image.ID

	case ActionDelete:
		remaining, err := content.Delete(doc.Images, req.ImageID)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Image not found")
		}
		doc.Images = remaining
		message = "Delete gallery image"
		affectedID = req.ImageID

	case ActionReorder:
		doc.Images = content.Reorder(doc.Images, req.ImageIDs, func(i *content.GalleryImage, order int) {
			i.Order = order
		})
		message = "Reorder gallery images"

	case ActionUpdateCategories:
		doc.Categories = req.Categories
		message = "Update gallery categories"
	}

	content.SortGallery(doc.Images)
	if err := s.writeDoc(ctx, s.paths.Gallery, doc, token, message); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: affectedID, Message: fmt.Sprintf("Gallery %s completed successfully", req.Action)}, nil
}

func (s *Service) GetProgress(ctx context.Context) (content.ProgressDoc, error) {
	var doc content.ProgressDoc
	if _, err := s.loadDoc(ctx, s.paths.Progress, &doc); err != nil {
		return content.ProgressDoc{}, err
	}
	content.NormalizeProgress(&doc)
	content.SortProgress(doc.Goals)
	if doc.Goals == nil {
		doc.Goals = []content.ProgressGoal{}
	}
	return doc, nil
}

func (s *Service) SaveProgress(ctx context.Context, req ProgressSaveRequest) (SaveResult, error) {
	var doc content.ProgressDoc
	token, err := s.loadDoc(ctx, s.paths.Progress, &doc)
	if err != nil {
		return SaveResult{}, err
	}
	content.NormalizeProgress(&doc)

	var message, affectedID string
	switch req.Action {
	case ActionCreate:
		goal := *req.Goal
		goal.ID = uuid.NewString()
		goal.Normalize()
		if goal.Order == 0 {
			goal.Order = nextOrder(doc.Goals, func(g content.ProgressGoal) int { return g.Order })
		}
		doc.Goals = content.Create(doc.Goals, goal, false)
		message = "Add progress goal: " + goal.Title
		affectedID = goal.ID

	case ActionUpdate:
		goal := *req.Goal
		goal.ID = req.GoalID
		goal.Normalize()
		updated, err := content.Update(doc.Goals, req.GoalID, goal)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Goal not found")
		}
		doc.Goals = updated
		message = "Update progress goal: " + goal.Title
		affectedID = goal.ID

	case ActionDelete:
		remaining, err := content.Delete(doc.Goals, req.GoalID)
		if err != nil {
			return SaveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Goal not found")
		}
		doc.Goals = remaining
		message = "Delete progress goal"
		affectedID = req.GoalID

	case ActionReorder:
		doc.Goals = content.Reorder(doc.Goals, req.GoalIDs, func(g *content.ProgressGoal, order int) {
			g.Order = order
		})
		message = "Reorder progress goals"

	case ActionSaveAll:
		doc.Goals = req.Goals
		content.NormalizeProgress(&doc)
		message = "Update all progress goals"
	}

	content.SortProgress(doc.Goals)
	if err := s.writeDoc(ctx, s.paths.Progress, doc, token, message); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: affectedID, Message: fmt.Sprintf("Progress %s completed successfully", req.Action)}, nil
}

func (s *Service) Upload(ctx context.Context, req UploadRequest) (assets.Result, error) {
	data, err := base64.StdEncoding.DecodeString(req.File)
	if err != nil {
		return assets.Result{}, domainError(http.StatusBadRequest, "INVALID_FILE", "file is not valid base64")
	}
	result, err := s.uploads.Upload(ctx, assets.Request{
		Filename: req.Filename,
		MimeType: req.MimeType,
		OwnerID:  req.PostID,
		Data:     data,
	})
	if err != nil {
		return assets.Result{}, mapUploadError(err)
	}
	return result, nil
}

// loadDoc reads and decodes a collection document, treating a missing path
// as an empty collection with an empty token.
func (s *Service) loadDoc(ctx context.Context, path string, target any) (string, error) {
	doc, err := s.store.Read(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", mapStoreError(err)
	}
	if err := json.Unmarshal(doc.Content, target); err != nil {
		return "", domainError(http.StatusInternalServerError, "CORRUPT_DOCUMENT",
			fmt.Sprintf("document %s is not valid JSON", path))
	}
	return doc.Token, nil
}

// writeDoc pretty-prints the document with 2-space indent and writes it
// back under the token obtained at load time.
func (s *Service) writeDoc(ctx context.Context, path string, doc any, token, message string) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if _, err := s.store.Write(ctx, path, append(payload, '\n'), token, message); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return domainError(http.StatusConflict, "CONFLICT",
			"The document was modified by another writer. Reload and retry.")
	case errors.Is(err, store.ErrNotFound):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Document not found")
	case errors.Is(err, store.ErrUnavailable):
		return domainError(http.StatusInternalServerError, "STORE_UNAVAILABLE", err.Error())
	}
	return err
}

func mapUploadError(err error) error {
	switch {
	case errors.Is(err, assets.ErrMissingField):
		return domainError(http.StatusBadRequest, "MISSING_FIELD",
			"Missing required fields: file, filename, mimeType, postId")
	case errors.Is(err, assets.ErrInvalidFileType):
		return domainError(http.StatusBadRequest, "INVALID_FILE_TYPE",
			"Invalid file type. Allowed: JPEG, PNG, GIF, WebP, PDF")
	case errors.Is(err, assets.ErrPayloadTooLarge):
		return domainError(http.StatusBadRequest, "PAYLOAD_TOO_LARGE", err.Error())
	}
	return mapStoreError(err)
}

// uniqueID keeps slug ids collision-free inside a collection by suffixing a
// counter when the derived slug is already taken.
func uniqueID(id string, posts []content.Post) string {
	taken := make(map[string]bool, len(posts))
	for _, post := range posts {
		taken[post.ID] = true
	}
	if !taken[id] {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "-" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func nextOrder[T any](items []T, orderOf func(T) int) int {
	max := 0
	for _, item := range items {
		if order := orderOf(item); order > max {
			max = order
		}
	}
	return max + 1
}

func captionOrUntitled(caption string) string {
	if caption == "" {
		return "Untitled"
	}
	return caption
}
