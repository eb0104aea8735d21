package app

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"caringcms/api/internal/content"
)

// Action names accepted by the persistence endpoints. Each request is a
// tagged payload validated here, before anything reaches the mutators.
const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionReorder          = "reorder"
	ActionSaveAll          = "save-all"
	ActionUpdateCategories = "update-categories"
)

// PostSaveRequest is the body of POST /api/posts/save.
type PostSaveRequest struct {
	Action string        `json:"action"`
	Post   *content.Post `json:"post,omitempty"`
	PostID string        `json:"postId,omitempty"`
}

func (r PostSaveRequest) Validate() error {
	needsItem := r.Action == ActionCreate || r.Action == ActionUpdate
	needsID := r.Action == ActionUpdate || r.Action == ActionDelete
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.In(ActionCreate, ActionUpdate, ActionDelete)),
		validation.Field(&r.Post, validation.Required.When(needsItem)),
		validation.Field(&r.PostID, validation.Required.When(needsID)),
	); err != nil {
		return err
	}
	if needsItem {
		return validation.ValidateStruct(r.Post,
			validation.Field(&r.Post.Title, validation.Required),
			validation.Field(&r.Post.Date, validation.Required, validation.Date("2006-01-02")),
			validation.Field(&r.Post.Category, validation.Required),
		)
	}
	return nil
}

// GallerySaveRequest is the body of POST /api/gallery/save.
type GallerySaveRequest struct {
	Action     string                `json:"action"`
	Image      *content.GalleryImage `json:"image,omitempty"`
	ImageID    string                `json:"imageId,omitempty"`
	ImageIDs   []string              `json:"imageIds,omitempty"`
	Categories []string              `json:"categories,omitempty"`
}

func (r GallerySaveRequest) Validate() error {
	needsItem := r.Action == ActionCreate || r.Action == ActionUpdate
	needsID := r.Action == ActionUpdate || r.Action == ActionDelete
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required,
			validation.In(ActionCreate, ActionUpdate, ActionDelete, ActionReorder, ActionUpdateCategories)),
		validation.Field(&r.Image, validation.Required.When(needsItem)),
		validation.Field(&r.ImageID, validation.Required.When(needsID)),
		validation.Field(&r.ImageIDs, validation.Required.When(r.Action == ActionReorder)),
		validation.Field(&r.Categories, validation.Required.When(r.Action == ActionUpdateCategories)),
	); err != nil {
		return err
	}
	if needsItem {
		return validation.ValidateStruct(r.Image,
			validation.Field(&r.Image.Src, validation.Required),
		)
	}
	return nil
}

// ProgressSaveRequest is the body of POST /api/progress/save.
type ProgressSaveRequest struct {
	Action  string                 `json:"action"`
	Goal    *content.ProgressGoal  `json:"goal,omitempty"`
	GoalID  string                 `json:"goalId,omitempty"`
	GoalIDs []string               `json:"goalIds,omitempty"`
	Goals   []content.ProgressGoal `json:"goals,omitempty"`
}

func (r ProgressSaveRequest) Validate() error {
	needsItem := r.Action == ActionCreate || r.Action == ActionUpdate
	needsID := r.Action == ActionUpdate || r.Action == ActionDelete
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required,
			validation.In(ActionCreate, ActionUpdate, ActionDelete, ActionReorder, ActionSaveAll)),
		validation.Field(&r.Goal, validation.Required.When(needsItem)),
		validation.Field(&r.GoalID, validation.Required.When(needsID)),
		validation.Field(&r.GoalIDs, validation.Required.When(r.Action == ActionReorder)),
		validation.Field(&r.Goals, validation.Required.When(r.Action == ActionSaveAll)),
	); err != nil {
		return err
	}
	if needsItem {
		return validation.ValidateStruct(r.Goal,
			validation.Field(&r.Goal.Title, validation.Required),
		)
	}
	return nil
}

// UploadRequest is the body of POST /api/upload. File carries the asset as
// base64.
type UploadRequest struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	PostID   string `json:"postId"`
	FileType string `json:"fileType,omitempty"`
}

func (r UploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.File, validation.Required),
		validation.Field(&r.Filename, validation.Required),
		validation.Field(&r.MimeType, validation.Required),
		validation.Field(&r.PostID, validation.Required),
	)
}

// SaveResult echoes a successful persistence action.
type SaveResult struct {
	ID      string
	Message string
}
