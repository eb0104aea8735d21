package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"caringcms/api/internal/app"
	"caringcms/api/internal/content"
)

// State is the lifecycle of one collection in the dashboard. Transitions:
// Idle -> Loading -> Ready <-> Editing <-> Publishing -> Ready. A failed
// load returns to Idle; a failed publish returns to Editing with the draft
// intact so the operator can retry or cancel.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateEditing
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEditing:
		return "editing"
	case StatePublishing:
		return "publishing"
	}
	return "unknown"
}

type assetKind int

const (
	assetImage assetKind = iota
	assetPDF
)

// pendingAsset is a not-yet-uploaded file buffered against a slot in the
// draft. The slot indexes draft.Images or draft.PDFs depending on kind; the
// upload result path replaces the slot's placeholder src/url.
type pendingAsset struct {
	kind     assetKind
	slot     int
	filename string
	mimeType string
	data     []byte
}

// PostsController drives the news-post editor. All methods must be called
// from a single goroutine; the controller serializes its work through
// explicit states rather than locks.
type PostsController struct {
	client *Client

	state    State
	posts    []content.Post
	filtered []content.Post

	query    string
	category string

	draft   *content.Post
	draftID string
	pending []pendingAsset
}

func NewPostsController(client *Client) *PostsController {
	return &PostsController{client: client, category: "all"}
}

func (c *PostsController) State() State { return c.state }

// Posts returns the authoritative collection as last loaded or merged.
func (c *PostsController) Posts() []content.Post { return c.posts }

// Filtered returns the current search/category view. It is always derived
// from the authoritative collection, never mutated directly.
func (c *PostsController) Filtered() []content.Post { return c.filtered }

func (c *PostsController) Draft() *content.Post { return c.draft }

// Load fetches the collection and enters Ready. Allowed from Idle or Ready
// (a reload); a failed fetch drops back to Idle.
func (c *PostsController) Load(ctx context.Context) error {
	if c.state != StateIdle && c.state != StateReady {
		return fmt.Errorf("cannot load while %s", c.state)
	}
	c.state = StateLoading
	doc, err := c.client.FetchPosts(ctx)
	if err != nil {
		c.state = StateIdle
		return err
	}
	c.posts = doc.Posts
	content.SortPosts(c.posts)
	c.refilter()
	c.state = StateReady
	return nil
}

// Filter narrows the view by free-text query over title, summary and body,
// and by category ("all" matches everything). Valid in Ready or Editing.
func (c *PostsController) Filter(query, category string) {
	c.query = strings.ToLower(strings.TrimSpace(query))
	if category == "" {
		category = "all"
	}
	c.category = category
	c.refilter()
}

// refilter rebuilds the view into a fresh slice so snapshots handed out by
// Filtered stay valid across later filter changes.
func (c *PostsController) refilter() {
	filtered := make([]content.Post, 0, len(c.posts))
	for _, post := range c.posts {
		if c.category != "all" && post.Category != c.category {
			continue
		}
		if c.query != "" && !matchesQuery(post, c.query) {
			continue
		}
		filtered = append(filtered, post)
	}
	c.filtered = filtered
}

func matchesQuery(post content.Post, query string) bool {
	return strings.Contains(strings.ToLower(post.Title), query) ||
		strings.Contains(strings.ToLower(post.Summary), query) ||
		strings.Contains(strings.ToLower(post.Content), query)
}

// BeginCreate opens a blank draft.
func (c *PostsController) BeginCreate() error {
	if c.state != StateReady {
		return fmt.Errorf("cannot start editing while %s", c.state)
	}
	c.draft = &content.Post{}
	c.draftID = ""
	c.pending = nil
	c.state = StateEditing
	return nil
}

// BeginEdit opens a copy of an existing post as the draft. The collection
// itself is untouched until Publish succeeds.
func (c *PostsController) BeginEdit(id string) error {
	if c.state != StateReady {
		return fmt.Errorf("cannot start editing while %s", c.state)
	}
	for _, post := range c.posts {
		if post.ID == id {
			draft := post
			draft.Images = append([]content.Image(nil), post.Images...)
			draft.Videos = append([]content.Video(nil), post.Videos...)
			draft.PDFs = append([]content.PDF(nil), post.PDFs...)
			c.draft = &draft
			c.draftID = id
			c.pending = nil
			c.state = StateEditing
			return nil
		}
	}
	return fmt.Errorf("post %q not found", id)
}

// Cancel discards the draft and any buffered assets.
func (c *PostsController) Cancel() {
	if c.state != StateEditing {
		return
	}
	c.draft = nil
	c.draftID = ""
	c.pending = nil
	c.state = StateReady
}

// AttachImage appends an image slot to the draft and buffers the file for
// upload at publish time.
func (c *PostsController) AttachImage(alt, filename, mimeType string, data []byte) error {
	if c.state != StateEditing {
		return fmt.Errorf("cannot attach while %s", c.state)
	}
	c.draft.Images = append(c.draft.Images, content.Image{Alt: alt})
	c.pending = append(c.pending, pendingAsset{
		kind:     assetImage,
		slot:     len(c.draft.Images) - 1,
		filename: filename,
		mimeType: mimeType,
		data:     data,
	})
	return nil
}

// AttachPDF appends a document slot to the draft and buffers the file.
func (c *PostsController) AttachPDF(title, description, filename, mimeType string, data []byte) error {
	if c.state != StateEditing {
		return fmt.Errorf("cannot attach while %s", c.state)
	}
	c.draft.PDFs = append(c.draft.PDFs, content.PDF{Title: title, Description: description})
	c.pending = append(c.pending, pendingAsset{
		kind:     assetPDF,
		slot:     len(c.draft.PDFs) - 1,
		filename: filename,
		mimeType: mimeType,
		data:     data,
	})
	return nil
}

// Publish uploads buffered assets one at a time, substitutes the returned
// paths into the draft, then saves the post. Uploads that completed before
// a failure stay uploaded and stay substituted; the controller returns to
// Editing so the operator can retry the remainder. There is no rollback.
func (c *PostsController) Publish(ctx context.Context) (string, error) {
	if c.state != StateEditing {
		return "", fmt.Errorf("cannot publish while %s", c.state)
	}
	c.state = StatePublishing

	ownerID := c.draftID
	if ownerID == "" {
		ownerID = c.uniqueSlug(content.SlugID(c.draft.Title, c.draft.Date))
	}

	for len(c.pending) > 0 {
		asset := c.pending[0]
		path, err := c.client.UploadFile(ctx, asset.filename, asset.mimeType, ownerID, asset.data)
		if err != nil {
			c.state = StateEditing
			return "", fmt.Errorf("upload %s: %w", asset.filename, err)
		}
		switch asset.kind {
		case assetImage:
			c.draft.Images[asset.slot].Src = path
		case assetPDF:
			c.draft.PDFs[asset.slot].URL = path
		}
		c.pending = c.pending[1:]
	}

	req := app.PostSaveRequest{Action: app.ActionCreate, Post: c.draft}
	if c.draftID != "" {
		req.Action = app.ActionUpdate
		req.PostID = c.draftID
	}
	id, err := c.client.SavePost(ctx, req)
	if err != nil {
		c.state = StateEditing
		return "", err
	}

	saved := *c.draft
	saved.ID = id
	saved.Normalize()
	c.mergeSaved(saved)
	c.draft = nil
	c.draftID = ""
	c.state = StateReady
	return id, nil
}

// uniqueSlug applies the same collision suffixing the save endpoint does,
// so upload paths land under the id the post will actually receive.
func (c *PostsController) uniqueSlug(id string) string {
	taken := make(map[string]bool, len(c.posts))
	for _, post := range c.posts {
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

func (c *PostsController) mergeSaved(saved content.Post) {
	for i, post := range c.posts {
		if post.ID == saved.ID {
			c.posts[i] = saved
			content.SortPosts(c.posts)
			c.refilter()
			return
		}
	}
	c.posts = append([]content.Post{saved}, c.posts...)
	content.SortPosts(c.posts)
	c.refilter()
}

// Delete removes a post on the server first and drops it locally only after
// the server confirms. A failed request leaves the collection untouched.
func (c *PostsController) Delete(ctx context.Context, id string) error {
	if c.state != StateReady {
		return fmt.Errorf("cannot delete while %s", c.state)
	}
	c.state = StatePublishing
	_, err := c.client.SavePost(ctx, app.PostSaveRequest{Action: app.ActionDelete, PostID: id})
	if err != nil {
		c.state = StateReady
		return err
	}
	for i, post := range c.posts {
		if post.ID == id {
			c.posts = append(c.posts[:i], c.posts[i+1:]...)
			break
		}
	}
	c.refilter()
	c.state = StateReady
	return nil
}
