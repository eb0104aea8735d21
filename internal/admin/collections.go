package admin

import (
	"context"
	"fmt"

	"caringcms/api/internal/app"
	"caringcms/api/internal/content"
)

// GalleryController drives the gallery manager. Gallery edits are
// single-shot (no long-lived draft), so it only cycles
// Idle -> Loading -> Ready <-> Publishing.
type GalleryController struct {
	client *Client

	state      State
	images     []content.GalleryImage
	categories []string
}

func NewGalleryController(client *Client) *GalleryController {
	return &GalleryController{client: client}
}

func (c *GalleryController) State() State                   { return c.state }
func (c *GalleryController) Images() []content.GalleryImage { return c.images }
func (c *GalleryController) Categories() []string           { return c.categories }

func (c *GalleryController) Load(ctx context.Context) error {
	if c.state != StateIdle && c.state != StateReady {
		return fmt.Errorf("cannot load while %s", c.state)
	}
	c.state = StateLoading
	doc, err := c.client.FetchGallery(ctx)
	if err != nil {
		c.state = StateIdle
		return err
	}
	c.images = doc.Images
	c.categories = doc.Categories
	content.SortGallery(c.images)
	c.state = StateReady
	return nil
}

// AddImage uploads the file, then creates a gallery entry pointing at the
// stored path. If the create fails after the upload succeeded, the blob
// stays in storage; the operator retries the create only.
func (c *GalleryController) AddImage(ctx context.Context, image content.GalleryImage, filename, mimeType string, data []byte) (string, error) {
	if c.state != StateReady {
		return "", fmt.Errorf("cannot add while %s", c.state)
	}
	c.state = StatePublishing

	if len(data) > 0 {
		path, err := c.client.UploadFile(ctx, filename, mimeType, "gallery", data)
		if err != nil {
			c.state = StateReady
			return "", fmt.Errorf("upload %s: %w", filename, err)
		}
		image.Src = path
	}

	id, err := c.client.SaveGallery(ctx, app.GallerySaveRequest{Action: app.ActionCreate, Image: &image})
	if err != nil {
		c.state = StateReady
		return "", err
	}
	image.ID = id
	image.Order = nextGalleryOrder(c.images)
	c.images = append(c.images, image)
	content.SortGallery(c.images)
	c.state = StateReady
	return id, nil
}

// UpdateImage replaces the whole image on the server, so the existing order
// is folded into the payload first; otherwise an order-less update would
// persist order 0 and break the dense sequence.
func (c *GalleryController) UpdateImage(ctx context.Context, id string, image content.GalleryImage) error {
	image.ID = id
	for i := range c.images {
		if c.images[i].ID == id {
			image.Order = c.images[i].Order
			break
		}
	}
	return c.publish(ctx, app.GallerySaveRequest{Action: app.ActionUpdate, ImageID: id, Image: &image}, func() {
		for i := range c.images {
			if c.images[i].ID == id {
				c.images[i] = image
				return
			}
		}
	})
}

func (c *GalleryController) DeleteImage(ctx context.Context, id string) error {
	return c.publish(ctx, app.GallerySaveRequest{Action: app.ActionDelete, ImageID: id}, func() {
		for i := range c.images {
			if c.images[i].ID == id {
				c.images = append(c.images[:i], c.images[i+1:]...)
				return
			}
		}
	})
}

// Reorder applies the given id sequence on the server, then mirrors the
// dense 1..N ordering locally.
func (c *GalleryController) Reorder(ctx context.Context, ids []string) error {
	return c.publish(ctx, app.GallerySaveRequest{Action: app.ActionReorder, ImageIDs: ids}, func() {
		c.images = content.Reorder(c.images, ids, func(img *content.GalleryImage, order int) {
			img.Order = order
		})
		content.SortGallery(c.images)
	})
}

func (c *GalleryController) SetCategories(ctx context.Context, categories []string) error {
	return c.publish(ctx, app.GallerySaveRequest{Action: app.ActionUpdateCategories, Categories: categories}, func() {
		c.categories = categories
	})
}

// publish runs one mutation against the server and applies the local merge
// only after the server confirms.
func (c *GalleryController) publish(ctx context.Context, req app.GallerySaveRequest, merge func()) error {
	if c.state != StateReady {
		return fmt.Errorf("cannot %s while %s", req.Action, c.state)
	}
	c.state = StatePublishing
	_, err := c.client.SaveGallery(ctx, req)
	if err != nil {
		c.state = StateReady
		return err
	}
	merge()
	c.state = StateReady
	return nil
}

func nextGalleryOrder(images []content.GalleryImage) int {
	max := 0
	for _, img := range images {
		if img.Order > max {
			max = img.Order
		}
	}
	return max + 1
}

// ProgressController drives the progress-bar manager.
type ProgressController struct {
	client *Client

	state State
	goals []content.ProgressGoal
}

func NewProgressController(client *Client) *ProgressController {
	return &ProgressController{client: client}
}

func (c *ProgressController) State() State                  { return c.state }
func (c *ProgressController) Goals() []content.ProgressGoal { return c.goals }

func (c *ProgressController) Load(ctx context.Context) error {
	if c.state != StateIdle && c.state != StateReady {
		return fmt.Errorf("cannot load while %s", c.state)
	}
	c.state = StateLoading
	doc, err := c.client.FetchProgress(ctx)
	if err != nil {
		c.state = StateIdle
		return err
	}
	c.goals = doc.Goals
	content.SortProgress(c.goals)
	c.state = StateReady
	return nil
}

func (c *ProgressController) CreateGoal(ctx context.Context, goal content.ProgressGoal) (string, error) {
	if c.state != StateReady {
		return "", fmt.Errorf("cannot create while %s", c.state)
	}
	c.state = StatePublishing
	id, err := c.client.SaveProgress(ctx, app.ProgressSaveRequest{Action: app.ActionCreate, Goal: &goal})
	if err != nil {
		c.state = StateReady
		return "", err
	}
	goal.ID = id
	goal.Normalize()
	goal.Order = nextGoalOrder(c.goals)
	c.goals = append(c.goals, goal)
	content.SortProgress(c.goals)
	c.state = StateReady
	return id, nil
}

// UpdateGoal folds the existing order into the payload before the save,
// mirroring UpdateImage: the server replaces the goal wholesale.
func (c *ProgressController) UpdateGoal(ctx context.Context, id string, goal content.ProgressGoal) error {
	goal.ID = id
	for i := range c.goals {
		if c.goals[i].ID == id {
			goal.Order = c.goals[i].Order
			break
		}
	}
	return c.publish(ctx, app.ProgressSaveRequest{Action: app.ActionUpdate, GoalID: id, Goal: &goal}, func() {
		goal.Normalize()
		for i := range c.goals {
			if c.goals[i].ID == id {
				c.goals[i] = goal
				return
			}
		}
	})
}

func (c *ProgressController) DeleteGoal(ctx context.Context, id string) error {
	return c.publish(ctx, app.ProgressSaveRequest{Action: app.ActionDelete, GoalID: id}, func() {
		for i := range c.goals {
			if c.goals[i].ID == id {
				c.goals = append(c.goals[:i], c.goals[i+1:]...)
				return
			}
		}
	})
}

func (c *ProgressController) Reorder(ctx context.Context, ids []string) error {
	return c.publish(ctx, app.ProgressSaveRequest{Action: app.ActionReorder, GoalIDs: ids}, func() {
		c.goals = content.Reorder(c.goals, ids, func(g *content.ProgressGoal, order int) {
			g.Order = order
		})
		content.SortProgress(c.goals)
	})
}

// SaveAll replaces the whole collection in one write, used by the bulk
// editor view.
func (c *ProgressController) SaveAll(ctx context.Context, goals []content.ProgressGoal) error {
	return c.publish(ctx, app.ProgressSaveRequest{Action: app.ActionSaveAll, Goals: goals}, func() {
		doc := content.ProgressDoc{Goals: goals}
		content.NormalizeProgress(&doc)
		content.SortProgress(doc.Goals)
		c.goals = doc.Goals
	})
}

func (c *ProgressController) publish(ctx context.Context, req app.ProgressSaveRequest, merge func()) error {
	if c.state != StateReady {
		return fmt.Errorf("cannot %s while %s", req.Action, c.state)
	}
	c.state = StatePublishing
	_, err := c.client.SaveProgress(ctx, req)
	if err != nil {
		c.state = StateReady
		return err
	}
	merge()
	c.state = StateReady
	return nil
}

func nextGoalOrder(goals []content.ProgressGoal) int {
	max := 0
	for _, goal := range goals {
		if goal.Order > max {
			max = goal.Order
		}
	}
	return max + 1
}
