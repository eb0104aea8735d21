package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caringcms/api/internal/app"
	"caringcms/api/internal/assets"
	"caringcms/api/internal/content"
	"caringcms/api/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gitStore, err := store.NewGitStore(t.TempDir(), "Tester")
	if err != nil {
		t.Fatalf("NewGitStore() error = %v", err)
	}
	uploads := assets.NewService(assets.NewStoreBlobs(gitStore))
	service := app.New(gitStore, uploads, app.DefaultDocumentPaths())
	server := httptest.NewServer(app.NewHTTPServer(service, "*").Handler())
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestPostsControllerLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(newTestClient(t))

	if c.State() != StateIdle {
		t.Fatalf("initial state = %s", c.State())
	}
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.State() != StateReady {
		t.Fatalf("state after load = %s", c.State())
	}

	if err := c.BeginCreate(); err != nil {
		t.Fatalf("BeginCreate() error = %v", err)
	}
	if c.State() != StateEditing {
		t.Fatalf("state after begin = %s", c.State())
	}
	c.Draft().Title = "Clinic Opens"
	c.Draft().Date = "2024-05-01"
	c.Draft().Category = "Health"
	if err := c.AttachImage("Clinic front door", "Clinic Photo.jpg", "image/jpeg", []byte("jpeg bytes")); err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}

	id, err := c.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "clinic-opens-2024" {
		t.Fatalf("published id = %q", id)
	}
	if c.State() != StateReady {
		t.Fatalf("state after publish = %s", c.State())
	}
	if len(c.Posts()) != 1 {
		t.Fatalf("expected 1 post, got %d", len(c.Posts()))
	}
	if src := c.Posts()[0].Images[0].Src; src != "images/news/clinic-opens-2024/clinic-photo.jpg" {
		t.Fatalf("uploaded path not substituted: %q", src)
	}

	if err := c.BeginEdit(id); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	c.Draft().Title = "Clinic Opens Early"
	if _, err := c.Publish(ctx); err != nil {
		t.Fatalf("republish error = %v", err)
	}
	if c.Posts()[0].Title != "Clinic Opens Early" {
		t.Fatalf("edit not merged: %v", c.Posts()[0])
	}

	if err := c.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(c.Posts()) != 0 {
		t.Fatalf("post not removed locally: %v", c.Posts())
	}
}

func TestPostsControllerFilter(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, post := range []content.Post{
		{Title: "Clinic Opens", Date: "2024-05-01", Category: "Health", Summary: "New clinic"},
		{Title: "Summer Drive", Date: "2024-06-10", Category: "Fundraising", Summary: "Annual drive"},
	} {
		if err := c.BeginCreate(); err != nil {
			t.Fatalf("BeginCreate() error = %v", err)
		}
		*c.Draft() = post
		if _, err := c.Publish(ctx); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	c.Filter("", "Health")
	if len(c.Filtered()) != 1 || c.Filtered()[0].Title != "Clinic Opens" {
		t.Fatalf("category filter: %v", c.Filtered())
	}

	c.Filter("drive", "all")
	if len(c.Filtered()) != 1 || c.Filtered()[0].Title != "Summer Drive" {
		t.Fatalf("query filter: %v", c.Filtered())
	}

	c.Filter("", "all")
	if len(c.Filtered()) != 2 {
		t.Fatalf("reset filter: %v", c.Filtered())
	}
}

func TestPostsControllerCancelDiscardsDraft(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := c.BeginCreate(); err != nil {
		t.Fatalf("BeginCreate() error = %v", err)
	}
	c.Draft().Title = "Abandoned"
	c.Cancel()

	if c.State() != StateReady {
		t.Fatalf("state after cancel = %s", c.State())
	}
	if c.Draft() != nil {
		t.Fatal("draft survived cancel")
	}
	if len(c.Posts()) != 0 {
		t.Fatalf("cancel leaked a post: %v", c.Posts())
	}
}

func TestPostsControllerGuardsStates(t *testing.T) {
	c := NewPostsController(newTestClient(t))

	if err := c.BeginCreate(); err == nil {
		t.Fatal("BeginCreate before Load should fail")
	}
	if _, err := c.Publish(context.Background()); err == nil {
		t.Fatal("Publish outside Editing should fail")
	}
	if err := c.Delete(context.Background(), "x"); err == nil {
		t.Fatal("Delete before Load should fail")
	}
}

// failingUploadServer accepts saves but rejects every upload, to observe
// the halt-on-first-failure behavior.
func failingUploadServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(content.PostsDoc{Posts: []content.Post{}})
	})
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"code": "STORE_UNAVAILABLE", "error": "store down"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestPublishHaltsOnUploadFailure(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(failingUploadServer(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := c.BeginCreate(); err != nil {
		t.Fatalf("BeginCreate() error = %v", err)
	}
	c.Draft().Title = "Doomed"
	c.Draft().Date = "2024-05-01"
	c.Draft().Category = "Health"
	if err := c.AttachImage("a", "a.jpg", "image/jpeg", []byte("x")); err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}

	if _, err := c.Publish(ctx); err == nil {
		t.Fatal("expected publish to fail on upload")
	}
	// The draft and its pending upload survive so the operator can retry.
	if c.State() != StateEditing {
		t.Fatalf("state after failed publish = %s", c.State())
	}
	if c.Draft() == nil || c.Draft().Title != "Doomed" {
		t.Fatalf("draft lost after failed publish: %v", c.Draft())
	}
	if len(c.pending) != 1 {
		t.Fatalf("pending uploads = %d, want 1", len(c.pending))
	}
}

func TestGalleryControllerLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewGalleryController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first, err := c.AddImage(ctx, content.GalleryImage{Caption: "First", Category: "Clinic"},
		"first.jpg", "image/jpeg", []byte("jpeg one"))
	if err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	second, err := c.AddImage(ctx, content.GalleryImage{Caption: "Second", Category: "Clinic"},
		"second.jpg", "image/jpeg", []byte("jpeg two"))
	if err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if len(c.Images()) != 2 {
		t.Fatalf("expected 2 images, got %d", len(c.Images()))
	}
	if c.Images()[0].Src == "" {
		t.Fatalf("uploaded path missing: %+v", c.Images()[0])
	}

	if err := c.Reorder(ctx, []string{second, first}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if c.Images()[0].ID != second || c.Images()[0].Order != 1 {
		t.Fatalf("reorder not mirrored: %+v", c.Images())
	}

	if err := c.SetCategories(ctx, []string{"Clinic", "Community"}); err != nil {
		t.Fatalf("SetCategories() error = %v", err)
	}
	if len(c.Categories()) != 2 {
		t.Fatalf("categories = %v", c.Categories())
	}

	if err := c.DeleteImage(ctx, first); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	if len(c.Images()) != 1 {
		t.Fatalf("delete not mirrored: %v", c.Images())
	}
}

func TestProgressControllerLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewProgressController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	id, err := c.CreateGoal(ctx, content.ProgressGoal{
		Title: "Community Well",
		Bars: []content.LegacyBar{
			{Label: "Raised", Value: 4200},
			{Label: "Goal", Value: 12000},
		},
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if len(c.Goals()) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(c.Goals()))
	}
	if c.Goals()[0].Bars != nil {
		t.Fatalf("legacy bars not migrated locally: %v", c.Goals()[0].Bars)
	}
	if c.Goals()[0].Donations == nil || c.Goals()[0].Donations.Value != 4200 {
		t.Fatalf("donations missing: %v", c.Goals()[0].Donations)
	}

	if err := c.UpdateGoal(ctx, id, content.ProgressGoal{
		Title:     "Community Well Phase 2",
		Goals:     []content.GoalBar{{Name: "Target", Value: 20000}},
		Donations: &content.Donations{Value: 5000},
	}); err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}
	if c.Goals()[0].Title != "Community Well Phase 2" {
		t.Fatalf("update not mirrored: %v", c.Goals()[0])
	}

	if err := c.DeleteGoal(ctx, id); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}
	if len(c.Goals()) != 0 {
		t.Fatalf("delete not mirrored: %v", c.Goals())
	}
}

func TestUpdateImageWithoutOrderKeepsPersistedOrder(t *testing.T) {
	ctx := context.Background()
	c := NewGalleryController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first, err := c.AddImage(ctx, content.GalleryImage{Src: "/images/gallery/a.jpg", Caption: "A"}, "", "", nil)
	if err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if _, err := c.AddImage(ctx, content.GalleryImage{Src: "/images/gallery/b.jpg", Caption: "B"}, "", "", nil); err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}

	// The caption edit carries no order; the stored image must keep its
	// position anyway.
	if err := c.UpdateImage(ctx, first, content.GalleryImage{Src: "/images/gallery/a.jpg", Caption: "A edited"}); err != nil {
		t.Fatalf("UpdateImage() error = %v", err)
	}

	doc, err := c.client.FetchGallery(ctx)
	if err != nil {
		t.Fatalf("FetchGallery() error = %v", err)
	}
	persisted := map[string]content.GalleryImage{}
	for _, img := range doc.Images {
		persisted[img.ID] = img
	}
	if persisted[first].Order != 1 {
		t.Fatalf("persisted order = %d, want 1", persisted[first].Order)
	}
	if persisted[first].Caption != "A edited" {
		t.Fatalf("persisted caption = %q", persisted[first].Caption)
	}
	for _, local := range c.Images() {
		if remote := persisted[local.ID]; remote.Order != local.Order {
			t.Fatalf("controller order %d diverged from stored order %d for %s",
				local.Order, remote.Order, local.ID)
		}
	}
}

func TestUpdateGoalWithoutOrderKeepsPersistedOrder(t *testing.T) {
	ctx := context.Background()
	c := NewProgressController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first, err := c.CreateGoal(ctx, content.ProgressGoal{Title: "Well"})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if _, err := c.CreateGoal(ctx, content.ProgressGoal{Title: "School"}); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	if err := c.UpdateGoal(ctx, first, content.ProgressGoal{Title: "Well Phase 2"}); err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}

	doc, err := c.client.FetchProgress(ctx)
	if err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}
	persisted := map[string]content.ProgressGoal{}
	for _, goal := range doc.Goals {
		persisted[goal.ID] = goal
	}
	if persisted[first].Order != 1 {
		t.Fatalf("persisted order = %d, want 1", persisted[first].Order)
	}
	for _, local := range c.Goals() {
		if remote := persisted[local.ID]; remote.Order != local.Order {
			t.Fatalf("controller order %d diverged from stored order %d for %s",
				local.Order, remote.Order, local.ID)
		}
	}
}

func TestPublishUploadsUnderCollisionSuffixedID(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := c.BeginCreate(); err != nil {
		t.Fatalf("BeginCreate() error = %v", err)
	}
	*c.Draft() = content.Post{Title: "Clinic Opens", Date: "2024-05-01", Category: "Health"}
	if _, err := c.Publish(ctx); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}

	if err := c.BeginCreate(); err != nil {
		t.Fatalf("BeginCreate() error = %v", err)
	}
	c.Draft().Title = "Clinic Opens"
	c.Draft().Date = "2024-05-01"
	c.Draft().Category = "Health"
	if err := c.AttachImage("door", "door.jpg", "image/jpeg", []byte("jpeg")); err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}

	id, err := c.Publish(ctx)
	if err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	if id != "clinic-opens-2024-2" {
		t.Fatalf("second post id = %q", id)
	}
	var published content.Post
	for _, post := range c.Posts() {
		if post.ID == id {
			published = post
		}
	}
	if src := published.Images[0].Src; src != "images/news/clinic-opens-2024-2/door.jpg" {
		t.Fatalf("asset stored under the wrong namespace: %q", src)
	}
}

func TestFilteredSnapshotSurvivesRefilter(t *testing.T) {
	ctx := context.Background()
	c := NewPostsController(newTestClient(t))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, post := range []content.Post{
		{Title: "Clinic Opens", Date: "2024-05-01", Category: "Health"},
		{Title: "Summer Drive", Date: "2024-06-10", Category: "Fundraising"},
	} {
		if err := c.BeginCreate(); err != nil {
			t.Fatalf("BeginCreate() error = %v", err)
		}
		*c.Draft() = post
		if _, err := c.Publish(ctx); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	snapshot := c.Filtered()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 posts in the view, got %d", len(snapshot))
	}
	titles := []string{snapshot[0].Title, snapshot[1].Title}

	c.Filter("", "Health")

	if len(snapshot) != 2 || snapshot[0].Title != titles[0] || snapshot[1].Title != titles[1] {
		t.Fatalf("earlier snapshot rewritten by refilter: %v", snapshot)
	}
	if len(c.Filtered()) != 1 {
		t.Fatalf("new view wrong: %v", c.Filtered())
	}
}

func TestDeleteFailureKeepsLocalCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(content.PostsDoc{Posts: []content.Post{
			{ID: "keeper-2024", Title: "Keeper", Date: "2024-01-01", Category: "Health"},
		}})
	})
	mux.HandleFunc("/api/posts/save", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"code": "CONFLICT", "error": "stale token"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := context.Background()
	c := NewPostsController(NewClient(server.URL))
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	err := c.Delete(ctx, "keeper-2024")
	if err == nil {
		t.Fatal("expected delete to fail")
	}
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(c.Posts()) != 1 {
		t.Fatalf("failed delete removed the post locally: %v", c.Posts())
	}
	if c.State() != StateReady {
		t.Fatalf("state after failed delete = %s", c.State())
	}
}
