package content

// GalleryImage is one photo in the site gallery. Order is a dense 1..N
// position rewritten for the whole collection on every reorder.
type GalleryImage struct {
	ID       string `json:"id"`
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Category string `json:"category,omitempty"`
	Order    int    `json:"order"`
}

func (g GalleryImage) ItemID() string { return g.ID }

// GalleryDoc is the top-level shape of the gallery collection document.
type GalleryDoc struct {
	Categories []string       `json:"categories"`
	Images     []GalleryImage `json:"images"`
}

// SortGallery orders images by their explicit order field, ascending.
func SortGallery(images []GalleryImage) {
	stableSort(images, func(a, b GalleryImage) bool { return a.Order < b.Order })
}
