// Package content holds the collection data model and the pure mutators
// that compute a new collection from an old one plus an action. Nothing in
// this package touches the network or the store.
package content

import (
	"regexp"
	"strconv"
	"strings"
)

// Image is one carousel entry on a post. The first entry doubles as the
// legacy single-image field consumed by older pages.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Video is an embedded video on a post. Type and EmbedURL are derived from
// the URL shape, never stored by the operator.
type Video struct {
	Type     string `json:"type,omitempty"`
	URL      string `json:"url"`
	EmbedURL string `json:"embedUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// FeaturedVideo is the single highlighted video, distinct from the video
// list.
type FeaturedVideo struct {
	URL      string `json:"url"`
	EmbedURL string `json:"embedUrl,omitempty"`
}

// PDF is a downloadable document attached to a post.
type PDF struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Post struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Date          string         `json:"date"` // ISO yyyy-mm-dd
	Year          int            `json:"year,omitempty"`
	Category      string         `json:"category"`
	Author        string         `json:"author,omitempty"`
	Image         string         `json:"image,omitempty"`
	ImageAlt      string         `json:"imageAlt,omitempty"`
	Images        []Image        `json:"images,omitempty"`
	FeaturedVideo *FeaturedVideo `json:"featuredVideo,omitempty"`
	Videos        []Video        `json:"videos,omitempty"`
	PDFs          []PDF          `json:"pdfs,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Content       string         `json:"content,omitempty"`
}

func (p Post) ItemID() string { return p.ID }

// PostsDoc is the top-level shape of the posts collection document.
type PostsDoc struct {
	Posts []Post `json:"posts"`
}

var (
	youtubeRe  = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	vimeoRe    = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// SlugID derives a stable post id from the title and the year of its date.
func SlugID(title, date string) string {
	slug := strings.ToLower(title)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return slug + "-" + strconv.Itoa(yearOf(date))
}

// VideoType reports the recognized video host for a URL, or empty.
func VideoType(url string) string {
	switch {
	case strings.Contains(url, "youtube.com"), strings.Contains(url, "youtu.be"):
		return "youtube"
	case strings.Contains(url, "vimeo.com"):
		return "vimeo"
	}
	return ""
}

// EmbedURL derives the embeddable player URL for a recognized video host,
// or empty when the URL shape is not recognized.
func EmbedURL(url string) string {
	if m := youtubeRe.FindStringSubmatch(url); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := vimeoRe.FindStringSubmatch(url); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	return ""
}

// Normalize fills every derived field of a post: the year, the legacy
// single-image pair mirrored from the first carousel entry, the slug id
// when absent, and video types and embed URLs.
func (p *Post) Normalize() {
	p.Year = yearOf(p.Date)
	if p.ID == "" {
		p.ID = SlugID(p.Title, p.Date)
	}
	if len(p.Images) > 0 {
		p.Image = p.Images[0].Src
		p.ImageAlt = p.Images[0].Alt
	} else if p.Image != "" {
		p.Images = []Image{{Src: p.Image, Alt: p.ImageAlt}}
	}
	for i := range p.Videos {
		p.Videos[i].Type = VideoType(p.Videos[i].URL)
		p.Videos[i].EmbedURL = EmbedURL(p.Videos[i].URL)
	}
	if p.FeaturedVideo != nil {
		if p.FeaturedVideo.URL == "" {
			p.FeaturedVideo = nil
		} else {
			p.FeaturedVideo.EmbedURL = EmbedURL(p.FeaturedVideo.URL)
		}
	}
}

// SortPosts orders posts newest first. Sort order is derived from the date,
// not stored. ISO dates compare correctly as strings.
func SortPosts(posts []Post) {
	stableSort(posts, func(a, b Post) bool { return a.Date > b.Date })
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
