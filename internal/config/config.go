package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	CORSOrigin string

	// StoreBackend selects where collection documents live: "git" (a local
	// repository under ReposDir), "github" (the contents API), or
	// "postgres".
	StoreBackend string
	ReposDir     string
	GitHubToken  string
	GitHubRepo   string
	GitHubBranch string
	DatabaseURL  string

	// AssetBackend selects where uploads land: "store" writes them next to
	// the documents, "minio" sends them to S3-compatible object storage.
	AssetBackend   string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	PostsPath    string
	GalleryPath  string
	ProgressPath string

	CommitAuthor string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8788"),
		CORSOrigin: getenv("CMS_CORS_ORIGIN", "*"),

		StoreBackend: getenv("CMS_STORE_BACKEND", "git"),
		ReposDir:     getenv("CMS_REPOS_DIR", "./data/repo"),
		GitHubToken:  getenv("GITHUB_TOKEN", ""),
		GitHubRepo:   getenv("GITHUB_REPO", ""),
		GitHubBranch: getenv("GITHUB_BRANCH", "main"),
		DatabaseURL:  getenv("DATABASE_URL", ""),

		AssetBackend:   getenv("CMS_ASSET_BACKEND", "store"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "cms-assets"),
		MinioSecure:    getenvBool("MINIO_SECURE", false),

		PostsPath:    getenv("CMS_POSTS_PATH", "data/news-posts.json"),
		GalleryPath:  getenv("CMS_GALLERY_PATH", "data/gallery.json"),
		ProgressPath: getenv("CMS_PROGRESS_PATH", "data/progress.json"),

		CommitAuthor: getenv("CMS_COMMIT_AUTHOR", "CMS Admin"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
