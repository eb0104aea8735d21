package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"caringcms/api/internal/app"
	"caringcms/api/internal/assets"
	"caringcms/api/internal/config"
	"caringcms/api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	contentStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store setup failed: %v", err)
	}

	// A missing store is not fatal at startup: the API answers every
	// content request with a 500 until the credentials are configured.
	var uploads *assets.Service
	if contentStore != nil {
		blobs, err := openAssetBackend(ctx, cfg, contentStore)
		if err != nil {
			log.Fatalf("asset backend setup failed: %v", err)
		}
		uploads = assets.NewService(blobs)
	} else {
		log.Printf("WARNING: no content store configured, content endpoints will return 500")
	}

	paths := app.DocumentPaths{
		Posts:    cfg.PostsPath,
		Gallery:  cfg.GalleryPath,
		Progress: cfg.ProgressPath,
	}
	service := app.New(contentStore, uploads, paths)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Content API listening on %s (store=%s)", cfg.Addr, cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// openStore builds the configured document store. Returning a nil store
// with a nil error means the backend's credentials are absent.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "github":
		if strings.TrimSpace(cfg.GitHubToken) == "" || strings.TrimSpace(cfg.GitHubRepo) == "" {
			return nil, nil
		}
		return store.NewGitHubStore(cfg.GitHubToken, cfg.GitHubRepo, cfg.GitHubBranch), nil

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil
		}
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.ApplyMigrations(ctx, db); err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db), nil

	default:
		if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
			return nil, err
		}
		return store.NewGitStore(cfg.ReposDir, cfg.CommitAuthor)
	}
}

func openAssetBackend(ctx context.Context, cfg config.Config, contentStore store.Store) (assets.BlobStore, error) {
	if cfg.AssetBackend == "minio" {
		minioStore, err := assets.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioSecure)
		if err != nil {
			return nil, err
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return minioStore, nil
	}
	return assets.NewStoreBlobs(contentStore), nil
}
