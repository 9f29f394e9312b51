package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/bucket"
	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/filesystem"
	itemgatehttp "github.com/sagarc03/itemgate/http"
	"github.com/sagarc03/itemgate/serviceaccount"
)

// blobBackend is the configured blob store plus the files it can serve back
// over HTTP, if any.
type blobBackend struct {
	store itemgate.BlobStore
	files itemgatehttp.PublicFiles
	close func() error
}

// openBlobStore builds the store selected by cfg.Type. For the filesystem
// store an empty public base URL means this server on localhost.
func openBlobStore(ctx context.Context, cfg config.StorageConfig, port int) (*blobBackend, error) {
	switch cfg.Type {
	case "filesystem":
		publicBaseURL := cfg.PublicBaseURL
		if publicBaseURL == "" {
			publicBaseURL = fmt.Sprintf("http://localhost:%d", port)
		}

		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage root: %w", err)
		}

		store, err := filesystem.NewFileStorage(root, publicBaseURL)
		if err != nil {
			_ = root.Close()
			return nil, err
		}

		slog.Info("using filesystem storage", "path", cfg.Path, "public_base_url", publicBaseURL)
		return &blobBackend{store: store, files: store, close: root.Close}, nil

	case "s3":
		acct, err := serviceaccount.Load(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("load service account: %w", err)
		}

		bucketCfg := bucket.Config{
			Bucket:        cfg.Bucket,
			Endpoint:      cfg.S3.Endpoint,
			Region:        cfg.S3.Region,
			UsePathStyle:  cfg.S3.UsePathStyle,
			PublicRead:    cfg.S3.PublicRead,
			PublicBaseURL: cfg.PublicBaseURL,
		}

		client, err := bucket.NewClient(ctx, bucketCfg, acct)
		if err != nil {
			return nil, fmt.Errorf("create bucket client: %w", err)
		}

		store, err := bucket.New(client, bucketCfg)
		if err != nil {
			return nil, err
		}

		slog.Info("using bucket storage", "bucket", cfg.Bucket, "endpoint", bucketCfg.Endpoint, "project", acct.ProjectID)
		return &blobBackend{store: store, close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
}
