package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Storage persists uploaded media blobs under opaque keys.
type Storage interface {
	Save(ctx context.Context, key string, contents io.Reader, options ...Option) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete succeeds when the key is already gone.
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Option func(*Options)

type Options struct {
	ContentType   string
	ContentLength int64
	CacheControl  string
	Metadata      map[string]string
}

func WithContentType(contentType string) Option {
	return func(o *Options) {
		o.ContentType = contentType
	}
}

func WithContentLength(size int64) Option {
	return func(o *Options) {
		o.ContentLength = size
	}
}

func WithCacheControl(cacheControl string) Option {
	return func(o *Options) {
		o.CacheControl = cacheControl
	}
}

func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) {
		o.Metadata = metadata
	}
}

func NewOptions(opts ...Option) *Options {
	options := &Options{Metadata: make(map[string]string)}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// New builds the configured storage driver.
func New(ctx context.Context, cfg config.StorageConfig, s3cfg config.S3Config, logg *logger.Logger) (Storage, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		store Storage
		err   error
	)
	switch driver {
	case config.StorageDriverLocal:
		store, err = NewLocalStorage(cfg.LocalRoot, cfg.PublicBaseURL)
	case config.StorageDriverS3:
		store, err = NewS3Storage(ctx, s3cfg, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "storage_driver", driver), "media storage initialized")
	}
	return store, nil
}

func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", errors.New("storage key is required")
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." || part == "." || part == "" {
			return "", fmt.Errorf("invalid storage key %q", key)
		}
	}
	return trimmed, nil
}
