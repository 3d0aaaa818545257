package app

import (
	"context"
	"fmt"

	"bookify/pkg/auth"
	"bookify/pkg/domain"
	"bookify/pkg/storage"
	"bookify/pkg/store"
)

// Notifier delivers best-effort notification emails. Implementations must
// never block the request path on delivery.
type Notifier interface {
	BookRequested(ctx context.Context, req domain.BookRequest)
	BookAdded(ctx context.Context, book domain.Book)
}

type noopNotifier struct{}

func (noopNotifier) BookRequested(context.Context, domain.BookRequest) {}
func (noopNotifier) BookAdded(context.Context, domain.Book)            {}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string

	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	MinioPublicBaseURL string

	// Test seams. When set, the corresponding connection settings are ignored.
	Store    store.Store
	Objects  storage.ObjectStore
	Notifier Notifier
}

// App is the core application service wiring together storage, object
// storage, tokens, and notifications.
type App struct {
	store    store.Store
	objects  storage.ObjectStore
	tokens   *auth.TokenIssuer
	notifier Notifier
}

// New constructs the application with database-backed storage and an object
// store for uploaded media.
func New(cfg Config) (*App, error) {
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	objects := cfg.Objects
	if objects == nil {
		objects, err = storage.NewMinioStore(storage.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &App{
		store:    dataStore,
		objects:  objects,
		tokens:   tokens,
		notifier: notifier,
	}, nil
}
