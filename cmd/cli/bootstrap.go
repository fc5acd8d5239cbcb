package cli

import (
	"context"
	"fmt"
	"log/slog"

	"longevitygenie/opengenes/internal/artifact"
	"longevitygenie/opengenes/internal/config"
	"longevitygenie/opengenes/internal/db"
	querysql "longevitygenie/opengenes/internal/db/sql"
	"longevitygenie/opengenes/internal/gateway"
	"longevitygenie/opengenes/internal/schema"
)

// app holds everything a command needs once the artifacts are in place.
type app struct {
	store    *db.Store
	catalog  *schema.Catalog
	usage    *artifact.Document
	executor *db.Executor
	gateway  *gateway.Gateway
}

// openApp resolves the artifacts and opens the store. It fails when no copy
// of the store exists, so nothing is served against a missing database.
func openApp(ctx context.Context, cfg *config.Config, useCache bool) (*app, error) {
	var fetcher artifact.Fetcher
	if remote := newRemote(cfg); remote != nil {
		fetcher = remote
	}

	resolver := artifact.NewResolver(fetcher, artifact.ResolverOptions{
		Dataset:      cfg.Data.Dataset,
		DatabaseFile: cfg.Data.DatabaseFile,
		PromptFile:   cfg.Data.PromptFile,
		CacheDir:     cfg.Data.CacheDir,
		LocalDir:     cfg.Data.LocalDir,
		Offline:      cfg.Data.Offline,
	})

	arts, err := resolver.Resolve(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Unable to resolve artifacts", "error", err)
		return nil, err
	}

	store, err := db.Open(ctx, arts.DatabasePath, db.StoreOptions{MaxConnections: cfg.MaxConnections})
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}

	var cache *db.Cache
	if cfg.Cache.UseCache && useCache {
		cache = db.NewCache(cfg.Cache.MaxAge)
	}

	executor := db.NewExecutor(store, querysql.ReadOnly(), db.ExecutorOptions{
		Timeout:    cfg.QueryTimeout(),
		MaxWorkers: cfg.MaxWorkers,
		Cache:      cache,
	})

	usage := artifact.NewDocument(arts.PromptPath)
	catalog := schema.NewCatalog(store, usage)

	return &app{
		store:    store,
		catalog:  catalog,
		usage:    usage,
		executor: executor,
		gateway:  gateway.New(executor, catalog, usage),
	}, nil
}

// newRemote returns nil when no remote URL is configured.
func newRemote(cfg *config.Config) *artifact.Remote {
	if cfg.Data.RemoteURL == "" {
		return nil
	}
	return &artifact.Remote{
		BaseURL:    cfg.Data.RemoteURL,
		Token:      cfg.Data.Token,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff(),
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
