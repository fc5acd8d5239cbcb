package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Artifacts are the on-disk paths the gateway runs from. PromptPath is empty
// when no usage document could be found.
type Artifacts struct {
	DatabasePath string
	PromptPath   string
}

type ResolverOptions struct {
	Dataset      string
	DatabaseFile string
	PromptFile   string
	// CacheDir receives downloaded copies under CacheDir/<dataset>.
	CacheDir string
	// LocalDir holds a copy shipped with the deployment.
	LocalDir string
	Offline  bool
}

// Resolver refreshes the cached artifacts from a Fetcher and falls back to
// the cached copy, then the local copy, when the download fails.
type Resolver struct {
	fetcher Fetcher
	opts    ResolverOptions
}

func NewResolver(fetcher Fetcher, opts ResolverOptions) *Resolver {
	return &Resolver{fetcher: fetcher, opts: opts}
}

// Resolve fails with ErrUnavailable only when no copy of the store exists.
// A missing usage document is logged and tolerated.
func (r *Resolver) Resolve(ctx context.Context) (*Artifacts, error) {
	if !r.opts.Offline && r.fetcher != nil {
		var g errgroup.Group
		for _, name := range []string{r.opts.DatabaseFile, r.opts.PromptFile} {
			if name == "" {
				continue
			}
			g.Go(func() error {
				if err := r.download(ctx, name); err != nil {
					slog.WarnContext(ctx, "Using previously cached copy", "file", name, "error", err)
				}
				return nil
			})
		}
		g.Wait()
	}

	dbPath, err := r.locate(r.opts.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("%w: no copy of %s in %s or %s",
			ErrUnavailable, r.opts.DatabaseFile, r.cacheDir(), r.opts.LocalDir)
	}

	promptPath, err := r.locate(r.opts.PromptFile)
	if err != nil {
		slog.WarnContext(ctx, "Usage document not found", "file", r.opts.PromptFile)
		promptPath = ""
	}

	slog.InfoContext(ctx, "Artifacts resolved", "database", dbPath, "prompt", promptPath)

	return &Artifacts{DatabasePath: dbPath, PromptPath: promptPath}, nil
}

func (r *Resolver) cacheDir() string {
	return filepath.Join(r.opts.CacheDir, r.opts.Dataset)
}

// download replaces the cached copy atomically so a failed transfer never
// clobbers a good file.
func (r *Resolver) download(ctx context.Context, name string) error {
	body, err := r.fetcher.Fetch(ctx, r.opts.Dataset, name)
	if err != nil {
		return err
	}

	dir := r.cacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("unable to install %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Artifact downloaded", "file", name, "bytes", len(body))

	return nil
}

func (r *Resolver) locate(name string) (string, error) {
	if name == "" {
		return "", os.ErrNotExist
	}

	candidates := []string{filepath.Join(r.cacheDir(), name)}
	if r.opts.LocalDir != "" {
		candidates = append(candidates, filepath.Join(r.opts.LocalDir, name))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	return "", os.ErrNotExist
}
