package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
)

// Document serves the usage text from its resolved path.
type Document struct {
	path string
}

func NewDocument(path string) *Document {
	return &Document{path: path}
}

func (d *Document) Text(ctx context.Context) (string, error) {
	if d.path == "" {
		return "", fmt.Errorf("%w: usage document was not resolved: %w", ErrUnavailable, fs.ErrNotExist)
	}

	b, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return string(b), nil
}
