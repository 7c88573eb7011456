package ports

import (
	"context"
	"io"
)

// DocumentStore fetches remote documents by URL
type DocumentStore interface {
	// Get returns the response body of a successful GET. The caller closes it.
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}
