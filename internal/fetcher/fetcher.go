package fetcher

import (
	"context"
	"io"
)

// Fetcher retrieves a data file by its slash-separated path, relative to a
// base location such as "web_data/stations.geojson".
type Fetcher interface {
	// Download returns the file body. Callers close it.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
}
