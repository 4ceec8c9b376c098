package fetcher

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DirFetcher implements Fetcher over a local directory.
type DirFetcher struct {
	Root string
}

// NewDirFetcher creates a DirFetcher rooted at root.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{Root: root}
}

// Download opens the file at p under the root. Paths that escape the root
// are rejected.
func (d *DirFetcher) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "fetcher: context")
	}
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "\\") {
		return nil, eris.Errorf("fetcher: invalid path %q", p)
	}
	full := filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	file, err := os.Open(full) //nolint:gosec
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", p)
	}
	return file, nil
}
