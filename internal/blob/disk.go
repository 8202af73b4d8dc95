package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes objects under a local directory that the server exposes at baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put copies r to disk, stopping when ctx is done. A partial file is removed.
func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	target := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, &contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return s.baseURL + "/" + name, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
