package engine

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/karlseguin/ccache"
	"github.com/spf13/afero"
)

const (
	// DefaultDigestBytes is how much of a file detection hashes.
	DefaultDigestBytes = 5000

	// DefaultDigestCacheSize is the number of digests kept by default.
	DefaultDigestCacheSize = 1024

	digestTTL = time.Hour
)

// DigestCache remembers file digests. Entries are keyed by path, size and
// modification time so a changed file is hashed again.
type DigestCache struct {
	cache *ccache.Cache
}

// NewDigestCache returns a cache holding up to size digests.
func NewDigestCache(size int64) *DigestCache {
	if size <= 0 {
		size = DefaultDigestCacheSize
	}
	return &DigestCache{
		cache: ccache.New(ccache.Configure().MaxSize(size).ItemsToPrune(uint32(size/10 + 1))),
	}
}

// Digest returns the md5 of the first limit bytes of the file at path. A
// negative limit hashes the whole file.
func (c *DigestCache) Digest(fs afero.Fs, path string, info os.FileInfo, limit int64) (string, error) {
	if c == nil {
		return digest(fs, path, limit)
	}

	key := fmt.Sprintf("%s:%d:%d:%d", path, limit, info.Size(), info.ModTime().UnixNano())
	item, err := c.cache.Fetch(key, digestTTL, func() (interface{}, error) {
		return digest(fs, path, limit)
	})
	if err != nil {
		return "", err
	}
	return item.Value().(string), nil
}

// Stop releases the cache worker.
func (c *DigestCache) Stop() {
	if c != nil {
		c.cache.Stop()
	}
}

func digest(fs afero.Fs, path string, limit int64) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if limit >= 0 {
		r = io.LimitReader(f, limit)
	}

	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
