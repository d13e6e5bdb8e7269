package plugin

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CachedProvider remembers the last enumeration of another provider until it
// is invalidated, either explicitly or by a directory watcher.
type CachedProvider struct {
	mu      sync.Mutex
	source  Provider
	plugins []Plugin
	valid   bool
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *zap.Logger
}

// NewCachedProvider wraps source.
func NewCachedProvider(source Provider) *CachedProvider {
	return &CachedProvider{
		source: source,
		log:    zap.L().Named("plugins"),
	}
}

// Plugins implements Provider.
func (c *CachedProvider) Plugins() []Plugin {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		c.plugins = c.source.Plugins()
		c.valid = true
	}
	pl := make([]Plugin, len(c.plugins))
	copy(pl, c.plugins)
	return pl
}

// Invalidate drops the cached enumeration.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// Watch invalidates the cache whenever a file is created, removed or renamed
// in one of dirs. Directories that cannot be watched are skipped. A watcher
// started by an earlier call is stopped first.
func (c *CachedProvider) Watch(dirs []string) error {
	if err := c.Close(); err != nil {
		c.log.Warn("Failed stopping the previous plugin directory watcher", zap.Error(err))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			c.log.Debug("Couldn't watch plugin directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	c.mu.Lock()
	c.watcher = w
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					c.log.Debug("Plugin directory changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
					c.Invalidate()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("Plugin directory watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (c *CachedProvider) Close() error {
	c.mu.Lock()
	w, done := c.watcher, c.done
	c.watcher = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
