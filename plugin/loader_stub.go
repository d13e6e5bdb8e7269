//go:build !((linux || darwin || freebsd) && cgo)

package plugin

// GoLoader is unavailable on this platform: every Open fails.
type GoLoader struct{}

// DefaultLoader returns the loader of the current platform.
func DefaultLoader() Loader {
	return GoLoader{}
}

// Open implements Loader.
func (GoLoader) Open(path string) (Module, error) {
	return nil, ErrUnsupported
}
