//go:build !windows

package plugin

// DefaultSuffix is the file name suffix of dynamic modules.
const DefaultSuffix = ".so"

// scanCurrentDir tells whether the working directory is a default plugin
// directory.
const scanCurrentDir = true
