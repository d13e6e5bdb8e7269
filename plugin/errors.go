package plugin

import "errors"

// Plugin system errors.
var (
	// ErrNotLoaded is returned when an accessor is used on an unloaded plugin.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrCapabilityMismatch is returned when a plugin object does not provide
	// the requested capability.
	ErrCapabilityMismatch = errors.New("plugin capability mismatch")

	// ErrVersionMismatch is returned when a module was built against another
	// plugin interface revision.
	ErrVersionMismatch = errors.New("plugin version mismatch")

	// ErrInvalidType is returned when a module reports an unknown plugin type.
	ErrInvalidType = errors.New("invalid plugin type")

	// ErrInvalidPlugin is returned when a module exports unusable symbols.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrUnsupported is returned by the loader on platforms without native
	// module support.
	ErrUnsupported = errors.New("dynamic plugins are not supported on this platform")

	// ErrDetectionPluginNotFound is returned when the uncached manager cannot
	// locate its detection module.
	ErrDetectionPluginNotFound = errors.New("detection plugin not found")

	// ErrNotUncached is returned when a detection toggle is used on a manager
	// running the cached policy.
	ErrNotUncached = errors.New("plugin manager is not uncached")
)
