package engine

import "errors"

// Engine manager errors.
var (
	// ErrEngineNotFound is returned when no plugin provides an engine.
	ErrEngineNotFound = errors.New("engine not found")

	// ErrDetectionNotFound is returned when no detection is loaded for an
	// engine.
	ErrDetectionNotFound = errors.New("engine detection not found")

	// ErrNoTargetStore is returned by target operations when the manager has
	// no store.
	ErrNoTargetStore = errors.New("no target store configured")

	// ErrFileNotFound is returned when a file is not part of a file set.
	ErrFileNotFound = errors.New("file not found in game directory")

	// ErrGameNotFound is returned when no detection supports a game.
	ErrGameNotFound = errors.New("game not found")

	// ErrAmbiguousTarget is returned when several engines support the game of
	// a target lacking an engine.
	ErrAmbiguousTarget = errors.New("target matches several engines")

	// ErrUnsupported is returned when an engine lacks a feature.
	ErrUnsupported = errors.New("feature not supported by engine")

	// ErrInvalidSlot is returned for save slots out of range.
	ErrInvalidSlot = errors.New("invalid save slot")
)
