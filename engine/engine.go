// Package engine defines what engine modules expose to the host and drives
// game detection, target creation and launching on top of the plugin
// manager.
package engine

import (
	"context"

	"github.com/spf13/afero"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// Feature is an optional capability of a meta engine.
type Feature int

// Meta engine features.
const (
	SupportsListSaves Feature = iota
	SupportsLoadingDuringStartup
	SupportsDeleteSave
)

func (f Feature) String() string {
	switch f {
	case SupportsListSaves:
		return "list-saves"
	case SupportsLoadingDuringStartup:
		return "loading-during-startup"
	case SupportsDeleteSave:
		return "delete-save"
	}
	return "unknown"
}

// GameFlags qualify a detected game variant.
type GameFlags uint32

// Game flags.
const (
	FlagUnstable GameFlags = 1 << iota
	FlagDemo
	FlagTesting
)

// Has reports whether every flag of f is set.
func (g GameFlags) Has(f GameFlags) bool {
	return g&f == f
}

// GameDescriptor names a game an engine supports.
type GameDescriptor struct {
	GameID      string
	Description string
}

// QualifiedGame is a supported game together with its engine.
type QualifiedGame struct {
	EngineID string
	GameDescriptor
}

// DetectedGame is a game variant found in a data directory.
type DetectedGame struct {
	EngineID    string
	GameID      string
	Description string
	Extra       string
	Language    string
	Platform    string
	Flags       GameFlags
	Path        string
	// MatchedFiles are the file names the detection relied on.
	MatchedFiles []string
}

// MetaEngineDetection is the object of an engine detection plugin. It holds
// what is needed to recognize the games of one engine without loading the
// engine itself.
type MetaEngineDetection interface {
	plugin.Object
	plugin.EngineIdentifier
	OriginalCopyright() string
	SupportedGames() []GameDescriptor
	Detect(files *FileSet) ([]DetectedGame, error)
}

// MetaEngine is the object of an engine plugin. Its metadata name is the
// engine identifier.
type MetaEngine interface {
	plugin.Object
	HasFeature(f Feature) bool
	CreateInstance(fs afero.Fs, game DetectedGame) (Engine, error)
}

// SaveState describes one saved game.
type SaveState struct {
	Slot        int
	Description string
	FileName    string
}

// SaveManager is implemented by meta engines reporting SupportsListSaves or
// SupportsDeleteSave. Saves are read from and removed on the saves
// filesystem.
type SaveManager interface {
	// ListSaves returns the saves of target sorted by slot.
	ListSaves(saves afero.Fs, target string) ([]SaveState, error)
	MaxSaveSlot() int
	RemoveSaveState(saves afero.Fs, target string, slot int) error
}

// Engine is a running game interpreter.
type Engine interface {
	// Run blocks until the game ends or ctx is done.
	Run(ctx context.Context) error
}

// DetectionSet is the object of a detection plugin: the detections of every
// engine bundled in a single module.
type DetectionSet interface {
	plugin.Object
	Detections() []MetaEngineDetection
}

// MusicDriver is the object of a music plugin.
type MusicDriver interface {
	plugin.Object
	DriverID() string
	Devices() []string
}

// Scaler is the object of a scaler plugin. It scales 8 bit paletted frames.
type Scaler interface {
	plugin.Object
	Factors() []int
	// ExtraPixels is how many pixels around a dirty area the scaler reads.
	ExtraPixels() int
	Scale(src []byte, width, height, factor int) ([]byte, error)
}
