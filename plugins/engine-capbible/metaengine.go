package capbible

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// Screen geometry.
const (
	ScreenWidth  = 320
	ScreenHeight = 240
)

// MaxSaveSlot is the highest save slot, also used for autosaves.
const MaxSaveSlot = 99

// MetaEngine creates capbible engine instances.
type MetaEngine struct {
	plugin.Metadata
}

// NewMetaEngine returns the meta engine.
func NewMetaEngine() *MetaEngine {
	m := &MetaEngine{Metadata: plugin.NewMetadata(EngineID)}
	m.Description = "Captain Bible engine"
	return m
}

// HasFeature implements engine.MetaEngine.
func (m *MetaEngine) HasFeature(f engine.Feature) bool {
	switch f {
	case engine.SupportsListSaves, engine.SupportsLoadingDuringStartup, engine.SupportsDeleteSave:
		return true
	}
	return false
}

// CreateInstance implements engine.MetaEngine.
func (m *MetaEngine) CreateInstance(fs afero.Fs, game engine.DetectedGame) (engine.Engine, error) {
	if game.EngineID != "" && game.EngineID != EngineID {
		return nil, fmt.Errorf("game %s belongs to engine %s", game.GameID, game.EngineID)
	}
	return &Engine{
		fs:   fs,
		game: game,
		log:  zap.L().Named(EngineID),
	}, nil
}

// SaveFileName returns the save file of slot.
func SaveFileName(slot int) string {
	return fmt.Sprintf("capbible.s%02d", slot)
}

// savePattern matches the save files of every slot.
const savePattern = "capbible.s[0-9][0-9]"

// Save file header: 16 bytes of state, then the description.
const (
	saveHeaderSize  = 16
	saveDescription = 32
)

// ListSaves implements engine.SaveManager. Every target shares the same save
// files.
func (m *MetaEngine) ListSaves(saves afero.Fs, target string) ([]engine.SaveState, error) {
	files, err := afero.Glob(saves, savePattern)
	if err != nil {
		return nil, err
	}

	var list []engine.SaveState
	for _, file := range files {
		slot, err := strconv.Atoi(file[len(file)-2:])
		if err != nil || slot < 0 || slot > MaxSaveSlot {
			continue
		}
		desc, err := readSaveDescription(saves, file)
		if err != nil {
			zap.L().Named(EngineID).Debug("Skipping unreadable save", zap.String("file", file), zap.Error(err))
			continue
		}
		list = append(list, engine.SaveState{Slot: slot, Description: desc, FileName: filepath.Base(file)})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Slot < list[j].Slot })
	return list, nil
}

// MaxSaveSlot implements engine.SaveManager. The last slot holds autosaves.
func (m *MetaEngine) MaxSaveSlot() int {
	return MaxSaveSlot
}

// RemoveSaveState implements engine.SaveManager.
func (m *MetaEngine) RemoveSaveState(saves afero.Fs, target string, slot int) error {
	if slot < 0 || slot > MaxSaveSlot {
		return fmt.Errorf("slot %d: %w", slot, engine.ErrInvalidSlot)
	}
	return saves.Remove(SaveFileName(slot))
}

func readSaveDescription(saves afero.Fs, name string) (string, error) {
	f, err := saves.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, saveHeaderSize+saveDescription)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n <= saveHeaderSize {
		return "", nil
	}
	desc := buf[saveHeaderSize:n]
	if i := bytes.IndexByte(desc, 0); i >= 0 {
		desc = desc[:i]
	}
	return string(desc), nil
}

// Engine is a running game.
type Engine struct {
	fs      afero.Fs
	game    engine.DetectedGame
	log     *zap.Logger
	archive *MainArchive
}

// ArchiveName returns the main data file of the game variant.
func (e *Engine) ArchiveName() string {
	if e.game.Flags.Has(engine.FlagDemo) {
		return "cbse.dat"
	}
	return "dd1.dat"
}

// Archive returns the main archive once Run has opened it.
func (e *Engine) Archive() *MainArchive {
	return e.archive
}

// Run opens the main archive then runs until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	files, err := engine.NewFileSet(e.fs, e.game.Path, nil)
	if err != nil {
		return err
	}
	info, ok := files.Lookup(e.ArchiveName())
	if !ok {
		return fmt.Errorf("%s: %w", e.ArchiveName(), engine.ErrFileNotFound)
	}

	f, err := e.fs.Open(filepath.Join(e.game.Path, info.Name()))
	if err != nil {
		return err
	}
	e.archive, err = ReadMainArchive(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", info.Name(), err)
	}

	e.log.Info("Game started",
		zap.String("game", e.game.GameID),
		zap.String("archive", info.Name()),
		zap.Int("members", len(e.archive.members)),
		zap.Int("width", ScreenWidth),
		zap.Int("height", ScreenHeight))

	<-ctx.Done()
	e.log.Info("Game stopped", zap.String("game", e.game.GameID))
	return nil
}

// init function that will register the engine to the plugin manager
func init() {
	plugin.RegisterStatic(plugin.TypeEngine, func() plugin.Object {
		return NewMetaEngine()
	})
}
