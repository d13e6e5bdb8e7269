package capbible

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// buildArchive returns a main archive holding members, in order.
func buildArchive(t *testing.T, members ...Member) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(members))))
	for _, m := range members {
		var raw rawMember
		base, ext := m.Name, ""
		if i := bytes.LastIndexByte([]byte(m.Name), '.'); i >= 0 {
			base, ext = m.Name[:i], m.Name[i+1:]
		}
		copy(raw.BaseName[:], base)
		copy(raw.Extension[:], ext)
		raw.Compression = m.Compression
		raw.Offset = m.Offset
		raw.DecompressedSize = m.DecompressedSize
		raw.CompressedSize = m.CompressedSize
		require.NoError(t, binary.Write(buf, binary.LittleEndian, raw))
	}
	return buf.Bytes()
}

func TestReadMainArchive(t *testing.T) {
	data := buildArchive(t,
		Member{Name: "TITLE.PIC", Compression: 1, Offset: 200, DecompressedSize: 64000, CompressedSize: 12000},
		Member{Name: "INTRO.VOC", Offset: 100, DecompressedSize: 500, CompressedSize: 500},
		Member{Name: "README", Offset: 900},
	)

	a, err := ReadMainArchive(bytes.NewReader(data))
	require.NoError(t, err)

	assert.True(t, a.Has("title.pic"))
	assert.True(t, a.Has("README"))
	assert.False(t, a.Has("missing.dat"))

	m, ok := a.Member("Title.Pic")
	require.True(t, ok)
	assert.Equal(t, Member{Name: "TITLE.PIC", Compression: 1, Offset: 200, DecompressedSize: 64000, CompressedSize: 12000}, m)

	var names []string
	for _, m := range a.Members() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"INTRO.VOC", "TITLE.PIC", "README"}, names)
}

func TestReadMainArchiveTruncated(t *testing.T) {
	data := buildArchive(t, Member{Name: "A.DAT"}, Member{Name: "B.DAT"})

	_, err := ReadMainArchive(bytes.NewReader(data[:len(data)-4]))
	assert.Error(t, err)

	_, err = ReadMainArchive(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestDetection(t *testing.T) {
	d := NewDetection()
	assert.Equal(t, EngineID, d.EngineID())
	assert.Equal(t, "Captain Bible", d.GetMetadata().Name)
	assert.Contains(t, d.OriginalCopyright(), "Bridgestone Multimedia Group")
	assert.Equal(t, []engine.GameDescriptor{{GameID: "domeofdarkness", Description: "Captain Bible in Dome of Darkness"}}, d.SupportedGames())

	// Right names and sizes, wrong content.
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cb/CB.EXE", make([]byte, 64299), 0644))
	require.NoError(t, afero.WriteFile(fs, "/cb/DD1.DAT", make([]byte, 1866068), 0644))
	files, err := engine.NewFileSet(fs, "/cb", nil)
	require.NoError(t, err)

	games, err := d.Detect(files)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestMetaEngine(t *testing.T) {
	m := NewMetaEngine()
	assert.Equal(t, EngineID, m.GetMetadata().Name)
	assert.True(t, m.HasFeature(engine.SupportsListSaves))
	assert.True(t, m.HasFeature(engine.SupportsLoadingDuringStartup))
	assert.True(t, m.HasFeature(engine.SupportsDeleteSave))
	assert.False(t, m.HasFeature(engine.Feature(42)))
	assert.Equal(t, "capbible.s07", SaveFileName(7))

	_, err := m.CreateInstance(afero.NewMemMapFs(), engine.DetectedGame{EngineID: "sky", GameID: "sky"})
	assert.Error(t, err)
}

func TestEngineRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cb/CBSE.DAT", buildArchive(t, Member{Name: "TITLE.PIC"}, Member{Name: "MAP.DAT"}), 0644))

	m := NewMetaEngine()
	inst, err := m.CreateInstance(fs, engine.DetectedGame{
		EngineID: EngineID,
		GameID:   "domeofdarkness",
		Flags:    engine.FlagDemo,
		Path:     "/cb",
	})
	require.NoError(t, err)
	e := inst.(*Engine)
	assert.Equal(t, "cbse.dat", e.ArchiveName())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	require.NotNil(t, e.Archive())
	assert.True(t, e.Archive().Has("map.dat"))
}

func TestEngineRunMissingArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cb", 0755))

	inst, err := NewMetaEngine().CreateInstance(fs, engine.DetectedGame{EngineID: EngineID, Path: "/cb"})
	require.NoError(t, err)
	assert.Equal(t, "dd1.dat", inst.(*Engine).ArchiveName())
	assert.ErrorIs(t, inst.Run(context.Background()), engine.ErrFileNotFound)
}

func TestRegistered(t *testing.T) {
	var detection, metaEngine bool
	for _, p := range plugin.NewStaticProvider().Plugins() {
		typ, err := p.Type()
		require.NoError(t, err)
		switch typ {
		case plugin.TypeEngineDetection:
			id, err := p.EngineID()
			require.NoError(t, err)
			if id == EngineID {
				_, err := plugin.As[engine.MetaEngineDetection](p)
				require.NoError(t, err)
				detection = true
			}
		case plugin.TypeEngine:
			if name, _ := p.Name(); name == EngineID {
				_, err := plugin.As[engine.MetaEngine](p)
				require.NoError(t, err)
				metaEngine = true
			}
		}
	}
	assert.True(t, detection)
	assert.True(t, metaEngine)
}

func writeSave(t *testing.T, saves afero.Fs, name, description string) {
	t.Helper()
	data := make([]byte, saveHeaderSize+saveDescription+64)
	copy(data[saveHeaderSize:], description)
	require.NoError(t, afero.WriteFile(saves, name, data, 0644))
}

func TestSaves(t *testing.T) {
	saves := afero.NewBasePathFs(afero.NewMemMapFs(), "/saves")
	writeSave(t, saves, "capbible.s12", "In the dome")
	writeSave(t, saves, "capbible.s03", "Chapter one")
	require.NoError(t, afero.WriteFile(saves, "capbible.s99", []byte("tiny"), 0644))
	require.NoError(t, afero.WriteFile(saves, "capbible.sav", nil, 0644))
	require.NoError(t, afero.WriteFile(saves, "sky.s01", nil, 0644))

	m := NewMetaEngine()
	var sm engine.SaveManager = m
	assert.Equal(t, 99, sm.MaxSaveSlot())

	list, err := m.ListSaves(saves, "domeofdarkness")
	require.NoError(t, err)
	assert.Equal(t, []engine.SaveState{
		{Slot: 3, Description: "Chapter one", FileName: "capbible.s03"},
		{Slot: 12, Description: "In the dome", FileName: "capbible.s12"},
		{Slot: 99, FileName: "capbible.s99"},
	}, list)

	require.NoError(t, m.RemoveSaveState(saves, "domeofdarkness", 12))
	list, err = m.ListSaves(saves, "domeofdarkness")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, m.RemoveSaveState(saves, "domeofdarkness", 100), engine.ErrInvalidSlot)
	assert.Error(t, m.RemoveSaveState(saves, "domeofdarkness", 12))
}

func TestSavesEmpty(t *testing.T) {
	saves := afero.NewBasePathFs(afero.NewMemMapFs(), "/saves")
	require.NoError(t, saves.MkdirAll(".", 0755))

	list, err := NewMetaEngine().ListSaves(saves, "domeofdarkness")
	require.NoError(t, err)
	assert.Empty(t, list)
}
