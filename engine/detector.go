package engine

import (
	"strings"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// AnySize matches a file of any size.
const AnySize = -1

// FileEntry is one file a game variant is recognized by.
type FileEntry struct {
	Name string
	// MD5 of the first DefaultDigestBytes bytes, empty to skip the check.
	MD5  string
	Size int64
}

// GameDescription is one row of a detection table.
type GameDescription struct {
	GameID   string
	Extra    string
	Files    []FileEntry
	Language string
	Platform string
	Flags    GameFlags
}

// AdvancedDetector is a MetaEngineDetection driven by a table of known
// game variants. A variant matches when every one of its files is present
// with the expected digest and size. When several variants match, those
// relying on the most files win.
type AdvancedDetector struct {
	plugin.Metadata
	engineID     string
	copyright    string
	games        []GameDescriptor
	descriptions []GameDescription
	digestBytes  int64
}

// NewAdvancedDetector returns a detector for the engine engineID.
func NewAdvancedDetector(engineID, name, copyright string, games []GameDescriptor, descriptions []GameDescription) *AdvancedDetector {
	d := &AdvancedDetector{
		Metadata:     plugin.NewMetadata(name),
		engineID:     engineID,
		copyright:    copyright,
		games:        games,
		descriptions: descriptions,
		digestBytes:  DefaultDigestBytes,
	}
	d.Copyright = copyright
	return d
}

// EngineID implements plugin.EngineIdentifier.
func (d *AdvancedDetector) EngineID() string {
	return d.engineID
}

// OriginalCopyright returns the copyright of the original game.
func (d *AdvancedDetector) OriginalCopyright() string {
	return d.copyright
}

// SupportedGames lists the games of the engine.
func (d *AdvancedDetector) SupportedGames() []GameDescriptor {
	games := make([]GameDescriptor, len(d.games))
	copy(games, d.games)
	return games
}

// Detect matches the table against files.
func (d *AdvancedDetector) Detect(files *FileSet) ([]DetectedGame, error) {
	var (
		matches []DetectedGame
		best    int
	)

	for _, desc := range d.descriptions {
		ok, err := d.matches(files, desc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		switch n := len(desc.Files); {
		case n > best:
			best = n
			matches = append(matches[:0], d.detected(files, desc))
		case n == best:
			matches = append(matches, d.detected(files, desc))
		}
	}
	return matches, nil
}

func (d *AdvancedDetector) matches(files *FileSet, desc GameDescription) (bool, error) {
	if len(desc.Files) == 0 {
		return false, nil
	}
	for _, fe := range desc.Files {
		info, ok := files.Lookup(fe.Name)
		if !ok {
			return false, nil
		}
		if fe.Size != AnySize && info.Size() != fe.Size {
			return false, nil
		}
		if fe.MD5 == "" {
			continue
		}
		sum, err := files.MD5(fe.Name, d.digestBytes)
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(sum, fe.MD5) {
			return false, nil
		}
	}
	return true, nil
}

func (d *AdvancedDetector) detected(files *FileSet, desc GameDescription) DetectedGame {
	game := DetectedGame{
		EngineID: d.engineID,
		GameID:   desc.GameID,
		Extra:    desc.Extra,
		Language: desc.Language,
		Platform: desc.Platform,
		Flags:    desc.Flags,
		Path:     files.Dir(),
	}
	for _, g := range d.games {
		if g.GameID == desc.GameID {
			game.Description = g.Description
			break
		}
	}
	if desc.Extra != "" {
		game.Description += " (" + desc.Extra + ")"
	}
	for _, fe := range desc.Files {
		game.MatchedFiles = append(game.MatchedFiles, fe.Name)
	}
	return game
}
