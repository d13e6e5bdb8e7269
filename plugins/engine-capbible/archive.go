package capbible

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Member is an entry of the main archive table of contents.
type Member struct {
	Name             string
	Compression      byte
	Offset           uint32
	DecompressedSize uint32
	CompressedSize   uint32
}

// rawMember is the on disk layout of a table of contents entry.
type rawMember struct {
	BaseName         [8]byte
	Compression      byte
	Extension        [3]byte
	Offset           uint32
	DecompressedSize uint32
	CompressedSize   uint32
}

// MainArchive indexes the members of a game data file.
type MainArchive struct {
	members map[string]Member
}

// ReadMainArchive reads the table of contents at the start of r.
func ReadMainArchive(r io.Reader) (*MainArchive, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read member count: %w", err)
	}

	a := &MainArchive{members: make(map[string]Member, count)}
	for i := 0; i < int(count); i++ {
		var raw rawMember
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("read member %d: %w", i, err)
		}

		m := Member{
			Name:             memberName(raw),
			Compression:      raw.Compression,
			Offset:           raw.Offset,
			DecompressedSize: raw.DecompressedSize,
			CompressedSize:   raw.CompressedSize,
		}
		a.members[strings.ToLower(m.Name)] = m
	}
	return a, nil
}

// Has reports whether the archive holds name.
func (a *MainArchive) Has(name string) bool {
	_, ok := a.members[strings.ToLower(name)]
	return ok
}

// Member returns the entry called name.
func (a *MainArchive) Member(name string) (Member, bool) {
	m, ok := a.members[strings.ToLower(name)]
	return m, ok
}

// Members returns the entries sorted by offset.
func (a *MainArchive) Members() []Member {
	list := make([]Member, 0, len(a.members))
	for _, m := range a.members {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Offset < list[j].Offset })
	return list
}

func memberName(raw rawMember) string {
	base := string(bytes.TrimRight(raw.BaseName[:], "\x00"))
	ext := string(bytes.TrimRight(raw.Extension[:], "\x00"))
	if ext == "" {
		return base
	}
	return base + "." + ext
}
