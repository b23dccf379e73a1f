package cfb

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/log"
)

// EntryType is the object type of a directory entry.
type EntryType byte

const (
	TypeUnknown EntryType = 0x00
	TypeStorage EntryType = 0x01
	TypeStream  EntryType = 0x02
	TypeRoot    EntryType = 0x05
)

func (t EntryType) String() string {
	switch t {
	case TypeStorage:
		return "storage"
	case TypeStream:
		return "stream"
	case TypeRoot:
		return "root"
	}
	return "unused"
}

// on-disk layout of a 128 byte directory entry
type directory struct {
	Name                   [32]uint16 // 32 utf16 characters
	NameByteLen            uint16     // length of Name in bytes, including the terminator
	ObjectType             EntryType
	ColorFlag              byte   // 0=red, 1=black
	LeftSiblingID          uint32 // stream ids
	RightSiblingID         uint32
	ChildID                uint32
	ClassID                [16]byte // GUID
	StateBits              uint32
	CreationTime           uint64
	ModifiedTime           uint64
	StartingSectorLocation uint32
	StreamSize             uint64
}

// DirEntry is a decoded directory entry. Entries live in the Document's
// arena and refer to each other by index.
type DirEntry struct {
	ID    uint32
	Name  string
	Type  EntryType
	CLSID [16]byte

	Left, Right, Child uint32

	StartSector uint32
	Size        uint64

	// Parent is the index of the containing storage, noStream for the root.
	Parent uint32
	// Path is the '/' joined list of names below the root entry.
	Path string

	children []uint32
}

// IsStream reports whether the entry holds stream data.
func (e *DirEntry) IsStream() bool {
	return e.Type == TypeStream
}

func (d *Document) loadDirectory() error {
	le := binary.LittleEndian
	var raw []byte
	c := d.chainAll(d.header.FirstDirectorySectorLocation)
	for c.Next() {
		sector := c.Sector()
		if len(sector) < d.sectorSize {
			return invalid("directory sector %d is truncated", c.ID())
		}
		raw = append(raw, sector...)
	}
	if err := c.Err(); err != nil {
		return errors.Wrap(err, "cfb: reading directory chain")
	}

	roots := 0
	d.dir = make([]*DirEntry, 0, len(raw)/dirEntrySize)
	for offs := 0; offs+dirEntrySize <= len(raw); offs += dirEntrySize {
		id := uint32(len(d.dir))
		de := &directory{}
		if err := binary.Read(bytes.NewReader(raw[offs:offs+dirEntrySize]), le, de); err != nil {
			return errors.Wrap(err, "cfb: reading directory entry")
		}
		if d.header.MajorVersion == 3 {
			// mask out upper 32bits
			de.StreamSize &= 0xFFFFFFFF
		}

		e := &DirEntry{
			ID:          id,
			Type:        de.ObjectType,
			CLSID:       de.ClassID,
			Left:        de.LeftSiblingID,
			Right:       de.RightSiblingID,
			Child:       de.ChildID,
			StartSector: de.StartingSectorLocation,
			Size:        de.StreamSize,
			Parent:      noStream,
		}
		d.dir = append(d.dir, e)

		switch de.ObjectType {
		case TypeUnknown:
			continue
		case TypeRoot:
			roots++
			d.root = id
		case TypeStorage, TypeStream:
		default:
			return errors.Wrapf(msiparser.ErrMalformedDirectory, "cfb: entry %d has invalid type 0x%02x", id, byte(de.ObjectType))
		}

		name, err := decodeName(de)
		if err != nil {
			return errors.Wrapf(err, "cfb: entry %d", id)
		}
		e.Name = name
	}

	switch {
	case roots == 0:
		return msiparser.ErrMissingRoot
	case roots > 1:
		return errors.Wrapf(msiparser.ErrMalformedDirectory, "cfb: %d root entries", roots)
	}

	for _, e := range d.dir {
		if e.Type == TypeUnknown {
			continue
		}
		for _, link := range []uint32{e.Left, e.Right, e.Child} {
			if link != noStream && link >= uint32(len(d.dir)) {
				return errors.Wrapf(msiparser.ErrMalformedDirectory, "cfb: entry %d links to missing entry %d", e.ID, link)
			}
		}
	}
	return nil
}

func decodeName(de *directory) (string, error) {
	n := int(de.NameByteLen)
	if n&1 == 1 || n > 64 {
		return "", errors.Wrapf(msiparser.ErrMalformedDirectory, "invalid name length %d", n)
	}
	if n < 4 {
		// at least one character and the terminator
		return "", errors.Wrap(msiparser.ErrMalformedDirectory, "empty name")
	}
	// trim off null terminator
	return string(utf16.Decode(de.Name[:n/2-1])), nil
}

// buildTree attaches every storage's children, sorted by an in-order walk
// of the sibling tree below its child pointer.
func (d *Document) buildTree() error {
	seen := make(map[uint32]struct{}, len(d.dir))
	seen[d.root] = struct{}{}

	storages := []uint32{d.root}
	for len(storages) > 0 {
		sid := storages[0]
		storages = storages[1:]
		parent := d.dir[sid]

		var stack []uint32
		cur := parent.Child
		for cur != noStream || len(stack) > 0 {
			for cur != noStream {
				if _, ok := seen[cur]; ok {
					return errors.Wrapf(msiparser.ErrMalformedDirectory, "cfb: entry %d is reachable twice", cur)
				}
				// unused and root entries never appear in a sibling tree
				if t := d.dir[cur].Type; t != TypeStorage && t != TypeStream {
					return errors.Wrapf(msiparser.ErrMalformedDirectory, "cfb: %s entry %d inside storage %d", t, cur, sid)
				}
				seen[cur] = struct{}{}
				stack = append(stack, cur)
				cur = d.dir[cur].Left
			}
			cur, stack = stack[len(stack)-1], stack[:len(stack)-1]

			e := d.dir[cur]
			if e.Type == TypeStorage {
				storages = append(storages, cur)
			}
			e.Parent = sid
			if parent.Path == "" {
				e.Path = e.Name
			} else {
				e.Path = parent.Path + "/" + e.Name
			}
			parent.children = append(parent.children, cur)
			cur = e.Right
		}
	}

	// pre-order listing, children in sibling order
	d.order = make([]uint32, 0, len(seen))
	d.paths = make(map[string]uint32, len(seen))
	stack := []uint32{d.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := d.dir[id]
		d.order = append(d.order, id)
		if id != d.root {
			if _, dup := d.paths[e.Path]; dup {
				log.Warning("duplicate directory path", map[string]interface{}{
					log.KeyStream: e.Path,
				})
			} else {
				d.paths[e.Path] = id
			}
		}
		for i := len(e.children) - 1; i >= 0; i-- {
			stack = append(stack, e.children[i])
		}
	}

	if orphans := len(d.dir) - len(seen) - d.countUnused(); orphans > 0 {
		log.Debug("directory has unreachable entries", map[string]interface{}{"count": orphans})
	}
	return nil
}

func (d *Document) countUnused() int {
	n := 0
	for _, e := range d.dir {
		if e.Type == TypeUnknown {
			n++
		}
	}
	return n
}

// splitPath breaks a '/' separated path into its names.
func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
