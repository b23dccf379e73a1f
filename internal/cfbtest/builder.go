// Package cfbtest writes small compound files in memory for tests.
package cfbtest

import (
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"
)

const (
	FreeSect   uint32 = 0xFFFFFFFF
	EndOfChain uint32 = 0xFFFFFFFE
	FATSect    uint32 = 0xFFFFFFFD
	DIFSect    uint32 = 0xFFFFFFFC
	NoStream   uint32 = 0xFFFFFFFF

	MiniSectorSize   = 64
	MiniStreamCutoff = 4096
)

type node struct {
	name     string
	storage  bool
	data     []byte
	children []*node

	id    uint32
	start uint32
	path  string
}

// Builder collects storages and streams and lays them out as a compound
// file. Streams shorter than MiniStreamCutoff go to the mini stream.
type Builder struct {
	// Version is the major version, 3 (512 byte sectors) or 4 (4096 byte sectors).
	Version int
	// MinFATSectors pads the FAT to at least this many sectors. More than
	// 109 FAT sectors are listed through a DIFAT chain.
	MinFATSectors int

	root *node
}

// New returns a version 3 builder.
func New() *Builder {
	return &Builder{Version: 3, root: &node{name: "Root Entry", storage: true}}
}

// AddStream adds a stream at a '/' separated path, creating any missing
// storages on the way.
func (b *Builder) AddStream(path string, data []byte) *Builder {
	parts := strings.Split(path, "/")
	parent := b.storage(parts[:len(parts)-1])
	parent.children = append(parent.children, &node{name: parts[len(parts)-1], data: data})
	return b
}

// AddStorage adds an empty storage at a '/' separated path.
func (b *Builder) AddStorage(path string) *Builder {
	b.storage(strings.Split(path, "/"))
	return b
}

func (b *Builder) storage(parts []string) *node {
	cur := b.root
	for _, p := range parts {
		var next *node
		for _, c := range cur.children {
			if c.name == p && c.storage {
				next = c
				break
			}
		}
		if next == nil {
			next = &node{name: p, storage: true}
			cur.children = append(cur.children, next)
		}
		cur = next
	}
	return cur
}

// Layout records where Build placed things, so tests can corrupt them.
type Layout struct {
	SectorSize     int
	FATSectors     []uint32
	DirSectors     []uint32
	DIFATSectors   []uint32
	MiniFATSectors []uint32
	MiniStream     []uint32

	// Start is the first sector of each stream, a mini sector index when
	// Mini reports true.
	Start map[string]uint32
	Mini  map[string]bool
	// ID is the directory entry index of each storage and stream.
	ID map[string]uint32
}

// SectorOffset returns the file offset of a regular sector.
func (l *Layout) SectorOffset(sid uint32) int {
	return int(sid+1) * l.SectorSize
}

// EntryOffset returns the file offset of a directory entry.
func (l *Layout) EntryOffset(id uint32) int {
	per := uint32(l.SectorSize / 128)
	return l.SectorOffset(l.DirSectors[id/per]) + int(id%per)*128
}

// PatchFAT overwrites the FAT entry of sector sid.
func (l *Layout) PatchFAT(data []byte, sid, next uint32) {
	per := uint32(l.SectorSize / 4)
	offs := l.SectorOffset(l.FATSectors[sid/per]) + int(sid%per)*4
	binary.LittleEndian.PutUint32(data[offs:], next)
}

// PatchMiniFAT overwrites the mini FAT entry of mini sector sid.
func (l *Layout) PatchMiniFAT(data []byte, sid, next uint32) {
	per := uint32(l.SectorSize / 4)
	offs := l.SectorOffset(l.MiniFATSectors[sid/per]) + int(sid%per)*4
	binary.LittleEndian.PutUint32(data[offs:], next)
}

func less(a, b string) bool {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	if len(ua) != len(ub) {
		return len(ua) < len(ub)
	}
	return strings.ToUpper(a) < strings.ToUpper(b)
}

// Build lays out the compound file.
func (b *Builder) Build() ([]byte, *Layout) {
	shift := uint(9)
	if b.Version == 4 {
		shift = 12
	}
	secSize := 1 << shift
	per := secSize / 4
	le := binary.LittleEndian

	l := &Layout{
		SectorSize: secSize,
		Start:      make(map[string]uint32),
		Mini:       make(map[string]bool),
		ID:         make(map[string]uint32),
	}

	// number the directory entries breadth first
	var entries []*node
	queue := []*node{b.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		n.id = uint32(len(entries))
		entries = append(entries, n)
		sort.SliceStable(n.children, func(i, j int) bool { return less(n.children[i].name, n.children[j].name) })
		for _, c := range n.children {
			if n == b.root {
				c.path = c.name
			} else {
				c.path = n.path + "/" + c.name
			}
			queue = append(queue, c)
		}
	}

	// the mini stream and its allocation table
	var mini []byte
	var minifat []uint32
	var big []*node
	for _, n := range entries[1:] {
		l.ID[n.path] = n.id
		if n.storage || len(n.data) == 0 {
			n.start = EndOfChain
			continue
		}
		if len(n.data) >= MiniStreamCutoff {
			big = append(big, n)
			continue
		}
		n.start = uint32(len(mini) / MiniSectorSize)
		l.Start[n.path] = n.start
		l.Mini[n.path] = true
		count := (len(n.data) + MiniSectorSize - 1) / MiniSectorSize
		for i := 0; i < count; i++ {
			minifat = append(minifat, n.start+uint32(i)+1)
		}
		minifat[len(minifat)-1] = EndOfChain
		mini = append(mini, n.data...)
		if pad := len(mini) % MiniSectorSize; pad != 0 {
			mini = append(mini, make([]byte, MiniSectorSize-pad)...)
		}
	}

	sectors := func(n int) int { return (n + secSize - 1) / secSize }
	numDir := sectors(len(entries) * 128)
	numMiniFAT := sectors(len(minifat) * 4)
	numMini := sectors(len(mini))
	numBig := 0
	for _, n := range big {
		numBig += sectors(len(n.data))
	}
	numFAT := 1
	if b.MinFATSectors > numFAT {
		numFAT = b.MinFATSectors
	}
	numDIFAT := 0
	for {
		numDIFAT = 0
		if numFAT > 109 {
			numDIFAT = (numFAT - 109 + per - 2) / (per - 1)
		}
		total := numFAT + numDIFAT + numDir + numMiniFAT + numMini + numBig
		need := (total + per - 1) / per
		if need <= numFAT {
			break
		}
		numFAT = need
	}

	var fat []uint32
	alloc := func(count int) []uint32 {
		ids := make([]uint32, count)
		for i := range ids {
			ids[i] = uint32(len(fat))
			fat = append(fat, uint32(len(fat))+1)
		}
		if count > 0 {
			fat[len(fat)-1] = EndOfChain
		}
		return ids
	}
	l.FATSectors = alloc(numFAT)
	for _, s := range l.FATSectors {
		fat[s] = FATSect
	}
	l.DIFATSectors = alloc(numDIFAT)
	for _, s := range l.DIFATSectors {
		fat[s] = DIFSect
	}
	l.DirSectors = alloc(numDir)
	l.MiniFATSectors = alloc(numMiniFAT)
	l.MiniStream = alloc(numMini)
	for _, n := range big {
		ids := alloc(sectors(len(n.data)))
		n.start = ids[0]
		l.Start[n.path] = n.start
	}
	total := len(fat)
	for len(fat) < numFAT*per {
		fat = append(fat, FreeSect)
	}

	data := make([]byte, secSize+total*secSize)
	put := func(sid uint32, content []byte) {
		copy(data[l.SectorOffset(sid):], content)
	}

	// header
	le.PutUint64(data[0:], 0xe11ab1a1e011cfd0)
	le.PutUint16(data[24:], 0x3E)
	le.PutUint16(data[26:], uint16(b.Version))
	le.PutUint16(data[28:], 0xFFFE)
	le.PutUint16(data[30:], uint16(shift))
	le.PutUint16(data[32:], 6)
	if b.Version == 4 {
		le.PutUint32(data[40:], uint32(numDir))
	}
	le.PutUint32(data[44:], uint32(numFAT))
	le.PutUint32(data[48:], l.DirSectors[0])
	le.PutUint32(data[56:], MiniStreamCutoff)
	le.PutUint32(data[60:], first(l.MiniFATSectors))
	le.PutUint32(data[64:], uint32(numMiniFAT))
	le.PutUint32(data[68:], first(l.DIFATSectors))
	le.PutUint32(data[72:], uint32(numDIFAT))
	for i := 0; i < 109; i++ {
		v := FreeSect
		if i < numFAT {
			v = l.FATSectors[i]
		}
		le.PutUint32(data[76+i*4:], v)
	}

	// DIFAT: per-1 FAT locations, then the next DIFAT sector
	rest := l.FATSectors[min(numFAT, 109):]
	for i, s := range l.DIFATSectors {
		buf := make([]byte, secSize)
		for j := 0; j < per-1; j++ {
			v := FreeSect
			if k := i*(per-1) + j; k < len(rest) {
				v = rest[k]
			}
			le.PutUint32(buf[j*4:], v)
		}
		next := EndOfChain
		if i+1 < len(l.DIFATSectors) {
			next = l.DIFATSectors[i+1]
		}
		le.PutUint32(buf[(per-1)*4:], next)
		put(s, buf)
	}

	// FAT
	for i, s := range l.FATSectors {
		buf := make([]byte, secSize)
		for j := 0; j < per; j++ {
			le.PutUint32(buf[j*4:], fat[i*per+j])
		}
		put(s, buf)
	}

	// directory
	dir := make([]byte, numDir*secSize)
	for i := len(entries) * 128; i < len(dir); i += 128 {
		le.PutUint32(dir[i+68:], NoStream)
		le.PutUint32(dir[i+72:], NoStream)
		le.PutUint32(dir[i+76:], NoStream)
	}
	links := make(map[uint32][2]uint32)
	child := make(map[*node]uint32)
	for _, n := range entries {
		if n.storage {
			child[n] = balanced(n.children, links)
		}
	}
	for _, n := range entries {
		lr, ok := links[n.id]
		if !ok {
			lr = [2]uint32{NoStream, NoStream}
		}
		c, ok := child[n]
		if !ok {
			c = NoStream
		}
		writeEntry(dir[n.id*128:], n, n == b.root, lr, c, uint32(len(mini)))
	}
	if len(mini) > 0 {
		le.PutUint32(dir[116:], first(l.MiniStream))
	}
	for i, s := range l.DirSectors {
		put(s, dir[i*secSize:(i+1)*secSize])
	}

	// mini FAT
	mf := make([]byte, numMiniFAT*secSize)
	for i := range mf {
		mf[i] = 0xFF
	}
	for i, v := range minifat {
		le.PutUint32(mf[i*4:], v)
	}
	for i, s := range l.MiniFATSectors {
		put(s, mf[i*secSize:(i+1)*secSize])
	}

	// mini stream and large streams
	for i, s := range l.MiniStream {
		end := (i + 1) * secSize
		if end > len(mini) {
			end = len(mini)
		}
		put(s, mini[i*secSize:end])
	}
	for _, n := range big {
		sid := n.start
		for offs := 0; offs < len(n.data); offs += secSize {
			end := offs + secSize
			if end > len(n.data) {
				end = len(n.data)
			}
			put(sid, n.data[offs:end])
			sid = fat[sid]
		}
	}
	return data, l
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func first(ids []uint32) uint32 {
	if len(ids) == 0 {
		return EndOfChain
	}
	return ids[0]
}

// balanced returns the root of a balanced sibling tree over sorted
// children, filling in left and right links.
func balanced(children []*node, links map[uint32][2]uint32) uint32 {
	if len(children) == 0 {
		return NoStream
	}
	mid := len(children) / 2
	links[children[mid].id] = [2]uint32{
		balanced(children[:mid], links),
		balanced(children[mid+1:], links),
	}
	return children[mid].id
}

func writeEntry(buf []byte, n *node, root bool, lr [2]uint32, child uint32, miniSize uint32) {
	le := binary.LittleEndian
	name := utf16.Encode([]rune(n.name))
	if len(name) > 31 {
		panic("cfbtest: name too long: " + n.name)
	}
	for i, u := range name {
		le.PutUint16(buf[i*2:], u)
	}
	le.PutUint16(buf[64:], uint16(len(name)+1)*2)

	switch {
	case root:
		buf[66] = 5
	case n.storage:
		buf[66] = 1
	default:
		buf[66] = 2
	}
	buf[67] = 1 // black
	le.PutUint32(buf[68:], lr[0])
	le.PutUint32(buf[72:], lr[1])
	le.PutUint32(buf[76:], child)

	if root {
		le.PutUint32(buf[116:], EndOfChain)
		le.PutUint64(buf[120:], uint64(miniSize))
		return
	}
	le.PutUint32(buf[116:], n.start)
	le.PutUint64(buf[120:], uint64(len(n.data)))
}
