package msi

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/cfb"
)

// StreamKind classifies the streams of a package.
type StreamKind int

const (
	// KindStream is a user payload such as an embedded cabinet or a
	// Binary table entry.
	KindStream StreamKind = iota
	// KindTable holds table data, including the string pool.
	KindTable
	// KindSystem is a property set stream such as SummaryInformation.
	KindSystem
	// KindSignature is one of the reserved signature streams.
	KindSignature
)

func (k StreamKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindSystem:
		return "system"
	case KindSignature:
		return "signature"
	}
	return "stream"
}

// MarshalText renders the kind by name in JSON output.
func (k StreamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StreamInfo describes one stream of a package.
type StreamInfo struct {
	// Path is the stored '/' separated path.
	Path string `json:"path"`
	// Name is the path with every element decoded.
	Name string     `json:"name"`
	Size uint64     `json:"size"`
	Kind StreamKind `json:"kind"`
}

func classify(path string) StreamInfo {
	parts := strings.Split(path, "/")
	kind := KindStream
	for i, part := range parts {
		name, isTable := DecodeName(part)
		parts[i] = name
		if i > 0 {
			continue
		}
		switch {
		case lo.Contains(signatureStreams, part):
			kind = KindSignature
		case isTable:
			kind = KindTable
		case part != "" && part[0] < 0x20:
			kind = KindSystem
		}
	}
	return StreamInfo{Path: path, Name: strings.Join(parts, "/"), Kind: kind}
}

// Streams describes every stream of the package in directory order.
func (p *Package) Streams() []StreamInfo {
	return lo.Map(p.doc.Streams(), func(e *cfb.DirEntry, _ int) StreamInfo {
		info := classify(e.Path)
		info.Size = e.Size
		return info
	})
}

// StreamNames returns the decoded names of the user payload streams.
func (p *Package) StreamNames() []string {
	return lo.FilterMap(p.Streams(), func(s StreamInfo, _ int) (string, bool) {
		return s.Name, s.Kind == KindStream
	})
}

// lookupStream resolves a decoded stream name, a stored path or a table
// name to a directory entry.
func (p *Package) lookupStream(name string) (*cfb.DirEntry, bool) {
	candidates := []string{EncodeName(name, false), name, EncodeName(name, true)}
	if strings.Contains(name, "/") {
		parts := strings.Split(name, "/")
		candidates = append(candidates, strings.Join(lo.Map(parts, func(part string, _ int) string {
			return EncodeName(part, false)
		}), "/"))
	}
	for _, c := range candidates {
		if e, ok := p.doc.Entry(c); ok && e.IsStream() {
			return e, true
		}
	}
	return nil, false
}

// ReadStream returns the content of a stream. name may be a decoded name
// as listed by StreamNames, a stored path, or a table name.
func (p *Package) ReadStream(name string) ([]byte, error) {
	e, ok := p.lookupStream(name)
	if !ok {
		return nil, errors.Wrapf(msiparser.ErrStreamNotFound, "msi: stream '%s'", name)
	}
	return p.doc.ReadEntry(e)
}
