package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/cfb"
	"github.com/msitools/msiparser/internal/log"
	"github.com/msitools/msiparser/msi"
)

// container is an installer package, or a plain compound file when the
// input has no string pool.
type container struct {
	doc *cfb.Document
	pkg *msi.Package
}

func openContainer(filename string) (*container, error) {
	p, err := msi.Open(filename)
	if err == nil {
		return &container{doc: p.Document(), pkg: p}, nil
	}
	if !errors.Is(err, msiparser.ErrNotInFormat) {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	log.Debug("not an installer package, reading as compound file", map[string]interface{}{
		log.KeyPath:  filename,
		log.KeyError: err,
	})
	d, err := cfb.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	return &container{doc: d}, nil
}

func openPackage(filename string) (*msi.Package, error) {
	p, err := msi.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	return p, nil
}

func (c *container) Close() error {
	return c.doc.Close()
}

// streams lists the user payload streams, or every stream when all is set.
func (c *container) streams(all bool) []msi.StreamInfo {
	if c.pkg != nil {
		return lo.Filter(c.pkg.Streams(), func(s msi.StreamInfo, _ int) bool {
			return all || s.Kind == msi.KindStream
		})
	}
	return lo.Map(c.doc.Streams(), func(e *cfb.DirEntry, _ int) msi.StreamInfo {
		return msi.StreamInfo{Path: e.Path, Name: e.Path, Size: e.Size, Kind: msi.KindStream}
	})
}

func (c *container) read(s msi.StreamInfo) ([]byte, error) {
	return c.doc.ReadStream(s.Path)
}

// readNamed resolves a stream by decoded name, stored path or table name.
func (c *container) readNamed(name string) ([]byte, error) {
	if c.pkg != nil {
		return c.pkg.ReadStream(name)
	}
	return c.doc.ReadStream(name)
}

// extract writes the named stream to dir/<stream name> and returns the
// path written.
func (c *container) extract(dir, name string) (string, error) {
	data, err := c.readNamed(name)
	if err != nil {
		return "", err
	}
	path := outputPath(dir, name)
	if err = writeFile(path, data); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}

// extractSignatures writes every readable signature stream into dir and
// reports whether the file is signed.
func (c *container) extractSignatures(dir string) (bool, error) {
	sigs, report := msi.ReadSignatures(c.doc)
	for _, res := range report.Failed() {
		log.Warning("skipping unreadable signature", map[string]interface{}{
			log.KeyStream: res.Item,
			log.KeyError:  res.Err,
		})
	}
	for _, sig := range sigs {
		if err := writeFile(outputPath(dir, sig.Name), sig.Data); err != nil {
			return true, errors.Wrapf(err, "writing %s", sig.Name)
		}
	}
	return msi.HasSignature(c.doc), nil
}

// outputPath maps a '/' separated stream name below dir, making every
// element a safe file name.
func outputPath(dir, name string) string {
	parts := lo.Map(strings.Split(name, "/"), func(part string, _ int) string { return cfb.FileName(part) })
	return filepath.Join(append([]string{dir}, parts...)...)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
