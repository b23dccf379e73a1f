package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/cfbtest"
	"github.com/msitools/msiparser/msi"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "Binary.Logo"), outputPath("out", "Binary.Logo"))
	assert.Equal(t, filepath.Join("out", "Storage", "Inner"), outputPath("out", "Storage/Inner"))
	assert.Equal(t, filepath.Join("out", "_..", "x"), outputPath("out", "../x"))
	assert.Equal(t, filepath.Join("out", "DigitalSignature"), outputPath("out", "\x05DigitalSignature"))
}

func TestExtractIntoDirectory(t *testing.T) {
	logo := []byte("GIF89a")
	pkg := cfbtest.NewDatabase(msi.EncodeName).Table("Binary",
		[]cfbtest.Column{{Name: "Name", Type: cfbtest.TypeKeyString}, {Name: "Data", Type: cfbtest.TypeBinary}},
		[]interface{}{"Logo", true},
	).Stream(msi.EncodeName("Binary.Logo", false), logo)

	c, err := openContainer(writeTemp(t, "logo.msi", pkg.Bytes()))
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.pkg)

	out := t.TempDir()
	path, err := c.extract(out, "Binary.Logo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Binary.Logo"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, logo, got)

	_, err = c.extract(out, "Binary.Missing")
	assert.ErrorIs(t, err, msiparser.ErrStreamNotFound)
}

func TestExtractSignaturesFromPlainFile(t *testing.T) {
	sig := []byte("pkcs7")
	data, _ := cfbtest.New().
		AddStream(msi.DigitalSignatureStream, sig).
		AddStream("Hello", []byte("hi")).
		Build()

	c, err := openContainer(writeTemp(t, "signed.cfb", data))
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.pkg)

	out := t.TempDir()
	signed, err := c.extractSignatures(out)
	require.NoError(t, err)
	assert.True(t, signed)
	got, err := os.ReadFile(filepath.Join(out, "DigitalSignature"))
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	data, _ = cfbtest.New().AddStream("Hello", []byte("hi")).Build()
	c2, err := openContainer(writeTemp(t, "plain.cfb", data))
	require.NoError(t, err)
	defer c2.Close()

	out = t.TempDir()
	signed, err = c2.extractSignatures(out)
	require.NoError(t, err)
	assert.False(t, signed)
	files, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, files)
}
