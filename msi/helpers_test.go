package msi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msitools/msiparser/internal/cfbtest"
)

func newPackage() *cfbtest.Database {
	return cfbtest.NewDatabase(EncodeName)
}

func openPackage(t *testing.T, d *cfbtest.Database) *Package {
	t.Helper()
	p, err := New(d.Bytes())
	require.NoError(t, err)
	return p
}

// featurePackage is a package with a single two row Feature table.
func featurePackage() *cfbtest.Database {
	return newPackage().Table("Feature",
		[]cfbtest.Column{{Name: "Feature", Type: cfbtest.TypeKeyString}, {Name: "Title", Type: cfbtest.TypeString}},
		[]interface{}{"Complete", "Everything"},
		[]interface{}{"Docs", "Documentation"},
	)
}
