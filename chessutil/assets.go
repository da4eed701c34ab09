package chessutil

import (
	"bytes"
	_ "embed"
)

//go:embed assets/eco.tsv
var defaultECOFixture []byte

// DefaultECODatabase loads the bundled ECO fixture shipped with this
// module. Deployments that want the full ~500-entry taxonomy can instead
// call LoadECODatabase against their own TSV file.
func DefaultECODatabase() (*ECODatabase, error) {
	return LoadECODatabase(bytes.NewReader(defaultECOFixture))
}
