package vm

import (
	"bytes"
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/nwscript/asm"
	"github.com/nwnkit/nwngo/pkg/nwscript/ndb"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Script bundles a decoded program with its (optional) debug symbols,
// ready to be handed to New along with a command spec and host.
type Script struct {
	Program *asm.Program
	Debug   *ndb.Ndb
}

// Load decodes an NCS stream and, if ndbData is non-nil, its matching NDB
// sidecar.
func Load(ncs []byte, ndbData []byte, cp nwtypes.CodePage) (*Script, error) {
	prog, err := asm.Decode(bytes.NewReader(ncs), cp)
	if err != nil {
		return nil, fmt.Errorf("vm: %w", err)
	}
	var dbg *ndb.Ndb
	if ndbData != nil {
		dbg, err = ndb.Read(bytes.NewReader(ndbData))
		if err != nil {
			return nil, fmt.Errorf("vm: %w", err)
		}
	}
	return &Script{Program: prog, Debug: dbg}, nil
}

// FromCompiled loads basename+".ncs" and, if present, basename+".ndb".
func FromCompiled(basename string, cp nwtypes.CodePage) (*Script, error) {
	ncs, err := os.ReadFile(basename + ".ncs")
	if err != nil {
		return nil, fmt.Errorf("vm: %w", err)
	}
	var ndbData []byte
	if b, err := os.ReadFile(basename + ".ndb"); err == nil {
		ndbData = b
	}
	return Load(ncs, ndbData, cp)
}
