// Package res defines the resource container capability interface shared
// by every backing store ResMan can stack: in-memory dictionaries,
// directories, and (via the resman package) KEY/BIF archives.
package res

import (
	"fmt"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Container is a read-only (optionally read-write) mapping from canonical
// resref.ext to bytes. Implementations are modeled as a capability
// interface rather than a class hierarchy: Writable reports whether Set/Del
// are safe to call.
type Container interface {
	// Get returns the bytes stored for a canonical resref.ext name.
	Get(name string) ([]byte, bool, error)
	// Has reports whether name is present, without reading its bytes.
	Has(name string) bool
	// Names returns every name this container currently holds.
	Names() []string
	// Len returns the number of entries.
	Len() int
	// Writable reports whether Set/Delete are supported.
	Writable() bool
}

// WritableContainer extends Container with mutation. Callers should type-
// assert against this interface only after checking Writable().
type WritableContainer interface {
	Container
	Set(name string, data []byte) error
	Delete(name string) error
}

func canonicalOrError(name string) (string, error) {
	if !nwtypes.IsValidResref(name) {
		return "", fmt.Errorf("res: %w: %q", nwerr.ErrInvalidResref, name)
	}
	return nwtypes.CanonicalResref(name), nil
}
