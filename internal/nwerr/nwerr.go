// Package nwerr defines the sentinel error kinds shared across codecs,
// ResMan and the VM, following the taxonomy in the design: a small set of
// wrapped sentinels callers can match with errors.Is, rather than per-package
// bespoke error types.
package nwerr

import "errors"

var (
	ErrInvalidMagic         = errors.New("invalid magic")
	ErrUnsupportedVersion   = errors.New("unsupported version")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrFormat               = errors.New("malformed format")
	ErrRange                = errors.New("value out of range")
	ErrInvalidResref        = errors.New("invalid resref")
	ErrEncoding             = errors.New("encoding error")
	ErrNotFound             = errors.New("not found")
	ErrReadOnly             = errors.New("read-only container")
	ErrVM                   = errors.New("vm error")
)
