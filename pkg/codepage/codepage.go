// Package codepage implements encode/decode between the engine's legacy
// 8-bit codepages and Go strings, backed by golang.org/x/text/encoding's
// charmap tables (the same family of code the reference engine's Windows
// build ships).
package codepage

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func tableFor(cp nwtypes.CodePage) (*charmap.Charmap, error) {
	switch cp {
	case nwtypes.CP1250:
		return charmap.Windows1250, nil
	case nwtypes.CP1251:
		return charmap.Windows1251, nil
	case nwtypes.CP1252:
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("codepage: %w: %v", nwerr.ErrUnsupportedAlgorithm, cp)
	}
}

// Encode converts text into bytes under the given codepage. Characters with
// no representation in the target codepage are an encoding error; they are
// never silently replaced.
func Encode(text string, cp nwtypes.CodePage) ([]byte, error) {
	table, err := tableFor(cp)
	if err != nil {
		return nil, err
	}
	enc := table.NewEncoder()
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("codepage: encode under %v: %w: %v", cp, nwerr.ErrEncoding, err)
	}
	return out, nil
}

// Decode converts bytes into text under the given codepage.
func Decode(b []byte, cp nwtypes.CodePage) (string, error) {
	table, err := tableFor(cp)
	if err != nil {
		return "", err
	}
	dec := table.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("codepage: decode under %v: %w: %v", cp, nwerr.ErrEncoding, err)
	}
	return string(out), nil
}

// Compile-time check that *charmap.Charmap satisfies encoding.Encoding.
var _ encoding.Encoding = (*charmap.Charmap)(nil)
