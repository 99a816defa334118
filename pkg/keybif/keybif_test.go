package keybif

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/internal/binio"
)

// writeFixture builds a minimal one-BIF KEY archive on disk containing a
// single "nwscript.nss" resource, and returns the KEY path and BIF dir.
func writeFixture(t *testing.T, payload []byte) (keyPath, bifDir string) {
	t.Helper()
	dir := t.TempDir()

	const bifName = "data/test.bif"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	var bifBuf bytes.Buffer
	bw := binio.NewWriter(&bifBuf)
	bw.WriteRaw([]byte("BIFF"))
	bw.WriteRaw([]byte("V1  "))
	bw.WriteUint32(1) // var res count
	bw.WriteUint32(0) // fixed res count
	bw.WriteUint32(20)
	require.NoError(t, bw.Error())
	bw.WriteUint32(0)                    // id
	bw.WriteUint32(36)                   // offset of payload (20 header + 16 table)
	bw.WriteUint32(uint32(len(payload))) // size
	bw.WriteUint32(2009)                 // restype nss
	require.NoError(t, bw.Error())
	bw.WriteRaw(payload)
	require.NoError(t, bw.Error())
	require.NoError(t, os.WriteFile(filepath.Join(dir, bifName), bifBuf.Bytes(), 0o644))

	var keyBuf bytes.Buffer
	kw := binio.NewWriter(&keyBuf)
	kw.WriteRaw([]byte("KEY "))
	kw.WriteRaw([]byte("V1  "))
	kw.WriteUint32(1) // bif count
	kw.WriteUint32(1) // key count
	kw.WriteUint32(64) // offset file table
	kw.WriteUint32(64 + 12 + uint32(len(bifName))) // offset key table
	kw.WriteUint32(2026)
	kw.WriteUint32(212)
	kw.WriteRaw(make([]byte, 32))
	require.NoError(t, kw.Error())
	// file table entry: size, nameoffset, namesize, drives
	nameOff := uint32(64 + 12)
	kw.WriteUint32(uint32(bifBuf.Len()))
	kw.WriteUint32(nameOff)
	kw.WriteUint16(uint16(len(bifName)))
	kw.WriteUint16(0)
	kw.WriteRaw([]byte(bifName))
	require.NoError(t, kw.Error())
	// key table entry: resref[16], restype(u16), resid(u32)
	kw.WriteRaw(binio.FixedBytes([]byte("nwscript"), 16))
	kw.WriteUint16(2009)
	kw.WriteUint32(0) // bif 0, res 0
	require.NoError(t, kw.Error())

	keyP := filepath.Join(dir, "test.key")
	require.NoError(t, os.WriteFile(keyP, keyBuf.Bytes(), 0o644))
	return keyP, dir
}

func TestOpenAndReadFile(t *testing.T) {
	payload := []byte("void main() {}\n")
	keyPath, bifDir := writeFixture(t, payload)

	r, err := Open(keyPath, bifDir)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("nwscript.nss")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestReadFileMissingIsNotFound(t *testing.T) {
	payload := []byte("void main() {}\n")
	keyPath, bifDir := writeFixture(t, payload)

	r, err := Open(keyPath, bifDir)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadFile("missing.nss")
	assert.Error(t, err)
}

func TestCompositeIDSplitsIntoBifAndResIndex(t *testing.T) {
	e := FileEntry{VarResID: (3 << 20) | 7}
	assert.Equal(t, uint32(3), e.BifIndex())
	assert.Equal(t, uint32(7), e.ResIndex())
}

func TestCloseIsIdempotent(t *testing.T) {
	payload := []byte("x")
	keyPath, bifDir := writeFixture(t, payload)
	r, err := Open(keyPath, bifDir)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
