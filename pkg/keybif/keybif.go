// Package keybif implements the split KEY/BIF archive codec: a KEY file
// indexes one or more BIF payload files, together forming a large read-only
// resource pool (the game's base data, expansions, and patches).
package keybif

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

const (
	keyMagic = "KEY "
	bifMagic = "BIFF"
	wireVer  = "V1  "
)

// FileEntry describes one resource indexed by a KEY file: its composite
// variable id (which names the BIF and the resource within it) and type.
type FileEntry struct {
	Name     string
	ResType  int
	VarResID uint32
}

// BifIndex splits a composite variable resource id into its BIF index and
// resource index, per the KEY/BIF convention.
func (f FileEntry) BifIndex() uint32 { return f.VarResID >> 20 }
func (f FileEntry) ResIndex() uint32 { return f.VarResID & 0xFFFFF }

type bifResource struct {
	offset  uint32
	size    uint32
	restype uint16
}

// Reader opens a KEY file and every BIF file it references, presenting a
// single case-insensitive resref.ext -> bytes view over the whole pool.
type Reader struct {
	filemap map[string]FileEntry

	bifHandles []*os.File
	bifNames   []string
	// resourcesByBif[bifIdx][resIdx] gives offset/size/restype for a
	// resource slot inside that BIF's variable-resource table.
	resourcesByBif [][]bifResource
}

// Open parses keyPath and every BIF file it names, resolved relative to
// bifDir (commonly the KEY file's own directory).
func Open(keyPath, bifDir string) (*Reader, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("keybif: %w: %v", nwerr.ErrFormat, err)
	}

	br := binio.NewReader(bytes.NewReader(raw))
	var magicRaw, verRaw [4]byte
	br.ReadRaw(magicRaw[:])
	br.ReadRaw(verRaw[:])
	bifCount := br.ReadUint32()
	keyCount := br.ReadUint32()
	offsetFileTable := br.ReadUint32()
	offsetKeyTable := br.ReadUint32()
	br.ReadUint32() // build year
	br.ReadUint32() // build day
	br.ReadRaw(make([]byte, 32)) // reserved
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("keybif: %w: %v", nwerr.ErrFormat, err)
	}
	if string(magicRaw[:]) != keyMagic {
		return nil, fmt.Errorf("keybif: %w: %q", nwerr.ErrInvalidMagic, magicRaw)
	}
	if string(verRaw[:]) != wireVer {
		return nil, fmt.Errorf("keybif: %w: %q", nwerr.ErrUnsupportedVersion, verRaw)
	}

	type fileTableEntry struct {
		size     uint32
		nameOff  uint32
		nameSize uint16
	}
	ft := make([]fileTableEntry, bifCount)
	fbr := binio.NewReader(bytes.NewReader(raw[offsetFileTable:]))
	for i := range ft {
		size := fbr.ReadUint32()
		nameOff := fbr.ReadUint32()
		nameSize := fbr.ReadUint16()
		fbr.ReadUint16() // drives
		if err := fbr.Error(); err != nil {
			return nil, fmt.Errorf("keybif: %w: file table entry %d: %v", nwerr.ErrFormat, i, err)
		}
		ft[i] = fileTableEntry{size: size, nameOff: nameOff, nameSize: nameSize}
	}

	bifFileNames := make([]string, bifCount)
	for i, e := range ft {
		nameBuf := raw[e.nameOff : e.nameOff+uint32(e.nameSize)]
		name := string(bytes.TrimRight(nameBuf, "\x00"))
		bifFileNames[i] = strings.ReplaceAll(name, `\`, "/")
	}

	kbr := binio.NewReader(bytes.NewReader(raw[offsetKeyTable:]))
	type keyTableEntry struct {
		resref  string
		restype uint16
		resID   uint32
	}
	kts := make([]keyTableEntry, keyCount)
	for i := range kts {
		resrefRaw := kbr.ReadN(16)
		restype := kbr.ReadUint16()
		resID := kbr.ReadUint32()
		if err := kbr.Error(); err != nil {
			return nil, fmt.Errorf("keybif: %w: key table entry %d: %v", nwerr.ErrFormat, i, err)
		}
		kts[i] = keyTableEntry{
			resref:  string(bytes.TrimRight(resrefRaw, "\x00")),
			restype: restype,
			resID:   resID,
		}
	}

	r := &Reader{filemap: map[string]FileEntry{}}
	r.resourcesByBif = make([][]bifResource, bifCount)
	for i, bifName := range bifFileNames {
		path := filepath.Join(bifDir, bifName)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("keybif: %w: opening bif %q: %v", nwerr.ErrFormat, bifName, err)
		}
		resources, err := readBifHeader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		r.bifHandles = append(r.bifHandles, f)
		r.bifNames = append(r.bifNames, bifName)
		r.resourcesByBif[i] = resources
	}

	for _, k := range kts {
		ext, err := nwtypes.RestypeToExtension(int(k.restype))
		if err != nil {
			continue
		}
		name := nwtypes.CanonicalResref(k.resref + "." + ext)
		r.filemap[name] = FileEntry{Name: name, ResType: int(k.restype), VarResID: k.resID}
	}

	return r, nil
}

func readBifHeader(f *os.File) ([]bifResource, error) {
	var hdr [20]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("keybif: %w: %v", nwerr.ErrFormat, err)
	}
	br := binio.NewReader(bytes.NewReader(hdr[:]))
	var magicRaw, verRaw [4]byte
	br.ReadRaw(magicRaw[:])
	br.ReadRaw(verRaw[:])
	varResCount := br.ReadUint32()
	fixedResCount := br.ReadUint32()
	varTableOffset := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("keybif: %w: %v", nwerr.ErrFormat, err)
	}
	if string(magicRaw[:]) != bifMagic {
		return nil, fmt.Errorf("keybif: %w: %q", nwerr.ErrInvalidMagic, magicRaw)
	}
	if string(verRaw[:]) != wireVer {
		return nil, fmt.Errorf("keybif: %w: %q", nwerr.ErrUnsupportedVersion, verRaw)
	}
	if fixedResCount != 0 {
		return nil, fmt.Errorf("keybif: %w: fixed resources are not supported", nwerr.ErrFormat)
	}

	tableBuf := make([]byte, varResCount*16)
	if varResCount > 0 {
		if _, err := f.ReadAt(tableBuf, int64(varTableOffset)); err != nil {
			return nil, fmt.Errorf("keybif: %w: variable resource table: %v", nwerr.ErrFormat, err)
		}
	}
	vr := binio.NewReader(bytes.NewReader(tableBuf))
	out := make([]bifResource, varResCount)
	for i := range out {
		vr.ReadUint32() // id (bif-local, duplicates the composite key's index)
		offset := vr.ReadUint32()
		size := vr.ReadUint32()
		restype := vr.ReadUint32()
		if err := vr.Error(); err != nil {
			return nil, fmt.Errorf("keybif: %w: variable resource entry %d: %v", nwerr.ErrFormat, i, err)
		}
		out[i] = bifResource{offset: offset, size: size, restype: uint16(restype)}
	}
	return out, nil
}

// FileMap returns the full resref.ext -> FileEntry index.
func (r *Reader) FileMap() map[string]FileEntry {
	out := make(map[string]FileEntry, len(r.filemap))
	for k, v := range r.filemap {
		out[k] = v
	}
	return out
}

// ReadFile locates and returns the payload bytes for a canonical resref.ext
// name.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	e, ok := r.filemap[nwtypes.CanonicalResref(name)]
	if !ok {
		return nil, fmt.Errorf("keybif: %w: %q", nwerr.ErrNotFound, name)
	}
	bifIdx := e.BifIndex()
	resIdx := e.ResIndex()
	if int(bifIdx) >= len(r.resourcesByBif) {
		return nil, fmt.Errorf("keybif: %w: bif index %d out of range for %q", nwerr.ErrFormat, bifIdx, name)
	}
	resources := r.resourcesByBif[bifIdx]
	if int(resIdx) >= len(resources) {
		return nil, fmt.Errorf("keybif: %w: resource index %d out of range for %q", nwerr.ErrFormat, resIdx, name)
	}
	res := resources[resIdx]
	buf := make([]byte, res.size)
	if _, err := r.bifHandles[bifIdx].ReadAt(buf, int64(res.offset)); err != nil {
		return nil, fmt.Errorf("keybif: %w: %v", nwerr.ErrFormat, err)
	}
	return buf, nil
}

// Close releases every open BIF handle. Idempotent.
func (r *Reader) Close() error {
	var firstErr error
	for i, h := range r.bifHandles {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.bifHandles[i] = nil
	}
	return firstErr
}
