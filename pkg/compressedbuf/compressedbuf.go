// Package compressedbuf implements the framed, magic-tagged compression
// envelope shared by NWSYNC blobs and other on-disk payloads: a small fixed
// header naming the algorithm and uncompressed size, followed by the
// (possibly compressed) payload.
package compressedbuf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Algorithm identifies the compression scheme used for a frame's payload.
type Algorithm uint32

const (
	None Algorithm = 0
	Zlib Algorithm = 1
	Zstd Algorithm = 2
)

const headerVersion uint32 = 3

func (a Algorithm) String() string {
	switch a {
	case None:
		return "NONE"
	case Zlib:
		return "ZLIB"
	case Zstd:
		return "ZSTD"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint32(a))
	}
}

// Write emits magic | version(3) | algorithm | uncompressed_size | payload.
func Write(w io.Writer, magic nwtypes.FileMagic, data []byte, alg Algorithm) error {
	compressed, err := compressPayload(data, alg)
	if err != nil {
		return err
	}

	bw := binio.NewWriter(w)
	bw.WriteRaw(magic[:])
	bw.WriteUint32(headerVersion)
	bw.WriteUint32(uint32(alg))
	bw.WriteUint32(uint32(len(data)))
	bw.WriteRaw(compressed)
	return bw.Error()
}

// Read parses a frame and returns the decompressed payload, verifying the
// header against expectedMagic.
func Read(r io.Reader, expectedMagic nwtypes.FileMagic) ([]byte, error) {
	br := binio.NewReader(r)

	var magic nwtypes.FileMagic
	br.ReadRaw(magic[:])
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("compressedbuf: %w", err)
	}
	if magic != expectedMagic {
		return nil, fmt.Errorf("compressedbuf: %w: got %q want %q", nwerr.ErrInvalidMagic, magic, expectedMagic)
	}

	version := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("compressedbuf: %w", err)
	}
	if version != headerVersion {
		return nil, fmt.Errorf("compressedbuf: %w: header version %d", nwerr.ErrUnsupportedVersion, version)
	}

	algRaw := br.ReadUint32()
	uncompressedSize := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("compressedbuf: %w", err)
	}

	alg := Algorithm(algRaw)
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compressedbuf: reading payload: %w", err)
	}

	switch alg {
	case None:
		return rest, nil
	case Zlib:
		zr, err := zlib.NewReader(bytes.NewReader(rest))
		if err != nil {
			return nil, fmt.Errorf("compressedbuf: zlib: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(uncompressedSize)))
		if err != nil {
			return nil, fmt.Errorf("compressedbuf: zlib: %w", err)
		}
		return out, nil
	case Zstd:
		zr, err := zstd.NewReader(bytes.NewReader(rest))
		if err != nil {
			return nil, fmt.Errorf("compressedbuf: zstd: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(uncompressedSize)))
		if err != nil {
			return nil, fmt.Errorf("compressedbuf: zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compressedbuf: %w: algorithm %d", nwerr.ErrUnsupportedAlgorithm, algRaw)
	}
}

func compressPayload(data []byte, alg Algorithm) ([]byte, error) {
	switch alg {
	case None:
		return data, nil
	case Zlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("compressedbuf: zlib: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compressedbuf: zlib: %w", err)
		}
		return buf.Bytes(), nil
	case Zstd:
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("compressedbuf: zstd: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("compressedbuf: zstd: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compressedbuf: zstd: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("compressedbuf: %w: algorithm %d", nwerr.ErrUnsupportedAlgorithm, alg)
	}
}

// Compress returns a whole in-memory frame for data.
func Compress(data []byte, magic nwtypes.FileMagic, alg Algorithm) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, magic, data, alg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress parses a whole in-memory frame and returns its payload.
func Decompress(buf []byte, magic nwtypes.FileMagic) ([]byte, error) {
	return Read(bytes.NewReader(buf), magic)
}
