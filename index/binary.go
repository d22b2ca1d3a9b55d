package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/poiesic/intentdb/core"
)

const (
	// indexMagic identifies flat index files (ASCII: "IDB1").
	indexMagic = 0x49444231
	// indexVersion is the current file format version.
	indexVersion = 1
)

var (
	// ErrInvalidMagic indicates the file is not a flat index artifact.
	ErrInvalidMagic = errors.New("invalid index magic number")

	// ErrUnsupportedVersion indicates a format version this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported index format version")

	// ErrChecksumMismatch indicates the stored CRC32 does not match the data.
	ErrChecksumMismatch = errors.New("index checksum mismatch")
)

// fileHeader is the fixed-size header at the start of every index file.
type fileHeader struct {
	Magic     uint32
	Version   uint32
	Distance  uint32
	Dimension uint32
	Count     uint64
}

// checksumWriter wraps an io.Writer and keeps a running CRC32 (IEEE).
// CRC32 detects accidental corruption only; it is not tamper-proof.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w, hash: crc32.NewIEEE()}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

type checksumReader struct {
	r    io.Reader
	hash hash.Hash32
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{r: r, hash: crc32.NewIEEE()}
}

func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}

func (cr *checksumReader) Sum() uint32 {
	return cr.hash.Sum32()
}

// WriteTo writes the index to w in the versioned binary format:
// header, little-endian float32 vector data, CRC32 trailer.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	cw := newChecksumWriter(w)

	header := fileHeader{
		Magic:     indexMagic,
		Version:   indexVersion,
		Distance:  uint32(f.distType),
		Dimension: uint32(f.dimension),
		Count:     uint64(f.count),
	}
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return 0, err
	}

	if err := binary.Write(cw, binary.LittleEndian, f.data); err != nil {
		return 0, err
	}

	// The trailer is written to the raw writer so it is not part of its
	// own checksum.
	if err := binary.Write(w, binary.LittleEndian, cw.Sum()); err != nil {
		return 0, err
	}

	n := int64(binary.Size(header)) + int64(len(f.data)*4) + 4
	return n, nil
}

// readChunkFloats caps how many float32 values a single read requests,
// so a corrupted header count cannot force a giant allocation up front.
const readChunkFloats = 1 << 16

// ReadFrom reads an index from r and returns it as a new Flat.
// The header is validated before any vector data is read; a checksum
// mismatch or short read fails the whole load.
func ReadFrom(r io.Reader) (*Flat, error) {
	cr := newChecksumReader(r)

	var header fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("reading index header: %w", err)
	}

	if header.Magic != indexMagic {
		return nil, ErrInvalidMagic
	}
	if header.Version != indexVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	if header.Dimension == 0 {
		return nil, fmt.Errorf("index header has zero dimension")
	}

	// The count is file-supplied and untrusted until the checksum is
	// verified, so it must never size an allocation unchecked.
	if header.Count > uint64(math.MaxInt/4)/uint64(header.Dimension) {
		return nil, fmt.Errorf("%w: header declares %d vectors of dimension %d",
			core.ErrCorruptedBundle, header.Count, header.Dimension)
	}

	f, err := New(int(header.Dimension), WithDistance(DistanceType(header.Distance)))
	if err != nil {
		return nil, err
	}

	f.count = int(header.Count)
	total := f.count * f.dimension

	// Read in bounded chunks: the slice only grows as far as the input
	// actually delivers, so a bogus count fails on the short read instead
	// of allocating for the declared size.
	chunk := make([]float32, min(total, readChunkFloats))
	f.data = make([]float32, 0, len(chunk))
	for remaining := total; remaining > 0; {
		n := min(remaining, readChunkFloats)
		if err := binary.Read(cr, binary.LittleEndian, chunk[:n]); err != nil {
			return nil, fmt.Errorf("%w: reading index vectors: %v", core.ErrCorruptedBundle, err)
		}
		f.data = append(f.data, chunk[:n]...)
		remaining -= n
	}

	want := cr.Sum()
	var stored uint32
	if err := binary.Read(r, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("reading index checksum: %w", err)
	}
	if stored != want {
		return nil, ErrChecksumMismatch
	}

	return f, nil
}

// SaveToFile writes the index to filename. The write goes to a temp file
// in the same directory which is renamed over the target on success, so
// a crash mid-write never leaves a truncated artifact in place.
func (f *Flat) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := f.WriteTo(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filename)
}

// LoadFromFile reads an index from filename.
func LoadFromFile(filename string) (*Flat, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadFrom(bufio.NewReader(file))
}
