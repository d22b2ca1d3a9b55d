package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/poiesic/intentdb/core"
)

const (
	// recordsMagic identifies record artifacts (ASCII: "IRC1").
	recordsMagic = 0x49524331
	// recordsVersion is the current record artifact version.
	recordsVersion = 1

	recordsHeaderSize = 4 + 4 + 8
)

var (
	// ErrInvalidRecordsMagic indicates the file is not a records artifact.
	ErrInvalidRecordsMagic = errors.New("invalid records magic number")

	// ErrUnsupportedRecordsVersion indicates a version this build cannot read.
	ErrUnsupportedRecordsVersion = errors.New("unsupported records format version")

	// ErrRecordsChecksumMismatch indicates the stored CRC32 does not match.
	ErrRecordsChecksumMismatch = errors.New("records checksum mismatch")
)

// saveRecords writes the ordered record sequence as a versioned binary
// artifact: header (magic, version, count), MUS-encoded records in order,
// CRC32 trailer.
func saveRecords(records []core.Record, path string) error {
	size := recordsHeaderSize
	for i := range records {
		size += core.RecordMUS.Size(records[i])
	}

	buf := make([]byte, size, size+4)
	binary.LittleEndian.PutUint32(buf[0:], recordsMagic)
	binary.LittleEndian.PutUint32(buf[4:], recordsVersion)
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(records)))

	n := recordsHeaderSize
	for i := range records {
		n += core.RecordMUS.Marshal(records[i], buf[n:])
	}

	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return writeFileAtomic(path, buf)
}

// loadRecords reads a records artifact, validating the header, the
// declared count, and the checksum before returning any record.
func loadRecords(path string) ([]core.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records artifact: %w", err)
	}

	if len(data) < recordsHeaderSize+4 {
		return nil, fmt.Errorf("records artifact truncated: %d bytes", len(data))
	}

	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, ErrRecordsChecksumMismatch
	}

	if binary.LittleEndian.Uint32(body[0:]) != recordsMagic {
		return nil, ErrInvalidRecordsMagic
	}
	if version := binary.LittleEndian.Uint32(body[4:]); version != recordsVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRecordsVersion, version)
	}

	// Every encoded record occupies at least one payload byte, so a count
	// beyond the payload size is corrupt regardless of the checksum and
	// must not size the allocation.
	count := binary.LittleEndian.Uint64(body[8:])
	if payload := uint64(len(body) - recordsHeaderSize); count > payload {
		return nil, fmt.Errorf("%w: header declares %d records in %d payload bytes",
			core.ErrCorruptedBundle, count, payload)
	}
	records := make([]core.Record, 0, count)

	offset := recordsHeaderSize
	for i := uint64(0); i < count; i++ {
		record, n, err := core.RecordMUS.Unmarshal(body[offset:])
		if err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		offset += n
		records = append(records, record)
	}

	if offset != len(body) {
		return nil, fmt.Errorf("records artifact has %d trailing bytes", len(body)-offset)
	}

	return records, nil
}
