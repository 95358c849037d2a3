package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "GTDB"
	// Current version
	FormatVersion = 1
	// File extension for snapshot files
	FileExtension = ".godb"

	// FlagCompressed marks an LZ4 block payload
	FlagCompressed uint8 = 1 << 0
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic    [4]byte // "GTDB"
	Version  uint8   // Format version
	Flags    uint8   // FlagCompressed
	Reserved [2]byte // Reserved for future use
	RawSize  uint32  // Payload size before compression
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, rawSize int) error {
	header := FileHeader{
		Magic:   [4]byte{'G', 'T', 'D', 'B'},
		Version: FormatVersion,
		Flags:   flags,
		RawSize: uint32(rawSize),
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Validate magic bytes
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %q", MagicBytes, string(header.Magic[:]))
	}

	// Validate version
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// SnapshotIndex records an index definition so it survives restarts
type SnapshotIndex struct {
	Field  string `msgpack:"field"`
	Unique bool   `msgpack:"unique"`
}

// CollectionSnapshot is the persisted form of one collection
type CollectionSnapshot struct {
	Name      string                            `msgpack:"name"`
	LSN       int64                             `msgpack:"lsn"`
	Indexes   []SnapshotIndex                   `msgpack:"indexes,omitempty"`
	Documents map[string]map[string]interface{} `msgpack:"documents"`
}

// StorageData is the payload of a snapshot file: one collection for the
// per-collection files, every collection for exports.
type StorageData struct {
	Collections []CollectionSnapshot   `msgpack:"collections"`
	Metadata    map[string]interface{} `msgpack:"metadata,omitempty"`
}

// EncodeSnapshot writes header + (compressed) msgpack payload
func EncodeSnapshot(w io.Writer, data *StorageData) (int, error) {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	payload := raw
	flags := uint8(0)
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to compress data: %w", err)
	}
	// n == 0 means the data was incompressible
	if n > 0 && n < len(raw) {
		payload = compressed[:n]
		flags |= FlagCompressed
	}

	if err := WriteHeader(w, flags, len(raw)); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return 0, fmt.Errorf("failed to write payload: %w", err)
	}
	return len(payload), nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot
func DecodeSnapshot(r io.Reader) (*StorageData, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	raw := payload
	if header.Flags&FlagCompressed != 0 {
		raw = make([]byte, header.RawSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		if n != int(header.RawSize) {
			return nil, fmt.Errorf("decompressed %d bytes, header says %d", n, header.RawSize)
		}
	} else if len(raw) != int(header.RawSize) {
		return nil, fmt.Errorf("payload is %d bytes, header says %d", len(raw), header.RawSize)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var data StorageData
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return &data, nil
}
