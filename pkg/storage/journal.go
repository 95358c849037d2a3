package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// JournalFile is the journal's file name inside the data directory
const JournalFile = "journal.log"

// ErrCorruptEntry marks a journal line that failed to decode or verify
var ErrCorruptEntry = errors.New("corrupt journal entry")

// JournalEntry is one write as recorded in the journal. Inserts, updates
// and replaces all carry the full resulting document so replay is a put.
type JournalEntry struct {
	Type       domain.ChangeType `json:"type"`
	Timestamp  int64             `json:"timestamp"`
	Collection string            `json:"collection"`
	DocumentID string            `json:"document_id"`
	Document   domain.Document   `json:"document,omitempty"`
	LSN        int64             `json:"lsn"`
}

// journalRecord is one journal line. Checksum covers the Entry bytes
// exactly as written.
type journalRecord struct {
	Checksum uint32          `json:"checksum"`
	Entry    json.RawMessage `json:"entry"`
}

// Journal is an append-only JSON-lines log guarded by a CRC32 per entry
type Journal struct {
	path string
	sync bool
	file *os.File
	mu   sync.Mutex
}

// OpenJournal opens (or creates) the journal for appending
func OpenJournal(path string, syncWrites bool) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{path: path, sync: syncWrites, file: file}, nil
}

// Append writes an entry with the checksum of its encoded bytes
func (j *Journal) Append(entry *JournalEntry) error {
	return j.AppendBatch([]*JournalEntry{entry})
}

// AppendBatch writes entries in a single write. Every entry is encoded
// before anything is written, and a failed write is cut back off the file,
// so the batch lands whole or not at all short of a crash mid-write.
func (j *Journal) AppendBatch(entries []*JournalEntry) error {
	var data []byte
	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal journal entry: %w", err)
		}
		data = append(data, encodeRecord(payload)...)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal is closed")
	}
	info, err := j.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat journal: %w", err)
	}
	if _, err := j.file.Write(data); err != nil {
		if terr := j.file.Truncate(info.Size()); terr != nil {
			return fmt.Errorf("failed to write journal entry: %w (rollback: %v)", err, terr)
		}
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if j.sync {
		return j.file.Sync()
	}
	return nil
}

// Truncate empties the journal once every collection has been snapshotted
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal is closed")
	}
	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}
	_, err := j.file.Seek(0, io.SeekStart)
	return err
}

// Close closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal reads every valid entry from path. Reading stops at the first
// corrupt line (a torn write after a crash); the entries before it are
// returned together with an error wrapping ErrCorruptEntry.
func ReadJournal(path string) ([]*JournalEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	var entries []*JournalEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var record journalRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return entries, fmt.Errorf("%w: line %d: %v", ErrCorruptEntry, line, err)
		}
		if len(record.Entry) == 0 || crc32.ChecksumIEEE(record.Entry) != record.Checksum {
			return entries, fmt.Errorf("%w: line %d: checksum mismatch", ErrCorruptEntry, line)
		}
		var entry JournalEntry
		if err := json.Unmarshal(record.Entry, &entry); err != nil {
			return entries, fmt.Errorf("%w: line %d: %v", ErrCorruptEntry, line, err)
		}
		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading journal: %w", err)
	}
	return entries, nil
}

// encodeRecord frames payload as a journal line. The payload is spliced in
// verbatim so the checksum holds for the bytes on disk.
func encodeRecord(payload []byte) []byte {
	data := make([]byte, 0, len(payload)+40)
	data = append(data, `{"checksum":`...)
	data = strconv.AppendUint(data, uint64(crc32.ChecksumIEEE(payload)), 10)
	data = append(data, `,"entry":`...)
	data = append(data, payload...)
	return append(data, '}', '\n')
}
