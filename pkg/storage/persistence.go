package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

func (se *StorageEngine) collectionsDir() string {
	return filepath.Join(se.dataDir, "collections")
}

func (se *StorageEngine) collectionFile(collName string) string {
	return filepath.Join(se.collectionsDir(), collName+FileExtension)
}

// Load restores every collection snapshot from the data directory, replays
// journal entries newer than each snapshot and opens the journal for new
// writes. Memory-only engines return immediately.
func (se *StorageEngine) Load() error {
	if !se.persistent() {
		return nil
	}
	start := time.Now()

	if err := os.MkdirAll(se.collectionsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create collections directory: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(se.collectionsDir(), "*"+FileExtension))
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	maxLSN := int64(0)
	for _, file := range files {
		data, err := readSnapshotFile(file)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", filepath.Base(file), err)
		}
		for _, snapshot := range data.Collections {
			if err := se.restoreCollection(snapshot, CollectionStateLoaded); err != nil {
				return err
			}
			if snapshot.LSN > maxLSN {
				maxLSN = snapshot.LSN
			}
		}
	}

	journalPath := filepath.Join(se.dataDir, JournalFile)
	entries, err := ReadJournal(journalPath)
	if err != nil {
		if !errors.Is(err, ErrCorruptEntry) {
			return err
		}
		se.logger.Warn("Journal has a corrupt tail, replaying the valid prefix", zap.Error(err))
	}

	replayed, touched := 0, map[string]*collectionEntry{}
	for _, jEntry := range entries {
		if jEntry.LSN > maxLSN {
			maxLSN = jEntry.LSN
		}
		entry, err := se.getOrCreateEntry(jEntry.Collection)
		if err != nil {
			return fmt.Errorf("journal LSN %d: %w", jEntry.LSN, err)
		}
		if jEntry.LSN <= entry.info.LSN {
			continue // already in the snapshot
		}
		if jEntry.Type == domain.ChangeDelete {
			delete(entry.coll.Documents, jEntry.DocumentID)
		} else {
			entry.coll.Documents[jEntry.DocumentID] = jEntry.Document
		}
		entry.markDirty(jEntry.LSN, se.now())
		touched[jEntry.Collection] = entry
		replayed++
	}
	for name, entry := range touched {
		if err := se.indexEngine.RebuildCollection(name, entry.coll); err != nil {
			se.logger.Warn("Index rebuild after replay failed", zap.String("collection", name), zap.Error(err))
		}
	}
	se.lsn.Store(maxLSN)

	if se.journalEnabled {
		journal, err := OpenJournal(journalPath, se.journalSync)
		if err != nil {
			return err
		}
		se.journal = journal
	}

	// Fold replayed writes into snapshots so the journal starts clean
	if err := se.Checkpoint(); err != nil {
		return err
	}

	se.logger.Info("Loaded data",
		zap.String("dir", se.dataDir),
		zap.Int("collections", len(se.Collections())),
		zap.Int("replayed", replayed),
		zap.Duration("took", time.Since(start)))
	return nil
}

// restoreCollection installs a snapshot as a collection, replacing any
// existing one with the same name
func (se *StorageEngine) restoreCollection(snapshot CollectionSnapshot, state CollectionState) error {
	if err := validateCollectionName(snapshot.Name); err != nil {
		return err
	}
	entry := newCollectionEntry(snapshot.Name, se.now())
	for docID, doc := range snapshot.Documents {
		entry.coll.Documents[docID] = domain.Document(doc)
	}
	entry.info.LSN = snapshot.LSN
	entry.info.DocumentCount = int64(len(entry.coll.Documents))
	entry.info.State = state

	se.indexEngine.DropCollection(snapshot.Name)
	for _, idx := range snapshot.Indexes {
		if err := se.indexEngine.CreateIndex(snapshot.Name, idx.Field, idx.Unique); err != nil {
			return err
		}
	}
	if err := se.indexEngine.RebuildCollection(snapshot.Name, entry.coll); err != nil {
		se.logger.Warn("Index rebuild failed", zap.String("collection", snapshot.Name), zap.Error(err))
	}

	se.mu.Lock()
	se.collections[snapshot.Name] = entry
	se.mu.Unlock()
	return nil
}

// snapshotLocked captures a collection; caller holds at least a read lock
func (se *StorageEngine) snapshotLocked(entry *collectionEntry) CollectionSnapshot {
	snapshot := CollectionSnapshot{
		Name:      entry.coll.Name,
		LSN:       entry.info.LSN,
		Documents: make(map[string]map[string]interface{}, len(entry.coll.Documents)),
	}
	fields, _ := se.indexEngine.GetIndexes(entry.coll.Name)
	for _, field := range fields {
		if index, ok := se.indexEngine.GetIndex(entry.coll.Name, field); ok {
			snapshot.Indexes = append(snapshot.Indexes, SnapshotIndex{Field: field, Unique: index.Unique})
		}
	}
	for docID, doc := range entry.coll.Documents {
		snapshot.Documents[docID] = map[string]interface{}(doc.Clone())
	}
	return snapshot
}

// saveEntryLocked writes one collection snapshot; caller holds the entry
// write lock
func (se *StorageEngine) saveEntryLocked(entry *collectionEntry) error {
	if !se.persistent() {
		return nil
	}
	if err := os.MkdirAll(se.collectionsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create collections directory: %w", err)
	}

	data := &StorageData{Collections: []CollectionSnapshot{se.snapshotLocked(entry)}}
	size, err := writeSnapshotFile(se.collectionFile(entry.coll.Name), data)
	if err != nil {
		return err
	}

	entry.info.State = CollectionStateLoaded
	entry.info.SizeOnDisk = int64(size)
	entry.info.LastSaved = se.now()
	se.logger.Debug("Saved collection",
		zap.String("collection", entry.coll.Name), zap.Int("bytes", size))
	return nil
}

// Checkpoint saves every dirty collection and, when all saves succeeded,
// truncates the journal. Writes are blocked while it runs.
func (se *StorageEngine) Checkpoint() error {
	if !se.persistent() {
		return nil
	}
	se.writeGate.Lock()
	defer se.writeGate.Unlock()

	start := time.Now()
	savedCount, errorCount := 0, 0
	var firstErr error

	se.mu.RLock()
	entries := make([]*collectionEntry, 0, len(se.collections))
	for _, entry := range se.collections {
		entries = append(entries, entry)
	}
	se.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		if entry.info.State == CollectionStateDirty {
			if err := se.saveEntryLocked(entry); err != nil {
				se.logger.Error("Failed to save collection",
					zap.String("collection", entry.coll.Name), zap.Error(err))
				errorCount++
				if firstErr == nil {
					firstErr = err
				}
			} else {
				savedCount++
			}
		}
		entry.mu.Unlock()
	}

	if errorCount > 0 {
		se.logger.Warn("Checkpoint completed with errors",
			zap.Int("saved", savedCount), zap.Int("errors", errorCount), zap.Duration("took", time.Since(start)))
		return fmt.Errorf("checkpoint: %d collections failed to save: %w", errorCount, firstErr)
	}

	if se.journal != nil {
		if err := se.journal.Truncate(); err != nil {
			return err
		}
	}
	se.lastCheckpoint.Store(se.now().UnixNano())
	if savedCount > 0 {
		se.logger.Info("Checkpoint completed",
			zap.Int("saved", savedCount), zap.Duration("took", time.Since(start)))
	}
	return nil
}

// Export writes every collection into a single snapshot file
func (se *StorageEngine) Export(filename string) error {
	data := &StorageData{
		Metadata: map[string]interface{}{"exported_at": se.now().Format(time.RFC3339)},
	}
	for _, name := range se.Collections() {
		entry, err := se.entry(name)
		if err != nil {
			continue
		}
		entry.mu.RLock()
		data.Collections = append(data.Collections, se.snapshotLocked(entry))
		entry.mu.RUnlock()
	}

	if _, err := writeSnapshotFile(filename, data); err != nil {
		return err
	}
	se.logger.Info("Exported data", zap.String("file", filename), zap.Int("collections", len(data.Collections)))
	return nil
}

// Import replaces every collection named in an export file with its
// contents. Collections not in the file are left alone.
func (se *StorageEngine) Import(filename string) error {
	data, err := readSnapshotFile(filename)
	if err != nil {
		return err
	}

	se.writeGate.Lock()
	for _, snapshot := range data.Collections {
		snapshot.LSN = se.nextLSN()
		if err := se.restoreCollection(snapshot, CollectionStateDirty); err != nil {
			se.writeGate.Unlock()
			return err
		}
		se.feed.publish(domain.ChangeEvent{
			Type:       domain.ChangeReplace,
			Collection: snapshot.Name,
			LSN:        snapshot.LSN,
			Timestamp:  se.now(),
		})
	}
	se.writeGate.Unlock()

	se.logger.Info("Imported data", zap.String("file", filename), zap.Int("collections", len(data.Collections)))
	return se.Checkpoint()
}

// writeSnapshotFile writes atomically: temp file, fsync, rename
func writeSnapshotFile(filename string, data *StorageData) (int, error) {
	var buf bytes.Buffer
	size, err := EncodeSnapshot(&buf, data)
	if err != nil {
		return 0, err
	}

	tempFile := filename + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile) // Clean up temp file
		return 0, fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return size, nil
}

func readSnapshotFile(filename string) (*StorageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return DecodeSnapshot(file)
}

// validateCollectionName keeps collection names usable as file names
func validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	}) >= 0 {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}
