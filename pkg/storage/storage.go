package storage

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/indexing"
)

// StorageEngine is an embedded document store. Collections live in memory,
// are snapshotted to one file each and every write is journaled in between.
type StorageEngine struct {
	mu          sync.RWMutex
	collections map[string]*collectionEntry
	indexEngine *indexing.IndexEngine
	feed        *changeFeed

	// writeGate is held shared by writers and exclusively by checkpoints, so
	// the journal is never truncated while a write is half applied.
	writeGate sync.RWMutex

	journal *Journal
	lsn     atomic.Int64

	// Configuration
	dataDir         string
	backgroundSave  bool
	transactionSave bool
	saveInterval    time.Duration
	journalEnabled  bool
	journalSync     bool
	logger          *zap.Logger
	now             func() time.Time

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	closeOnce    sync.Once

	lastCheckpoint atomic.Int64 // unix nanos
}

// NewStorageEngine creates a new storage engine
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:     make(map[string]*collectionEntry),
		indexEngine:     indexing.NewIndexEngine(),
		feed:            newChangeFeed(50),
		transactionSave: true, // Default to transaction-based saves
		saveInterval:    5 * time.Minute,
		journalEnabled:  true,
		logger:          zap.NewNop(),
		now:             func() time.Time { return time.Now().UTC() },
		stopChan:        make(chan struct{}),
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// persistent reports whether the engine writes anything to disk
func (se *StorageEngine) persistent() bool {
	return se.dataDir != ""
}

// entry returns the collection entry or ErrCollectionNotFound
func (se *StorageEngine) entry(collName string) (*collectionEntry, error) {
	se.mu.RLock()
	defer se.mu.RUnlock()
	entry, exists := se.collections[collName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	return entry, nil
}

// getOrCreateEntry returns the entry for collName, creating it on first write
func (se *StorageEngine) getOrCreateEntry(collName string) (*collectionEntry, error) {
	if err := validateCollectionName(collName); err != nil {
		return nil, err
	}

	se.mu.RLock()
	if entry, exists := se.collections[collName]; exists {
		se.mu.RUnlock()
		return entry, nil
	}
	se.mu.RUnlock()

	se.mu.Lock()
	defer se.mu.Unlock()

	// Double-check in case another goroutine created it
	if entry, exists := se.collections[collName]; exists {
		return entry, nil
	}
	entry := newCollectionEntry(collName, se.now())
	se.collections[collName] = entry
	return entry, nil
}

// CreateCollection creates a new, empty collection. Creating an existing
// collection is a no-op so startup code can call it unconditionally.
func (se *StorageEngine) CreateCollection(collName string) error {
	_, err := se.getOrCreateEntry(collName)
	return err
}

// Collections returns all collection names, sorted
func (se *StorageEngine) Collections() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()

	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectionInfo returns a copy of a collection's metadata
func (se *StorageEngine) CollectionInfo(collName string) (CollectionInfo, error) {
	entry, err := se.entry(collName)
	if err != nil {
		return CollectionInfo{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.info, nil
}

// CreateIndex creates an index on a field and builds it from existing
// documents. A unique index fails with ErrDuplicateKey if the collection
// already holds duplicates.
func (se *StorageEngine) CreateIndex(collName, fieldName string, unique bool) error {
	entry, err := se.getOrCreateEntry(collName)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := se.indexEngine.CreateIndex(collName, fieldName, unique); err != nil {
		return err
	}
	if err := se.indexEngine.BuildIndexForCollection(collName, fieldName, entry.coll); err != nil {
		se.indexEngine.DropIndex(collName, fieldName)
		return err
	}
	return nil
}

// EnsureIndex creates the index unless it already exists
func (se *StorageEngine) EnsureIndex(collName, fieldName string, unique bool) error {
	if _, exists := se.indexEngine.GetIndex(collName, fieldName); exists {
		return nil
	}
	return se.CreateIndex(collName, fieldName, unique)
}

// DropIndex removes an index from a collection
func (se *StorageEngine) DropIndex(collName, fieldName string) error {
	return se.indexEngine.DropIndex(collName, fieldName)
}

// GetIndexes returns all index names for a collection
func (se *StorageEngine) GetIndexes(collName string) ([]string, error) {
	return se.indexEngine.GetIndexes(collName)
}

// Subscribe registers for change events. The returned func unsubscribes.
func (se *StorageEngine) Subscribe(buffer int) (<-chan domain.ChangeEvent, func()) {
	return se.feed.subscribe(buffer)
}

// RecentChanges returns up to n of the latest change events, newest first
func (se *StorageEngine) RecentChanges(n int) []domain.ChangeEvent {
	return se.feed.recent(n)
}

// LSN returns the sequence number of the latest write
func (se *StorageEngine) LSN() int64 {
	return se.lsn.Load()
}

// nextLSN hands out the next write sequence number
func (se *StorageEngine) nextLSN() int64 {
	return se.lsn.Add(1)
}
