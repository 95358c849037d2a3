package storage

import (
	"sync"
	"time"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

type CollectionState int

const (
	CollectionStateLoaded CollectionState = iota
	CollectionStateDirty
)

func (s CollectionState) String() string {
	if s == CollectionStateDirty {
		return "dirty"
	}
	return "clean"
}

// CollectionInfo is the metadata kept for every collection. It is guarded by
// the owning collectionEntry's lock.
type CollectionInfo struct {
	Name          string          `json:"name"`
	DocumentCount int64           `json:"document_count"`
	SizeOnDisk    int64           `json:"size_on_disk"`
	LastModified  time.Time       `json:"last_modified"`
	LastSaved     time.Time       `json:"last_saved"`
	State         CollectionState `json:"-"`
	LSN           int64           `json:"lsn"` // last applied journal sequence number
}

// collectionEntry pairs a collection with its lock and metadata
type collectionEntry struct {
	mu   sync.RWMutex
	coll *domain.Collection
	info CollectionInfo
}

func newCollectionEntry(name string, now time.Time) *collectionEntry {
	return &collectionEntry{
		coll: domain.NewCollection(name),
		info: CollectionInfo{
			Name:         name,
			LastModified: now,
			State:        CollectionStateLoaded,
		},
	}
}

// markDirty records a write; caller holds the entry write lock
func (e *collectionEntry) markDirty(lsn int64, now time.Time) {
	e.info.State = CollectionStateDirty
	e.info.DocumentCount = int64(len(e.coll.Documents))
	e.info.LastModified = now
	if lsn > e.info.LSN {
		e.info.LSN = lsn
	}
}
