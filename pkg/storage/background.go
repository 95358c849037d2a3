package storage

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Stats is a point-in-time view of the engine for dashboards and health
type Stats struct {
	Collections    []CollectionInfo `json:"collections"`
	Documents      int64            `json:"documents"`
	DirtyCount     int              `json:"dirty_collections"`
	LSN            int64            `json:"lsn"`
	LastCheckpoint time.Time        `json:"last_checkpoint"`
	AllocMB        uint64           `json:"alloc_mb"`
	Goroutines     int              `json:"goroutines"`
}

// GetStats returns current storage and memory statistics
func (se *StorageEngine) GetStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := Stats{
		LSN:        se.lsn.Load(),
		AllocMB:    m.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
	}
	if ns := se.lastCheckpoint.Load(); ns > 0 {
		stats.LastCheckpoint = time.Unix(0, ns).UTC()
	}
	for _, name := range se.Collections() {
		info, err := se.CollectionInfo(name)
		if err != nil {
			continue
		}
		stats.Collections = append(stats.Collections, info)
		stats.Documents += info.DocumentCount
		if info.State == CollectionStateDirty {
			stats.DirtyCount++
		}
	}
	return stats
}

// StartBackgroundWorkers starts the periodic checkpoint worker when
// background saves are enabled
func (se *StorageEngine) StartBackgroundWorkers() {
	if !se.backgroundSave || !se.persistent() {
		return
	}

	se.backgroundWg.Add(1)
	go func() {
		defer se.backgroundWg.Done()
		ticker := time.NewTicker(se.saveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := se.Checkpoint(); err != nil {
					se.logger.Error("Background checkpoint failed", zap.Error(err))
				}
			case <-se.stopChan:
				return
			}
		}
	}()
	se.logger.Info("Background save enabled", zap.Duration("interval", se.saveInterval))
}

// StopBackgroundWorkers stops background workers
func (se *StorageEngine) StopBackgroundWorkers() {
	se.stopOnce.Do(func() {
		close(se.stopChan)
	})
	se.backgroundWg.Wait()
}

// Close stops workers, checkpoints, closes the journal and ends every
// change subscription. It is safe to call more than once.
func (se *StorageEngine) Close() error {
	var err error
	se.closeOnce.Do(func() {
		se.StopBackgroundWorkers()
		err = se.Checkpoint()
		if se.journal != nil {
			if cerr := se.journal.Close(); err == nil {
				err = cerr
			}
		}
		se.feed.close()
	})
	return err
}
