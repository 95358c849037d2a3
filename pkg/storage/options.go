package storage

import (
	"time"

	"go.uber.org/zap"
)

type StorageOption func(*StorageEngine)

// WithDataDir enables persistence under dir. Without it the engine is
// memory-only: no snapshots and no journal.
func WithDataDir(dir string) StorageOption {
	return func(engine *StorageEngine) {
		engine.dataDir = dir
	}
}

func WithBackgroundSave(interval time.Duration) StorageOption {
	return func(engine *StorageEngine) {
		engine.backgroundSave = true
		engine.saveInterval = interval
		engine.transactionSave = false // Disable transaction saves when background saves are enabled
	}
}

// WithTransactionSave enables saving after every write transaction (default: true)
func WithTransactionSave(enabled bool) StorageOption {
	return func(engine *StorageEngine) {
		engine.transactionSave = enabled
	}
}

// WithJournal toggles the write journal (default: true when a data dir is set)
func WithJournal(enabled bool) StorageOption {
	return func(engine *StorageEngine) {
		engine.journalEnabled = enabled
	}
}

// WithJournalSync fsyncs the journal after every entry
func WithJournalSync(enabled bool) StorageOption {
	return func(engine *StorageEngine) {
		engine.journalSync = enabled
	}
}

func WithLogger(logger *zap.Logger) StorageOption {
	return func(engine *StorageEngine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithClock overrides the time source used for document stamps
func WithClock(now func() time.Time) StorageOption {
	return func(engine *StorageEngine) {
		engine.now = now
	}
}
