package domain

import "context"

// StorageEngine defines the interface for storage operations.
// The admin API, the admin panel and the public site only depend on this.
type StorageEngine interface {
	CreateCollection(collName string) error
	Collections() []string
	Insert(collName string, doc Document) (Document, error)
	BatchInsert(collName string, docs []Document) ([]Document, error)
	GetById(collName, docId string) (Document, error)
	FindOne(collName string, filter map[string]interface{}) (Document, error)
	FindAll(collName string, filter map[string]interface{}, options *PaginationOptions) (*PaginationResult, error)
	FindAllStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan Document, error)
	Count(collName string, filter map[string]interface{}) (int, error)
	UpdateById(collName, docId string, updates Document) (Document, error)
	ReplaceById(collName, docId string, newDoc Document) (Document, error)
	DeleteById(collName, docId string) error
	Subscribe(buffer int) (<-chan ChangeEvent, func())
	// RecentChanges returns up to n of the latest change events, newest first
	RecentChanges(n int) []ChangeEvent
}

// DatabaseEngine combines StorageEngine and IndexEngine interfaces
type DatabaseEngine interface {
	StorageEngine
	IndexEngine
}
