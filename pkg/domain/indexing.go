package domain

// IndexEngine defines the interface for indexing operations
type IndexEngine interface {
	CreateIndex(collectionName, fieldName string, unique bool) error
	DropIndex(collectionName, fieldName string) error
	GetIndexes(collectionName string) ([]string, error)
}
