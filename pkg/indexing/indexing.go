package indexing

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// IndexEngine implements domain.IndexEngine interface
type IndexEngine struct {
	mu      sync.RWMutex
	indexes map[string]map[string]*Index // Collection name -> field name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]map[string]*Index),
	}
}

// Index stores a mapping from a field's value to document IDs.
// Keys are normalised the same way filters compare values: strings fold case
// and every numeric type collapses to float64.
type Index struct {
	Field    string
	Unique   bool
	Inverted map[interface{}][]string
}

// NewIndex creates an index on a specific field.
func NewIndex(field string, unique bool) *Index {
	return &Index{
		Field:    field,
		Unique:   unique,
		Inverted: make(map[interface{}][]string),
	}
}

// Key normalises a field value into an index key. ok is false for values
// that can't be indexed (nil, slices, maps).
func Key(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case string:
		return strings.ToLower(v), true
	case bool:
		return v, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return nil, false
	}
}

// BuildIndex indexes all documents in a collection by the specified field.
func (idx *Index) BuildIndex(collection *domain.Collection) error {
	idx.Inverted = make(map[interface{}][]string)
	for docID, doc := range collection.Documents {
		key, ok := Key(doc[idx.Field])
		if !ok {
			continue
		}
		if idx.Unique && len(idx.Inverted[key]) > 0 {
			return fmt.Errorf("%w: %s=%v", domain.ErrDuplicateKey, idx.Field, doc[idx.Field])
		}
		idx.Inverted[key] = append(idx.Inverted[key], docID)
	}
	for key := range idx.Inverted {
		sort.Strings(idx.Inverted[key])
	}
	return nil
}

// Query returns document IDs that match a given value in the indexed field.
func (idx *Index) Query(value interface{}) []string {
	key, ok := Key(value)
	if !ok {
		return nil
	}
	docIDs := idx.Inverted[key]
	out := make([]string, len(docIDs))
	copy(out, docIDs)
	return out
}

// Check reports whether writing newDoc under docID would break uniqueness.
func (idx *Index) Check(docID string, newDoc domain.Document) error {
	if !idx.Unique || newDoc == nil {
		return nil
	}
	key, ok := Key(newDoc[idx.Field])
	if !ok {
		return nil
	}
	for _, id := range idx.Inverted[key] {
		if id != docID {
			return fmt.Errorf("%w: %s=%v", domain.ErrDuplicateKey, idx.Field, newDoc[idx.Field])
		}
	}
	return nil
}

// UpdateIndex updates index after an insert/update/delete operation.
func (idx *Index) UpdateIndex(docID string, oldDoc, newDoc domain.Document) {
	if oldKey, ok := Key(oldDoc[idx.Field]); ok {
		docList := idx.Inverted[oldKey]
		for i, id := range docList {
			if id == docID {
				docList = append(docList[:i:i], docList[i+1:]...)
				break
			}
		}
		if len(docList) == 0 {
			delete(idx.Inverted, oldKey)
		} else {
			idx.Inverted[oldKey] = docList
		}
	}
	if newKey, ok := Key(newDoc[idx.Field]); ok {
		idx.Inverted[newKey] = append(idx.Inverted[newKey], docID)
	}
}

// CreateIndex creates an empty index on a specific field in a collection
func (ie *IndexEngine) CreateIndex(collectionName, fieldName string, unique bool) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.indexes[collectionName] == nil {
		ie.indexes[collectionName] = make(map[string]*Index)
	}
	if _, exists := ie.indexes[collectionName][fieldName]; exists {
		return fmt.Errorf("index on field %s already exists in collection %s", fieldName, collectionName)
	}

	ie.indexes[collectionName][fieldName] = NewIndex(fieldName, unique)
	return nil
}

// DropIndex removes an index from a collection
func (ie *IndexEngine) DropIndex(collectionName, fieldName string) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.indexes[collectionName] == nil {
		return fmt.Errorf("no indexes exist for collection %s", collectionName)
	}
	if _, exists := ie.indexes[collectionName][fieldName]; !exists {
		return fmt.Errorf("index on field %s does not exist in collection %s", fieldName, collectionName)
	}

	delete(ie.indexes[collectionName], fieldName)
	return nil
}

// GetIndexes returns all index names for a collection, sorted
func (ie *IndexEngine) GetIndexes(collectionName string) ([]string, error) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	indexNames := []string{}
	for fieldName := range ie.indexes[collectionName] {
		indexNames = append(indexNames, fieldName)
	}
	sort.Strings(indexNames)
	return indexNames, nil
}

// GetIndex returns an index for a specific field in a collection
func (ie *IndexEngine) GetIndex(collectionName, fieldName string) (*Index, bool) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	if collectionIndexes, exists := ie.indexes[collectionName]; exists {
		if index, exists := collectionIndexes[fieldName]; exists {
			return index, true
		}
	}
	return nil, false
}

// BuildIndexForCollection (re)builds one index from the collection contents
func (ie *IndexEngine) BuildIndexForCollection(collectionName, fieldName string, collection *domain.Collection) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.indexes[collectionName] == nil {
		ie.indexes[collectionName] = make(map[string]*Index)
	}
	index, exists := ie.indexes[collectionName][fieldName]
	if !exists {
		index = NewIndex(fieldName, false)
		ie.indexes[collectionName][fieldName] = index
	}
	return index.BuildIndex(collection)
}

// RebuildCollection rebuilds every index of a collection, e.g. after loading
// it from disk or replaying the journal.
func (ie *IndexEngine) RebuildCollection(collectionName string, collection *domain.Collection) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	for _, index := range ie.indexes[collectionName] {
		if err := index.BuildIndex(collection); err != nil {
			return err
		}
	}
	return nil
}

// CheckDocument validates unique constraints for a pending write
func (ie *IndexEngine) CheckDocument(collectionName, docID string, newDoc domain.Document) error {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	for _, index := range ie.indexes[collectionName] {
		if err := index.Check(docID, newDoc); err != nil {
			return err
		}
	}
	return nil
}

// UpdateIndexForDocument updates every index when a document changes
func (ie *IndexEngine) UpdateIndexForDocument(collectionName, docID string, oldDoc, newDoc domain.Document) {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	for _, index := range ie.indexes[collectionName] {
		index.UpdateIndex(docID, oldDoc, newDoc)
	}
}

// DropCollection removes every index of a collection
func (ie *IndexEngine) DropCollection(collectionName string) {
	ie.mu.Lock()
	defer ie.mu.Unlock()
	delete(ie.indexes, collectionName)
}
