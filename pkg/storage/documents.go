package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/indexing"
)

// Insert stores a copy of doc and returns it with _id and time stamps set.
// A caller-supplied _id must be a non-empty string that is not taken yet.
func (se *StorageEngine) Insert(collName string, doc domain.Document) (domain.Document, error) {
	se.writeGate.RLock()
	defer se.writeGate.RUnlock()

	entry, err := se.getOrCreateEntry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	stored, err := se.insertLocked(entry, doc)
	entry.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// BatchInsert inserts all documents or none: every document is validated
// (ids, unique indexes, duplicates within the batch) and the batch is
// journaled in one write before any is applied.
func (se *StorageEngine) BatchInsert(collName string, docs []domain.Document) ([]domain.Document, error) {
	se.writeGate.RLock()
	defer se.writeGate.RUnlock()

	entry, err := se.getOrCreateEntry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := se.now()
	prepared := make([]domain.Document, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, doc := range docs {
		stored, err := se.prepareInsert(entry, doc, now)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if seen[stored.ID()] {
			return nil, fmt.Errorf("document %d: %w: _id=%s", i, domain.ErrDuplicateKey, stored.ID())
		}
		seen[stored.ID()] = true
		prepared[i] = stored
	}
	if err := se.checkBatchUnique(collName, prepared); err != nil {
		return nil, err
	}

	lsns, err := se.logWrites(domain.ChangeInsert, collName, prepared)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Document, len(prepared))
	for i, stored := range prepared {
		se.applyPut(entry, domain.ChangeInsert, stored, nil, lsns[i])
		results[i] = stored.Clone()
	}
	se.afterWrite(entry)
	return results, nil
}

func (se *StorageEngine) insertLocked(entry *collectionEntry, doc domain.Document) (domain.Document, error) {
	stored, err := se.prepareInsert(entry, doc, se.now())
	if err != nil {
		return nil, err
	}
	if err := se.commitPut(entry, domain.ChangeInsert, stored, nil); err != nil {
		return nil, err
	}
	se.afterWrite(entry)
	return stored, nil
}

// prepareInsert copies doc, assigns its id and stamps; caller holds entry lock
func (se *StorageEngine) prepareInsert(entry *collectionEntry, doc domain.Document, now time.Time) (domain.Document, error) {
	stored := doc.Clone()
	if stored == nil {
		stored = domain.Document{}
	}

	if raw, ok := stored[domain.FieldID]; ok && raw != nil {
		id, isString := raw.(string)
		if !isString || id == "" {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidID, raw)
		}
		if _, exists := entry.coll.Documents[id]; exists {
			return nil, fmt.Errorf("%w: _id=%s", domain.ErrDuplicateKey, id)
		}
	} else {
		stored[domain.FieldID] = uuid.NewString()
	}

	stamp := now.Format(time.RFC3339Nano)
	stored[domain.FieldCreatedAt] = stamp
	stored[domain.FieldUpdatedAt] = stamp

	if err := se.indexEngine.CheckDocument(entry.coll.Name, stored.ID(), stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// checkBatchUnique catches unique-index clashes between batch members
func (se *StorageEngine) checkBatchUnique(collName string, docs []domain.Document) error {
	fields, _ := se.indexEngine.GetIndexes(collName)
	for _, field := range fields {
		index, ok := se.indexEngine.GetIndex(collName, field)
		if !ok || !index.Unique {
			continue
		}
		seen := make(map[interface{}]bool)
		for _, doc := range docs {
			key, ok := indexing.Key(doc[field])
			if !ok {
				continue
			}
			if seen[key] {
				return fmt.Errorf("%w: %s=%v", domain.ErrDuplicateKey, field, doc[field])
			}
			seen[key] = true
		}
	}
	return nil
}

// GetById retrieves a copy of a specific document by its ID
func (se *StorageEngine) GetById(collName, docId string) (domain.Document, error) {
	entry, err := se.entry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	doc, exists := entry.coll.Documents[docId]
	if !exists {
		return nil, fmt.Errorf("%w: id %s in collection %s", domain.ErrNotFound, docId, collName)
	}
	return doc.Clone(), nil
}

// FindOne returns the first document matching filter in _id order
func (se *StorageEngine) FindOne(collName string, filter map[string]interface{}) (domain.Document, error) {
	docs, err := se.collect(collName, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no match in collection %s", domain.ErrNotFound, collName)
	}
	sortDocuments(docs, "", false)
	return docs[0], nil
}

// Count returns the number of documents matching filter
func (se *StorageEngine) Count(collName string, filter map[string]interface{}) (int, error) {
	entry, err := se.entry(collName)
	if err != nil {
		return 0, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()

	if len(filter) == 0 {
		return len(entry.coll.Documents), nil
	}
	count := 0
	se.scan(entry, filter, func(domain.Document) { count++ })
	return count, nil
}

// UpdateById merges updates into a document and returns the result.
// _id and _created_at can't be changed; a nil value removes a field.
func (se *StorageEngine) UpdateById(collName, docId string, updates domain.Document) (domain.Document, error) {
	se.writeGate.RLock()
	defer se.writeGate.RUnlock()

	entry, err := se.entry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	existing, exists := entry.coll.Documents[docId]
	if !exists {
		return nil, fmt.Errorf("%w: id %s in collection %s", domain.ErrNotFound, docId, collName)
	}

	merged := existing.Clone()
	for key, value := range updates.Clone() {
		if isReservedField(key) {
			continue
		}
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	merged[domain.FieldUpdatedAt] = se.now().Format(time.RFC3339Nano)

	if err := se.indexEngine.CheckDocument(collName, docId, merged); err != nil {
		return nil, err
	}
	if err := se.commitPut(entry, domain.ChangeUpdate, merged, existing); err != nil {
		return nil, err
	}
	se.afterWrite(entry)
	return merged.Clone(), nil
}

// ReplaceById swaps the whole document body, keeping _id and _created_at
func (se *StorageEngine) ReplaceById(collName, docId string, newDoc domain.Document) (domain.Document, error) {
	se.writeGate.RLock()
	defer se.writeGate.RUnlock()

	entry, err := se.entry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	existing, exists := entry.coll.Documents[docId]
	if !exists {
		return nil, fmt.Errorf("%w: id %s in collection %s", domain.ErrNotFound, docId, collName)
	}

	replaced := newDoc.Clone()
	if replaced == nil {
		replaced = domain.Document{}
	}
	replaced[domain.FieldID] = docId
	replaced[domain.FieldCreatedAt] = existing[domain.FieldCreatedAt]
	replaced[domain.FieldUpdatedAt] = se.now().Format(time.RFC3339Nano)

	if err := se.indexEngine.CheckDocument(collName, docId, replaced); err != nil {
		return nil, err
	}
	if err := se.commitPut(entry, domain.ChangeReplace, replaced, existing); err != nil {
		return nil, err
	}
	se.afterWrite(entry)
	return replaced.Clone(), nil
}

// DeleteById removes a specific document by its ID
func (se *StorageEngine) DeleteById(collName, docId string) error {
	se.writeGate.RLock()
	defer se.writeGate.RUnlock()

	entry, err := se.entry(collName)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	existing, exists := entry.coll.Documents[docId]
	if !exists {
		return fmt.Errorf("%w: id %s in collection %s", domain.ErrNotFound, docId, collName)
	}

	lsn, err := se.logWrite(domain.ChangeDelete, collName, docId, nil)
	if err != nil {
		return err
	}
	se.indexEngine.UpdateIndexForDocument(collName, docId, existing, nil)
	delete(entry.coll.Documents, docId)
	now := se.now()
	entry.markDirty(lsn, now)

	se.afterWrite(entry)
	se.feed.publish(domain.ChangeEvent{
		Type:       domain.ChangeDelete,
		Collection: collName,
		DocumentID: docId,
		LSN:        lsn,
		Timestamp:  now,
	})
	return nil
}

// commitPut journals and applies a put; caller holds the entry write lock
func (se *StorageEngine) commitPut(entry *collectionEntry, changeType domain.ChangeType, doc, oldDoc domain.Document) error {
	lsns, err := se.logWrites(changeType, entry.coll.Name, []domain.Document{doc})
	if err != nil {
		return err
	}
	se.applyPut(entry, changeType, doc, oldDoc, lsns[0])
	return nil
}

// applyPut makes a journaled write visible; caller holds entry lock
func (se *StorageEngine) applyPut(entry *collectionEntry, changeType domain.ChangeType, doc, oldDoc domain.Document, lsn int64) {
	collName := entry.coll.Name
	docID := doc.ID()

	se.indexEngine.UpdateIndexForDocument(collName, docID, oldDoc, doc)
	entry.coll.Documents[docID] = doc
	now := se.now()
	entry.markDirty(lsn, now)

	se.feed.publish(domain.ChangeEvent{
		Type:       changeType,
		Collection: collName,
		DocumentID: docID,
		Document:   doc.Clone(),
		LSN:        lsn,
		Timestamp:  now,
	})
}

// logWrite journals a single write and returns its LSN
func (se *StorageEngine) logWrite(changeType domain.ChangeType, collName, docID string, doc domain.Document) (int64, error) {
	if doc == nil {
		doc = domain.Document{domain.FieldID: docID}
	}
	lsns, err := se.logWrites(changeType, collName, []domain.Document{doc})
	if err != nil {
		return 0, err
	}
	return lsns[0], nil
}

// logWrites appends docs to the journal (when enabled) in one write and
// returns their LSNs
func (se *StorageEngine) logWrites(changeType domain.ChangeType, collName string, docs []domain.Document) ([]int64, error) {
	lsns := make([]int64, len(docs))
	entries := make([]*JournalEntry, len(docs))
	timestamp := se.now().UnixNano()
	for i, doc := range docs {
		lsns[i] = se.nextLSN()
		entries[i] = &JournalEntry{
			Type:       changeType,
			Timestamp:  timestamp,
			Collection: collName,
			DocumentID: doc.ID(),
			LSN:        lsns[i],
		}
		if changeType != domain.ChangeDelete {
			entries[i].Document = doc
		}
	}
	if se.journal == nil {
		return lsns, nil
	}
	if err := se.journal.AppendBatch(entries); err != nil {
		return nil, fmt.Errorf("failed to journal write: %w", err)
	}
	return lsns, nil
}

// afterWrite saves the collection when transaction saves are enabled.
// A failed save is logged, not returned: the journal still has the write.
func (se *StorageEngine) afterWrite(entry *collectionEntry) {
	if !se.transactionSave || !se.persistent() {
		return
	}
	if err := se.saveEntryLocked(entry); err != nil {
		se.logger.Warn("Failed to save collection after write",
			zap.String("collection", entry.coll.Name), zap.Error(err))
	}
}

func isReservedField(key string) bool {
	return key == domain.FieldID || key == domain.FieldCreatedAt || key == domain.FieldUpdatedAt
}

// FindAll returns documents that match the given filter criteria
// If filter is nil or empty, returns all documents
func (se *StorageEngine) FindAll(collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if options == nil {
		options = domain.DefaultPaginationOptions()
	}

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pagination options: %w", err)
	}

	docs, err := se.collect(collName, filter)
	if err != nil {
		return nil, err
	}

	sortDocuments(docs, options.SortBy, options.Desc)
	return applyPagination(docs, options)
}

// collect returns copies of all documents matching filter, unordered
func (se *StorageEngine) collect(collName string, filter map[string]interface{}) ([]domain.Document, error) {
	entry, err := se.entry(collName)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	var docs []domain.Document
	se.scan(entry, filter, func(doc domain.Document) {
		docs = append(docs, doc.Clone())
	})
	return docs, nil
}

// scan visits matching documents, using indexes when the filter allows.
// Caller holds the entry read lock.
func (se *StorageEngine) scan(entry *collectionEntry, filter map[string]interface{}, visit func(domain.Document)) {
	if len(filter) > 0 {
		if candidateIDs, useIndex := se.optimizeWithIndexes(entry.coll.Name, filter); useIndex {
			for _, docID := range candidateIDs {
				if doc, exists := entry.coll.Documents[docID]; exists && MatchesFilter(doc, filter) {
					visit(doc)
				}
			}
			return
		}
	}
	for _, doc := range entry.coll.Documents {
		if len(filter) == 0 || MatchesFilter(doc, filter) {
			visit(doc)
		}
	}
}

// sortDocuments orders by sortBy (ties and default by _id)
func sortDocuments(docs []domain.Document, sortBy string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		if sortBy != "" && sortBy != domain.FieldID {
			if c := CompareValues(docs[i][sortBy], docs[j][sortBy]); c != 0 {
				// missing values stay last in both directions
				if docs[i][sortBy] == nil || docs[j][sortBy] == nil {
					return c < 0
				}
				if desc {
					return c > 0
				}
				return c < 0
			}
		}
		if desc && (sortBy == "" || sortBy == domain.FieldID) {
			return docs[i].ID() > docs[j].ID()
		}
		return docs[i].ID() < docs[j].ID()
	})
}

// applyPagination applies pagination to a sorted slice of documents
func applyPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if options.IsUnpaged() {
		if docs == nil {
			docs = []domain.Document{}
		}
		return &domain.PaginationResult{Documents: docs, Total: int64(len(docs))}, nil
	}

	// Handle cursor-based pagination
	if options.After != "" || options.Before != "" {
		return applyCursorPagination(docs, options)
	}

	// Handle offset-based pagination
	return applyOffsetPagination(docs, options)
}

func effectiveLimit(options *domain.PaginationOptions) int {
	limit := options.Limit
	if limit <= 0 {
		limit = 50 // default
	}
	if options.MaxLimit > 0 && limit > options.MaxLimit {
		limit = options.MaxLimit
	}
	return limit
}

// applyCursorPagination applies cursor-based pagination
func applyCursorPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	result := &domain.PaginationResult{
		Documents: []domain.Document{},
		Total:     int64(len(docs)),
	}
	limit := effectiveLimit(options)

	if options.After != "" {
		cursor, err := domain.DecodeCursor(options.After)
		if err != nil {
			return nil, fmt.Errorf("invalid after cursor: %w", err)
		}
		pos := indexOfID(docs, cursor.ID)
		if pos < 0 {
			return nil, fmt.Errorf("invalid after cursor: document %s is not in the result set", cursor.ID)
		}

		start := pos + 1
		end := start + limit
		if end < len(docs) {
			result.HasNext = true
		} else {
			end = len(docs)
		}
		result.HasPrev = start > 0
		if start < len(docs) {
			result.Documents = docs[start:end]
		}
	} else {
		cursor, err := domain.DecodeCursor(options.Before)
		if err != nil {
			return nil, fmt.Errorf("invalid before cursor: %w", err)
		}
		pos := indexOfID(docs, cursor.ID)
		if pos < 0 {
			return nil, fmt.Errorf("invalid before cursor: document %s is not in the result set", cursor.ID)
		}

		end := pos
		start := end - limit
		if start < 0 {
			start = 0
		}
		result.HasPrev = start > 0
		result.HasNext = end < len(docs)
		result.Documents = docs[start:end]
	}

	if err := setCursors(result); err != nil {
		return nil, err
	}
	return result, nil
}

// applyOffsetPagination applies offset-based pagination
func applyOffsetPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	result := &domain.PaginationResult{
		Documents: []domain.Document{},
		Total:     int64(len(docs)),
	}

	limit := effectiveLimit(options)
	startIndex := options.Offset
	endIndex := startIndex + limit

	// Check bounds
	if startIndex >= len(docs) {
		result.HasPrev = startIndex > 0 && len(docs) > 0
		return result, nil
	}

	if endIndex >= len(docs) {
		endIndex = len(docs)
	} else {
		result.HasNext = true
	}
	result.HasPrev = startIndex > 0

	result.Documents = docs[startIndex:endIndex]
	if err := setCursors(result); err != nil {
		return nil, err
	}
	return result, nil
}

// setCursors fills NextCursor/PrevCursor from the page's edge documents
func setCursors(result *domain.PaginationResult) error {
	if len(result.Documents) == 0 {
		return nil
	}
	var err error
	if result.HasNext {
		last := result.Documents[len(result.Documents)-1]
		if result.NextCursor, err = domain.EncodeCursor(&domain.Cursor{ID: last.ID(), Timestamp: time.Now()}); err != nil {
			return fmt.Errorf("failed to encode next cursor: %w", err)
		}
	}
	if result.HasPrev {
		first := result.Documents[0]
		if result.PrevCursor, err = domain.EncodeCursor(&domain.Cursor{ID: first.ID(), Timestamp: time.Now()}); err != nil {
			return fmt.Errorf("failed to encode prev cursor: %w", err)
		}
	}
	return nil
}

func indexOfID(docs []domain.Document, id string) int {
	for i, doc := range docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

// optimizeWithIndexes attempts to use available indexes to optimize the query
// Returns candidate document IDs and whether index optimization was used
func (se *StorageEngine) optimizeWithIndexes(collName string, filter map[string]interface{}) ([]string, bool) {
	var indexResults [][]string

	for fieldName, expectedValue := range filter {
		if _, ok := indexing.Key(expectedValue); !ok {
			continue
		}
		if index, exists := se.indexEngine.GetIndex(collName, fieldName); exists {
			indexResults = append(indexResults, index.Query(expectedValue))
		}
	}

	// If no indexes are available, fall back to full scan
	if len(indexResults) == 0 {
		return nil, false
	}

	// If we have multiple indexes, use intersection (AND logic)
	if len(indexResults) > 1 {
		return IntersectStringSlices(indexResults...), true
	}

	return indexResults[0], true
}
