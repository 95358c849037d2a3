package storage

import (
	"context"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// FindAllStream streams documents in a collection that match the given filter criteria
// If filter is nil or empty, streams all documents. Matches are copied under
// the collection lock, so the stream sees a consistent snapshot in _id order.
// The channel is closed once every match is sent or ctx is done, so callers
// that stop reading early must cancel ctx.
func (se *StorageEngine) FindAllStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	docs, err := se.collect(collName, filter)
	if err != nil {
		return nil, err
	}
	sortDocuments(docs, "", false)

	out := make(chan domain.Document, 100)
	go func() {
		defer close(out)
		for _, doc := range docs {
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
