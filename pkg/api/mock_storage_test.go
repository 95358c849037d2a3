package api

import (
	"context"
	"errors"

	"github.com/adfharrison1/go-tours/pkg/domain"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

var errInjected = errors.New("disk on fire")

// faultyStorage wraps a memory engine and fails selected calls
type faultyStorage struct {
	*storage.StorageEngine
	failInsert bool
	failFind   bool
}

func newFaultyStorage() *faultyStorage {
	return &faultyStorage{StorageEngine: storage.NewStorageEngine()}
}

func (f *faultyStorage) Insert(collName string, doc domain.Document) (domain.Document, error) {
	if f.failInsert {
		return nil, errInjected
	}
	return f.StorageEngine.Insert(collName, doc)
}

func (f *faultyStorage) FindAllStream(ctx context.Context, collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	if f.failFind {
		return nil, errInjected
	}
	return f.StorageEngine.FindAllStream(ctx, collName, filter)
}

func (f *faultyStorage) FindAll(collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if f.failFind {
		return nil, domain.ErrCollectionNotFound
	}
	return f.StorageEngine.FindAll(collName, filter, options)
}
