package api

import (
	"context"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/store"
)

// RecordSource resolves a free-text query to candidate person records.
type RecordSource interface {
	Search(ctx context.Context, query string, limit int) ([]model.Record, error)
}

// PeopleSearcher is the part of store.Store that StoreRecords needs.
type PeopleSearcher interface {
	SearchPeople(ctx context.Context, filter store.PeopleFilter) ([]model.Record, error)
}

// StoreRecords is a RecordSource backed by the store's people table.
type StoreRecords struct {
	people PeopleSearcher
}

// NewStoreRecords wraps a people searcher as a RecordSource.
func NewStoreRecords(people PeopleSearcher) *StoreRecords {
	return &StoreRecords{people: people}
}

// Search returns up to limit people whose searchable text contains query.
func (s *StoreRecords) Search(ctx context.Context, query string, limit int) ([]model.Record, error) {
	return s.people.SearchPeople(ctx, store.PeopleFilter{Query: query, Limit: limit})
}
