package links

import (
	"context"
	"errors"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// mapFinder serves documents from a map.
type mapFinder struct {
	docs  map[string]*domain.Document
	calls int
	err   error
}

func (f *mapFinder) Find(_ context.Context, id string, _ ...domain.FindOption) (*domain.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[id], nil
}

var errFinder = errors.New("finder failed")
