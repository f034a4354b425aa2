package catalog

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
)

// SessionCache holds the result of the last search, until it is overwritten by the next one or cleared
type SessionCache struct {
	mu     sync.Mutex
	result entities.SearchResult
	stored bool
}

// Store replaces the cached result
func (s *SessionCache) Store(result entities.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = append(entities.SearchResult(nil), result...)
	s.stored = true
}

// Get returns the cached result, if any
func (s *SessionCache) Get() (entities.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stored {
		return nil, false
	}
	return append(entities.SearchResult(nil), s.result...), true
}

// Clear empties the cache
func (s *SessionCache) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.stored = false
}

// Item returns the item at index of the cached result
func (s *SessionCache) Item(index int) (entities.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stored {
		return entities.CatalogItem{}, &ErrInvalidSelection{Msg: "no search result: search for scenes first"}
	}
	if index < 0 || index >= len(s.result) {
		return entities.CatalogItem{}, &ErrInvalidSelection{Msg: fmt.Sprintf("scene %d does not exist (%d scenes found)", index, len(s.result))}
	}
	return s.result[index], nil
}
