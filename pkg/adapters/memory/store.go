package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/messagemind/automaton/pkg/domain"
)

// Store implements ports.GraphRepository in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Graph
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally seeded with graphs.
func NewStore(graphs ...*domain.Graph) *Store {
	s := &Store{
		data: make(map[string]*domain.Graph),
	}
	for _, g := range graphs {
		s.data[g.ID] = g.Clone()
	}
	return s
}

// Get retrieves a copy of the graph so callers cannot mutate stored state by pointer.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return g.Clone(), nil
}

// Create stores a new graph.
func (s *Store) Create(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(g.Name, "") {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, g.Name)
	}
	s.data[g.ID] = g.Clone()
	return nil
}

// List returns every graph, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Graph, 0, len(s.data))
	for _, g := range s.data {
		out = append(out, g.Clone())
	}
	SortNewestFirst(out)
	return out, nil
}

// Update replaces an existing graph.
func (s *Store) Update(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[g.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrGraphNotFound, g.ID)
	}
	if s.nameTaken(g.Name, g.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, g.Name)
	}
	s.data[g.ID] = g.Clone()
	return nil
}

// Delete removes a graph.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	delete(s.data, id)
	return nil
}

func (s *Store) nameTaken(name, exceptID string) bool {
	for id, g := range s.data {
		if id != exceptID && g.Name == name {
			return true
		}
	}
	return false
}

// SortNewestFirst orders graphs by creation time, descending, with id as tie-breaker.
func SortNewestFirst(graphs []*domain.Graph) {
	sort.SliceStable(graphs, func(i, j int) bool {
		if !graphs[i].CreatedAt.Equal(graphs[j].CreatedAt) {
			return graphs[i].CreatedAt.After(graphs[j].CreatedAt)
		}
		return graphs[i].ID > graphs[j].ID
	})
}
