package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "automaton:"

// Store implements ports.GraphRepository using Redis.
//
// Layout under the prefix:
//
//	automation:<id>  JSON document
//	index            ZSET of ids scored by creation time (unix ms)
//	names            HASH name -> id, enforcing unique names
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + "automation:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) namesKey() string {
	return s.prefix + "names"
}

// Get retrieves an automation.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var g domain.Graph
	if err := json.Unmarshal(val, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal automation %s: %w", id, err)
	}
	return &g, nil
}

// Create stores a new automation, claiming its name first.
func (s *Store) Create(ctx context.Context, g *domain.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal automation: %w", err)
	}

	claimed, err := s.client.HSetNX(ctx, s.namesKey(), g.Name, g.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim name: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, g.Name)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(g.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(g.CreatedAt.UnixMilli()),
		Member: g.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		// Release the name so a retry can succeed.
		s.client.HDel(context.WithoutCancel(ctx), s.namesKey(), g.Name)
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// List returns all automations, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Graph, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Graph{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load automations: %w", err)
	}

	graphs := make([]*domain.Graph, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}
		var g domain.Graph
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal automation %s: %w", ids[i], err)
		}
		graphs = append(graphs, &g)
	}
	memory.SortNewestFirst(graphs)
	return graphs, nil
}

// Update replaces an automation, moving its name claim if the name changed.
func (s *Store) Update(ctx context.Context, g *domain.Graph) error {
	current, err := s.Get(ctx, g.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal automation: %w", err)
	}

	if current.Name != g.Name {
		claimed, err := s.client.HSetNX(ctx, s.namesKey(), g.Name, g.ID).Result()
		if err != nil {
			return fmt.Errorf("failed to claim name: %w", err)
		}
		if !claimed {
			owner, err := s.client.HGet(ctx, s.namesKey(), g.Name).Result()
			if err != nil || owner != g.ID {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateName, g.Name)
			}
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(g.ID), data, 0)
	if current.Name != g.Name {
		pipe.HDel(ctx, s.namesKey(), current.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the automation, its index entry and its name claim.
func (s *Store) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	pipe.HDel(ctx, s.namesKey(), current.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
