package automaton

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
)

const lockTTL = 10 * time.Second

// CreateInput is the payload accepted when creating an automation.
type CreateInput struct {
	Name  string        `json:"name"`
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
}

// Service implements automation CRUD on top of a GraphRepository.
type Service struct {
	repo   ports.GraphRepository
	locker ports.DistributedLocker
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLocker serializes writes through a distributed lock, for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) ServiceOption {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithServiceLogger sets the logger of the service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid generator for new automations.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates the CRUD service.
func NewService(repo ports.GraphRepository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new automation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Graph, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidGraph)
	}

	unlock, err := s.lock(ctx, "name:"+name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now().UTC()
	g := &domain.Graph{
		ID:        s.newID(),
		Name:      name,
		Nodes:     nonNil(in.Nodes),
		Edges:     nonNil(in.Edges),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("automation created", "graph_id", g.ID, "name", g.Name)
	return g, nil
}

// List returns every automation, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Graph, error) {
	return s.repo.List(ctx)
}

// Get returns one automation.
func (s *Service) Get(ctx context.Context, id string) (*domain.Graph, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a partial update and returns the new version.
func (s *Service) Update(ctx context.Context, id string, patch domain.GraphPatch) (*domain.Graph, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidGraph)
		}
		patch.Name = &name
	}

	unlock, err := s.lock(ctx, "id:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(current)
	next.Nodes = nonNil(next.Nodes)
	next.Edges = nonNil(next.Edges)
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("automation updated", "graph_id", id)
	return next, nil
}

// Delete removes an automation.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, "id:"+id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("automation deleted", "graph_id", id)
	return nil
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, "automation:"+key, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
