package automaton_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(key)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(ports.UnlockFunc), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc := automaton.NewService(memory.NewStore(),
		automaton.WithClock(fixedClock(now)),
		automaton.WithIDGenerator(func() string { return "fixed-id" }),
	)

	g, err := svc.Create(context.Background(), automaton.CreateInput{Name: "  Welcome  "})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", g.ID)
	assert.Equal(t, "Welcome", g.Name)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Equal(t, now, g.CreatedAt)

	_, err = svc.Create(context.Background(), automaton.CreateInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)
}

func TestService_CreateDuplicateName(t *testing.T) {
	svc := automaton.NewService(memory.NewStore())
	_, err := svc.Create(context.Background(), automaton.CreateInput{Name: "Welcome"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), automaton.CreateInput{Name: "Welcome "})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestService_UpdateIsPartial(t *testing.T) {
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := created
	svc := automaton.NewService(memory.NewStore(), automaton.WithClock(func() time.Time { return clock }))

	g, err := svc.Create(context.Background(), automaton.CreateInput{
		Name:  "Welcome",
		Nodes: []domain.Node{{ID: "s", Type: domain.NodeTypeStart, Data: domain.EmptyData{Kind: domain.NodeTypeStart}}},
	})
	require.NoError(t, err)

	clock = created.Add(time.Hour)
	edges := []domain.Edge{{ID: "e1", Source: "s", Target: "x"}}
	updated, err := svc.Update(context.Background(), g.ID, domain.GraphPatch{Edges: &edges})
	require.NoError(t, err)

	assert.Equal(t, "Welcome", updated.Name)
	assert.Len(t, updated.Nodes, 1)
	assert.Equal(t, edges, updated.Edges)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, clock, updated.UpdatedAt)

	empty := " "
	_, err = svc.Update(context.Background(), g.ID, domain.GraphPatch{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)

	_, err = svc.Update(context.Background(), "missing", domain.GraphPatch{})
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestService_DeleteUsesLocker(t *testing.T) {
	locker := &mockLocker{}
	released := false
	unlock := ports.UnlockFunc(func(ctx context.Context) error {
		released = true
		return nil
	})
	locker.On("Lock", "automation:name:Welcome").Return(unlock, nil).Once()
	locker.On("Lock", mock.MatchedBy(func(key string) bool { return key != "automation:name:Welcome" })).Return(unlock, nil)

	svc := automaton.NewService(memory.NewStore(), automaton.WithLocker(locker))
	g, err := svc.Create(context.Background(), automaton.CreateInput{Name: "Welcome"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), g.ID))
	assert.True(t, released)
	locker.AssertCalled(t, "Lock", "automation:id:"+g.ID)

	_, err = svc.Get(context.Background(), g.ID)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestService_LockFailure(t *testing.T) {
	locker := &mockLocker{}
	busy := errors.New("busy")
	locker.On("Lock", mock.Anything).Return(nil, busy)

	svc := automaton.NewService(memory.NewStore(), automaton.WithLocker(locker))
	_, err := svc.Create(context.Background(), automaton.CreateInput{Name: "Welcome"})
	assert.ErrorIs(t, err, busy)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
