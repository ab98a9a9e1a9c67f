package ports

import (
	"context"
	"testing"
	"time"

	"github.com/messagemind/automaton/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphRepositoryContract runs a suite of tests to verify that a GraphRepository
// implementation adheres to the defined interface contract.
// The repository must be empty when passed in.
func RunGraphRepositoryContract(t *testing.T, repo GraphRepository) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newGraph := func(id, name string, created time.Time) *domain.Graph {
		return &domain.Graph{
			ID:   id,
			Name: name,
			Nodes: []domain.Node{
				{ID: "s", Type: domain.NodeTypeStart, Data: domain.EmptyData{Kind: domain.NodeTypeStart}},
				{ID: "a", Type: domain.NodeTypeAction, Data: domain.ActionData{Message: "hello"}},
				{ID: "c", Type: domain.NodeTypeCondition, Data: domain.ConditionData{Rules: []domain.Rule{
					{Field: "email", Operator: domain.OpEndsWith, Value: "@x.com"},
				}}},
			},
			Edges: []domain.Edge{
				{ID: "e1", Source: "s", Target: "a"},
				{ID: "e2", Source: "a", Target: "c"},
			},
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	t.Run("Create and Get", func(t *testing.T) {
		g := newGraph("contract-1", "Welcome", base)
		require.NoError(t, repo.Create(ctx, g))

		loaded, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, "Welcome", loaded.Name)
		require.Len(t, loaded.Nodes, 3)
		assert.Equal(t, domain.ActionData{Message: "hello"}, loaded.Nodes[1].Data)
		assert.Equal(t, domain.OpEndsWith, loaded.Nodes[2].Data.(domain.ConditionData).Rules[0].Operator)
		assert.Equal(t, g.Edges, loaded.Edges)
		assert.True(t, base.Equal(loaded.CreatedAt))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Duplicate Name", func(t *testing.T) {
		err := repo.Create(ctx, newGraph("contract-dup", "Welcome", base))
		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})

	t.Run("Returned Graphs Are Copies", func(t *testing.T) {
		loaded, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		loaded.Name = "mutated"
		loaded.Nodes[0].ID = "mutated"

		again, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, "Welcome", again.Name)
		assert.Equal(t, "s", again.Nodes[0].ID)
	})

	t.Run("List Newest First", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newGraph("contract-2", "Later", base.Add(time.Hour))))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "contract-2", all[0].ID)
		assert.Equal(t, "contract-1", all[1].ID)
	})

	t.Run("Update", func(t *testing.T) {
		g, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		g.Name = "Renamed"
		g.UpdatedAt = base.Add(2 * time.Hour)
		require.NoError(t, repo.Update(ctx, g))

		loaded, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)

		// Old name is released.
		require.NoError(t, repo.Create(ctx, newGraph("contract-3", "Welcome", base)))

		g.Name = "Later"
		assert.ErrorIs(t, repo.Update(ctx, g), domain.ErrDuplicateName)

		assert.ErrorIs(t, repo.Update(ctx, newGraph("missing", "Ghost", base)), domain.ErrGraphNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "contract-3"))

		_, err := repo.Get(ctx, "contract-3")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "contract-3"), domain.ErrGraphNotFound)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
