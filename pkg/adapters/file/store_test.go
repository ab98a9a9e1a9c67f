package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/messagemind/automaton/pkg/adapters/file"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunGraphRepositoryContract(t, store)
}

func TestFileStore_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	src := `
name: Hand written
nodes:
  - id: s
    type: start
  - id: a
    type: action
    data:
      message: hi
edges:
  - id: e1
    source: s
    target: a
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manual.yaml"), []byte(src), 0644))
	store := file.New(dir)

	g, err := store.Get(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, "manual", g.ID, "id defaults to the file name")
	assert.Equal(t, domain.ActionData{Message: "hi"}, g.Nodes[1].Data)

	// Updating converts the file to JSON.
	g.Name = "Converted"
	require.NoError(t, store.Update(context.Background(), g))
	_, err = os.Stat(filepath.Join(dir, "manual.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "manual.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	_, err := store.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLoadGraphFile_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": [`), 0644))
	_, err := file.LoadGraphFile(path)
	assert.Error(t, err)
}
