package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Store implements ports.GraphRepository using the local filesystem.
// Each automation is a JSON file named after its id. Hand-written YAML files
// (.yaml/.yml) in the same directory are readable too; writes always produce JSON.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".automaton/automations".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".automaton", "automations")
	}
	return &Store{BasePath: basePath}
}

// LoadGraphFile reads a single graph from a .json, .yaml or .yml file.
func LoadGraphFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	g, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if g.ID == "" {
		g.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

func decode(path string, data []byte) (*domain.Graph, error) {
	var g domain.Graph
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

// Get reads an automation by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return LoadGraphFile(path)
}

// Create writes a new automation file.
func (s *Store) Create(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkName(g.Name, ""); err != nil {
		return err
	}
	return s.write(g)
}

// List reads every automation in the directory, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Graph, error) {
	paths, err := s.paths()
	if err != nil {
		return nil, err
	}

	graphs := make([]*domain.Graph, 0, len(paths))
	for _, p := range paths {
		g, err := LoadGraphFile(p)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	memory.SortNewestFirst(graphs)
	return graphs, nil
}

// Update overwrites an existing automation. A YAML source is replaced by its JSON form.
func (s *Store) Update(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(g.ID)
	if err != nil {
		return err
	}
	if err := s.checkName(g.Name, g.ID); err != nil {
		return err
	}
	if err := s.write(g); err != nil {
		return err
	}
	if filepath.Ext(path) != ".json" {
		_ = os.Remove(path)
	}
	return nil
}

// Delete removes the automation file.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete automation file: %w", err)
	}
	return nil
}

func (s *Store) find(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid id %q", domain.ErrGraphNotFound, id)
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(s.BasePath, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat automation file: %w", err)
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
}

func (s *Store) paths() ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
			out = append(out, filepath.Join(s.BasePath, entry.Name()))
		}
	}
	return out, nil
}

func (s *Store) checkName(name, exceptID string) error {
	paths, err := s.paths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		g, err := LoadGraphFile(p)
		if err != nil {
			return err
		}
		if g.ID != exceptID && g.Name == name {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
		}
	}
	return nil
}

// write persists the graph to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(g *domain.Graph) error {
	if g.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", domain.ErrInvalidGraph)
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure automation directory: %w", err)
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal automation: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+g.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.BasePath, g.ID+".json")); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
