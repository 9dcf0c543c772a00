package story

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed stories/*.yaml
var builtinFS embed.FS

// Store loads story templates from a directory, seeding it with the
// built-in stories on first use. Templates are parsed and validated
// once, then cached.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*Template),
	}
}

// EnsureDefaults writes the built-in templates into the store directory
// unless files with the same names already exist. Existing files win so
// local edits survive restarts.
func (s *Store) EnsureDefaults() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stories directory: %w", err)
	}

	entries, err := builtinFS.ReadDir("stories")
	if err != nil {
		return fmt.Errorf("failed to read built-in stories: %w", err)
	}
	for _, e := range entries {
		dst := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := builtinFS.ReadFile("stories/" + e.Name())
		if err != nil {
			return fmt.Errorf("failed to read built-in story %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("failed to write story %s: %w", dst, err)
		}
	}
	return nil
}

// Load returns the template with the given ID.
func (s *Store) Load(id string) (*Template, error) {
	s.mu.RLock()
	tpl, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("story %q not found: %w", id, err)
	}
	tpl, err = ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("story %q: %w", id, err)
	}

	s.mu.Lock()
	s.cache[id] = tpl
	s.mu.Unlock()
	return tpl, nil
}

// List returns all templates in the store, sorted by ID. Files that fail
// to parse are skipped.
func (s *Store) List() ([]*Template, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stories directory: %w", err)
	}

	var out []*Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".yaml")
		tpl, err := s.Load(id)
		if err != nil {
			continue
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ForGender picks the story for a child: girls get Riding Hood, boys get
// the Beanstalk, anything else defaults to the Beanstalk.
func (s *Store) ForGender(gender string) (*Template, error) {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "girl", "female", "f":
		return s.Load("lrrh")
	default:
		return s.Load("jatb")
	}
}
