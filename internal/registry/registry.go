// Package registry provides the catalog of bundled sample games.
// Samples register themselves in init(), allowing the CLI to list them and
// the host controller to fetch them from their fixed paths.
package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

//go:embed samples/*.js
var bundled embed.FS

// DefaultSample is the sample run when no other source is chosen.
const DefaultSample = "sample-game"

// Sample describes a bundled game script.
type Sample struct {
	ID    string
	Title string
	Path  string // path inside FS()
}

var (
	samples = make(map[string]Sample)
	mu      sync.RWMutex
)

func init() {
	Register(Sample{ID: DefaultSample, Title: "Jumper", Path: "samples/sample-game.js"})
	Register(Sample{ID: "input-test", Title: "Input Tester", Path: "samples/input-test.js"})
}

// Register adds a sample to the catalog.
// Panics if a sample with the same ID is already registered.
func Register(s Sample) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := samples[s.ID]; exists {
		panic(fmt.Sprintf("registry: sample %q already registered", s.ID))
	}
	samples[s.ID] = s
}

// List returns all registered samples, sorted by ID.
func List() []Sample {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]Sample, 0, len(samples))
	for _, s := range samples {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Get returns the sample with the given ID.
func Get(id string) (Sample, error) {
	mu.RLock()
	defer mu.RUnlock()

	s, ok := samples[id]
	if !ok {
		return Sample{}, fmt.Errorf("registry: unknown sample %q", id)
	}
	return s, nil
}

// FS exposes the bundled sample files.
func FS() fs.FS {
	return bundled
}

// Source reads a sample's script text.
func Source(id string) (string, error) {
	s, err := Get(id)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(bundled, s.Path)
	if err != nil {
		return "", fmt.Errorf("registry: cannot read sample %q: %w", id, err)
	}
	return string(data), nil
}
