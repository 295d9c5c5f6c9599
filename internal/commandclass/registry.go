package commandclass

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry holds all known command class definitions.
type Registry struct {
	mu      sync.RWMutex
	classes map[uint8]Class
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		classes: make(map[uint8]Class),
		logger:  logger,
	}
}

// NewStandardRegistry creates a registry preloaded with the Standard table.
func NewStandardRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, c := range Standard {
		r.Register(c)
	}
	return r
}

// Register adds a class to the registry. A class with the same ID is replaced.
func (r *Registry) Register(c Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.classes[c.ID]; ok && existing.Name != c.Name {
		r.logger.Debug("command class replaced", "id", fmt.Sprintf("0x%02X", c.ID), "old", existing.Name, "name", c.Name)
	}
	r.classes[c.ID] = c
}

// Get returns a class by ID.
func (r *Registry) Get(id uint8) (Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[id]
	return c, ok
}

// Name returns the class name, or the hex ID when the class is unknown.
func (r *Registry) Name(id uint8) string {
	if c, ok := r.Get(id); ok {
		return c.Name
	}
	return fmt.Sprintf("0x%02X", id)
}

// All returns all registered classes ordered by ID.
func (r *Registry) All() []Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Class, 0, len(r.classes))
	for _, c := range r.classes {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Descriptions returns an id -> name map of every registered class.
func (r *Registry) Descriptions() map[uint8]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint8]string, len(r.classes))
	for id, c := range r.classes {
		out[id] = c.Name
	}
	return out
}

// Resolve turns a user supplied class reference into an ID. Accepted forms:
// decimal ("37"), hex ("0x25"), full name ("COMMAND_CLASS_SWITCH_BINARY")
// and short name ("switch_binary"), case-insensitive.
func (r *Registry) Resolve(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty command class")
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		return uint8(n), nil
	}
	want := strings.ToUpper(s)
	if !strings.HasPrefix(want, "COMMAND_CLASS_") {
		want = "COMMAND_CLASS_" + want
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, c := range r.classes {
		if c.Name == want {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown command class %q", s)
}
