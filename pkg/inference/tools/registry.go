package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages available tools with thread-safe operations.
type Registry interface {
	RegisterTool(name string, def Definition) error
	GetTool(name string) (*Definition, error)
	ListTools() []Definition
}

// InMemoryRegistry is a thread-safe in-memory Registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

var _ Registry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tools: make(map[string]Definition)}
}

// RegisterTool registers a tool under name. The definition's own name, when
// set, must agree.
func (r *InMemoryRegistry) RegisterTool(name string, def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Name != "" && def.Name != name {
		return fmt.Errorf("tool definition name (%s) does not match registry name (%s)", def.Name, name)
	}
	def.Name = name
	r.tools[name] = def
	return nil
}

// GetTool retrieves a tool by name, returning a copy.
func (r *InMemoryRegistry) GetTool(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	toolCopy := tool
	return &toolCopy, nil
}

// ListTools returns all registered tools sorted by name.
func (r *InMemoryRegistry) ListTools() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
