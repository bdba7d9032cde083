package schema

import (
	"fmt"

	"github.com/astrokit/runtool/pkg/registry"
)

// Registry holds the loaded tool schemas.
type Registry struct {
	*registry.BaseRegistry[*ToolSchema]
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[*ToolSchema](),
	}
}

// Add validates a tool schema and registers it under its name.
func (r *Registry) Add(ts *ToolSchema) error {
	if err := ts.Validate(); err != nil {
		return err
	}
	if err := r.Register(ts.Name, ts); err != nil {
		return fmt.Errorf("failed to register tool '%s': %w", ts.Name, err)
	}
	return nil
}

// Lookup returns the schema for a tool name.
func (r *Registry) Lookup(name string) (*ToolSchema, error) {
	ts, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool '%s' not found in schema registry", name)
	}
	return ts, nil
}
