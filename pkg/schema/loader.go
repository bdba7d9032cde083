package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/astrokit/runtool/pkg/schema/provider"
)

// File is the on-disk shape of a schema asset: one or more tool schemas
// keyed by tool name.
type File struct {
	Version string                 `yaml:"version,omitempty" json:"version,omitempty" mapstructure:"version"`
	Tools   map[string]*ToolSchema `yaml:"tools" json:"tools" mapstructure:"tools"`
}

// Loader loads and watches a schema asset from a Provider.
type Loader struct {
	provider provider.Provider
	onChange func(*Registry)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange sets a callback invoked when the schema asset changes.
func WithOnChange(fn func(*Registry)) LoaderOption {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// NewLoader creates a Loader with the given provider.
func NewLoader(p provider.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{
		provider: p,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, parses, and validates the schema asset into a Registry.
func (l *Loader) Load(ctx context.Context) (*Registry, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw schema asset bytes.
func Parse(data []byte) (*Registry, error) {
	rawMap, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schemas: %w", err)
	}

	expanded, _ := ExpandEnvVarsInData(rawMap).(map[string]interface{})

	file := &File{}
	if err := decodeFile(expanded, file); err != nil {
		return nil, fmt.Errorf("failed to decode schemas: %w", err)
	}

	reg := NewRegistry()
	for name, ts := range file.Tools {
		if ts == nil {
			ts = &ToolSchema{}
		}
		if ts.Name == "" {
			ts.Name = name
		} else if ts.Name != name {
			return nil, fmt.Errorf("tool '%s': name field %q does not match key", name, ts.Name)
		}
		if err := reg.Add(ts); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Watch starts watching for schema changes. When a change is detected the
// asset is reloaded and onChange is called with the fresh registry.
// Blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}

	if changes == nil {
		slog.Info("Schema watching not supported by provider", "type", l.provider.Type())
		<-ctx.Done()
		return ctx.Err()
	}

	slog.Info("Started watching for schema changes", "type", l.provider.Type())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			reg, err := l.Load(ctx)
			if err != nil {
				slog.Error("Failed to reload schemas", "error", err)
				continue
			}

			slog.Info("Schemas reloaded", "tools", reg.Count())
			if l.onChange != nil {
				l.onChange(reg)
			}
		}
	}
}

// Close releases resources held by the loader.
func (l *Loader) Close() error {
	return l.provider.Close()
}

// Provider returns the underlying provider.
func (l *Loader) Provider() provider.Provider {
	return l.provider
}

// parseBytes parses raw bytes into a map.
// Supports YAML (primary) and JSON (fallback).
func parseBytes(data []byte) (map[string]interface{}, error) {
	var result map[string]interface{}

	if err := yaml.Unmarshal(data, &result); err == nil {
		return result, nil
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}

	return result, nil
}

// decodeFile decodes a raw map into a File using mapstructure.
func decodeFile(input map[string]interface{}, output *File) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	return nil
}
