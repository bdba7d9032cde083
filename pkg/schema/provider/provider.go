// Package provider defines the schema source abstraction.
//
// Providers load schema asset bytes from a source (local file, zookeeper)
// and support watching for changes.
package provider

import (
	"context"
	"fmt"
)

// Type identifies the schema source type.
type Type string

const (
	TypeFile      Type = "file"
	TypeZookeeper Type = "zookeeper"
)

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "file", "":
		return TypeFile, nil
	case "zookeeper", "zk":
		return TypeZookeeper, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

// Provider abstracts schema sources.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Type returns the provider type for logging/debugging.
	Type() Type

	// Load reads raw schema bytes from the source.
	Load(ctx context.Context) ([]byte, error)

	// Watch starts watching for changes and signals via the returned
	// channel. Cancel the context to stop watching. Returns a nil channel
	// if watching is not supported.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Config configures provider creation.
type Config struct {
	// Type specifies the provider type (file, zookeeper).
	Type Type

	// Path is the schema path (file path or znode path).
	Path string

	// Endpoints for remote providers (zookeeper).
	Endpoints []string
}

// New creates a Provider from a Config.
func New(opts Config) (Provider, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("schema path is required")
	}

	switch opts.Type {
	case TypeFile, "":
		return NewFileProvider(opts.Path)
	case TypeZookeeper:
		return NewZookeeperProvider(opts.Endpoints, opts.Path)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", opts.Type)
	}
}
