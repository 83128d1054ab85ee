// Package config holds the analytical store target defaults and validation
// shared by the CLI and the HTTP server.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/crossfilter/pkg/adapter"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
)

// DefaultTargetType is the analytical store used when none is configured.
const DefaultTargetType = "duckdb"

// DefaultSchemaForType returns the default schema for a store type, falling
// back to "main" for unknown types.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}

// ApplyTargetDefaults fills the type, the schema and the store's default port.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if r, ok := adapter.Lookup(t.Type); ok && t.Port == 0 {
		t.Port = r.DefaultPort
	}
}

// IsFileBacked reports whether the target's store lives in a local file.
func IsFileBacked(t *core.TargetConfig) bool {
	if t == nil {
		return false
	}
	r, ok := adapter.Lookup(strings.ToLower(t.Type))
	return ok && r.FileBacked
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return nil
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
