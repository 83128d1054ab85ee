package adapter

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db")
	assert.Contains(t, msg, "duckdb")
	assert.Contains(t, msg, "crossfilter.yaml")
	assert.Contains(t, msg, "--store")
}

func TestRegister(t *testing.T) {
	var gotLogger *slog.Logger
	Register(Registration{
		Name: "test_store",
		Factory: func(logger *slog.Logger) Adapter {
			gotLogger = logger
			return nil
		},
		DefaultPort: 7000,
	})

	assert.True(t, IsRegistered("test_store"))
	assert.Contains(t, ListAdapters(), "test_store")

	r, ok := Lookup("test_store")
	require.True(t, ok)
	assert.Equal(t, 7000, r.DefaultPort)
	assert.False(t, r.FileBacked)

	_, err := NewAdapter(Config{Type: "test_store"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, gotLogger, "nil logger is replaced before reaching the factory")
}

func TestRegister_RequiresNameAndFactory(t *testing.T) {
	assert.Panics(t, func() { Register(Registration{Name: "no_factory"}) })
	assert.Panics(t, func() {
		Register(Registration{Factory: func(*slog.Logger) Adapter { return nil }})
	})
	assert.False(t, IsRegistered("no_factory"))
}

func TestNewAdapter(t *testing.T) {
	t.Run("empty type", func(t *testing.T) {
		_, err := NewAdapter(Config{}, nil)
		require.Error(t, err)
		assert.Equal(t, "adapter type not specified", err.Error())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewAdapter(Config{Type: "nonexistent_adapter_xyz"}, nil)
		require.Error(t, err)

		var unknownErr *UnknownAdapterError
		require.True(t, errors.As(err, &unknownErr))
		assert.Equal(t, "nonexistent_adapter_xyz", unknownErr.Type)
	})
}
