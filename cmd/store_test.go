package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldfish-inc/ebisu/internal/config"
)

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Migrate(context.Background()))
}

func TestInitStore_Memory(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "memory"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, st)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
