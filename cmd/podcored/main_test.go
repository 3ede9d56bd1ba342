package main

import (
	"context"
	"testing"

	"github.com/cuemby/podcore/internal/config"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBackendMemory(t *testing.T) {
	b, err := buildBackend(context.Background(), config.BackendConfig{Kind: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &objectstore.MemoryBackend{}, b)
}

func TestBuildBackendFS(t *testing.T) {
	var bc config.BackendConfig
	bc.Kind = "fs"
	bc.FS.Root = t.TempDir()

	b, err := buildBackend(context.Background(), bc)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.FSBackend{}, b)
}

func TestBuildBackendEmbedded(t *testing.T) {
	var bc config.BackendConfig
	bc.Kind = "embedded"
	bc.Embedded.DataDir = t.TempDir()

	b, err := buildBackend(context.Background(), bc)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.EmbeddedBackend{}, b)
}

func TestBuildBackendUnknownKind(t *testing.T) {
	_, err := buildBackend(context.Background(), config.BackendConfig{Kind: "magic"})
	assert.Error(t, err)
}
