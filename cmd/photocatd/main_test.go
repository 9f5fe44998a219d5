package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekai02/photocat/internal/config"
	"github.com/sekai02/photocat/internal/storage"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	store, err := openStore(config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "photos.json")})
	require.NoError(t, err)
	assert.IsType(t, &storage.FileStore{}, store)
	require.NoError(t, store.Close())

	store, err = openStore(config.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &storage.MemStore{}, store)

	_, err = openStore(config.StorageConfig{Backend: "Badger", Path: filepath.Join(dir, "photos.json")})
	assert.ErrorContains(t, err, `unknown storage backend "Badger"`)
}
