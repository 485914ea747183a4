package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

func TestConfigStore_DefaultsUntilSaved(t *testing.T) {
	store := NewConfigStore()
	assert.False(t, store.Exists())
	assert.Empty(t, store.Path())

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestConfigStore_SaveCopies(t *testing.T) {
	store := NewConfigStore()
	settings := domain.DefaultSettings()
	settings.Query.K = 9
	settings.Embedding.APIKey = "secret"
	require.NoError(t, store.Save(settings))
	assert.True(t, store.Exists())

	settings.Query.K = 1
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Query.K)
	assert.Empty(t, loaded.Embedding.APIKey)
}

func TestConfigStore_LoadValidates(t *testing.T) {
	store := NewConfigStore()
	settings := domain.DefaultSettings()
	settings.Topics.NoAbove = 3
	require.NoError(t, store.Save(settings))

	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
