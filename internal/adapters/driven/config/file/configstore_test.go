package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

func newTestStore(t *testing.T, content string) *ConfigStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	store, err := NewConfigStore(path)
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".trinity", "config.toml"), store.Path())
	assert.False(t, store.Exists())
}

func TestConfigStore_LoadMissingFileGivesDefaults(t *testing.T) {
	store := newTestStore(t, "")

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestConfigStore_Load(t *testing.T) {
	store := newTestStore(t, `
[database]
path = "/data/corpus.db"

[topics]
num_topics = 20
bigrams = true

[geocode]
min_interval = "1500ms"
cache_size = 1000

[query]
k = 10
geocode_fallback = true
`)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/corpus.db", settings.Database.Path)
	assert.Equal(t, 20, settings.Topics.NumTopics)
	assert.True(t, settings.Topics.Bigrams)
	assert.Equal(t, 1500*time.Millisecond, settings.Geocode.MinInterval.Duration)
	assert.Equal(t, 1000, settings.Geocode.CacheSize)
	assert.Equal(t, 10, settings.Query.K)
	assert.True(t, settings.Query.GeocodeFallback)

	// Untouched sections keep their defaults.
	assert.Equal(t, 15, settings.Topics.Passes)
	assert.Equal(t, domain.DefaultDimension, settings.Index.Dimension)
}

func TestConfigStore_LoadRejectsUnknownKeys(t *testing.T) {
	store := newTestStore(t, "[query]\nkk = 3\n")

	_, err := store.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "kk")
}

func TestConfigStore_LoadRejectsBadDuration(t *testing.T) {
	store := newTestStore(t, "[geocode]\nmin_interval = \"soon\"\n")

	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigStore_LoadValidates(t *testing.T) {
	store := newTestStore(t, "[topics]\nno_above = 2.0\n")

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topics.no_above")
}

func TestConfigStore_APIKeyFromDotEnv(t *testing.T) {
	store := newTestStore(t, "[embedding]\nprovider = \"openai\"\napi_key_env = \"TRINITY_TEST_OPENAI_KEY\"\n")
	envPath := filepath.Join(filepath.Dir(store.Path()), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRINITY_TEST_OPENAI_KEY=sk-from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("TRINITY_TEST_OPENAI_KEY") })

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", settings.Embedding.APIKey)
}

func TestConfigStore_EnvironmentWinsOverDotEnv(t *testing.T) {
	store := newTestStore(t, "[embedding]\nprovider = \"openai\"\napi_key_env = \"TRINITY_TEST_KEY2\"\n")
	envPath := filepath.Join(filepath.Dir(store.Path()), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRINITY_TEST_KEY2=from-file\n"), 0600))
	t.Setenv("TRINITY_TEST_KEY2", "from-env")

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.Embedding.APIKey)
}

func TestConfigStore_SaveRoundTrip(t *testing.T) {
	store := newTestStore(t, "")
	store.filePath = filepath.Join(filepath.Dir(store.Path()), "nested", "config.toml")

	settings := domain.DefaultSettings()
	settings.Query.RadiusKm = 75
	settings.Geocode.MinInterval.Duration = 2 * time.Second
	settings.Embedding.APIKey = "secret"
	require.NoError(t, store.Save(settings))
	assert.True(t, store.Exists())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "min_interval")
	assert.Contains(t, string(data), "2s")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.InDelta(t, 75, loaded.Query.RadiusKm, 1e-9)
	assert.Equal(t, 2*time.Second, loaded.Geocode.MinInterval.Duration)
	assert.Empty(t, loaded.Embedding.APIKey)
}
