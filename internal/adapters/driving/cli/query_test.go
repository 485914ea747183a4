package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

func TestQueryCmd_RequiresText(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestQueryCmd_Flags(t *testing.T) {
	flag := queryCmd.Flags().Lookup("k")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
	require.NotNil(t, queryCmd.Flags().Lookup("radius"))
	require.NotNil(t, queryCmd.Flags().Lookup("json"))
}

func TestQueryCmd_PrintsEveryLeg(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "query", "--k", "3", "--radius", "20", "fire", "near", "Weaverville")

	require.NoError(t, err)
	assert.Equal(t, "fire near Weaverville", ts.query.text)
	assert.Equal(t, domain.QueryOptions{K: 3, RadiusKm: 20}, ts.query.opts)
	assert.Contains(t, out, "Entity: Weaverville (GPE) at 40.7300, -122.9400")
	assert.Contains(t, out, "[1] document 12")
	assert.Contains(t, out, "document 12  entity 3  Weaverville")
	assert.Contains(t, out, "0.0 km")
	assert.Contains(t, out, "compound 0.700")
	assert.Contains(t, out, "semantic: slow")
}

func TestQueryCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "query", "--json", "fire")

	require.NoError(t, err)
	var result domain.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "fire", result.Query)
	assert.Equal(t, []int64{12, 4}, result.Semantic)
}

func TestQueryCmd_Error(t *testing.T) {
	ts := setupTestServices(t)
	ts.query.err = domain.ErrInvalidInput

	_, err := execute(t, "query", " ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryCmd_LoadsIndexFirst(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "query", "fire")

	require.NoError(t, err)
	assert.Equal(t, []string{"load"}, ts.index.calls)
	assert.Equal(t, "fire", ts.query.text)
}

func TestQueryCmd_MissingSnapshotStillQueries(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.loadErr = domain.ErrNotFound

	out, err := execute(t, "query", "fire")

	require.NoError(t, err)
	assert.Equal(t, "fire", ts.query.text)
	assert.Contains(t, out, "Query: fire")
}

func TestQueryCmd_CorruptSnapshotStillQueries(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.loadErr = domain.ErrCorruptSnapshot

	_, err := execute(t, "query", "fire")

	require.NoError(t, err)
	assert.Equal(t, "fire", ts.query.text)
}
