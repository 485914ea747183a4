package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

func TestIndexCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range indexCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"build", "extend", "info"}, names)
}

func TestIndexBuildCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.info = driving.IndexInfo{
		SnapshotID: "01HZX", Dimension: 768, Size: 1200, Stale: 3,
		CreatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), SnapshotPath: "/data/index.snap",
	}

	out, err := execute(t, "index", "build")

	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, ts.index.calls)
	assert.Contains(t, out, "01HZX")
	assert.Contains(t, out, "Vectors:   1200")
	assert.Contains(t, out, "Stale:     3")
	assert.Contains(t, out, "2024-05-01 09:30:00")
}

func TestIndexBuildCmd_DimensionMismatch(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.err = domain.ErrDimensionMismatch

	_, err := execute(t, "index", "build")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexExtendCmd_LoadsFirst(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "index", "extend")

	require.NoError(t, err)
	assert.Equal(t, []string{"load-or-build", "extend"}, ts.index.calls)
}

func TestIndexInfoCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.index.loadErr = domain.ErrNotFound
	ts.index.info = driving.IndexInfo{Dimension: 768, Stale: 40}

	out, err := execute(t, "index", "info", "--json")

	require.NoError(t, err)
	var info driving.IndexInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 40, info.Stale)
	assert.Equal(t, []string{"load", "info"}, ts.index.calls)
}

func TestIndexInfoCmd_NoSnapshot(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "index", "info")

	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot:  (none)")
}
