package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHistoryFlags(t *testing.T) {
	t.Cleanup(func() {
		historyLimit, historyJSON = 10, false
	})
}

func TestHistoryCmd_Use(t *testing.T) {
	assert.Equal(t, "history [id]", historyCmd.Use)
}

func TestHistoryCmd_HasLimitFlag(t *testing.T) {
	flag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestHistoryCmd_ListsRecent(t *testing.T) {
	analysis, _, cleanup := setupTestServices()
	defer cleanup()
	resetHistoryFlags(t)

	out, err := execute(t, "history", "-n", "3")

	require.NoError(t, err)
	assert.Equal(t, 3, analysis.lastLimit)
	assert.Contains(t, out, "a1b2c3")
	assert.Contains(t, out, "positive")
	assert.Contains(t, out, "https://example.com/q3")
}

func TestHistoryCmd_Empty(t *testing.T) {
	analysis, _, cleanup := setupTestServices()
	defer cleanup()
	resetHistoryFlags(t)
	analysis.records = nil

	out, err := execute(t, "history")

	require.NoError(t, err)
	assert.Contains(t, out, "No analyses yet")
}

func TestHistoryCmd_ShowsOne(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	resetHistoryFlags(t)

	out, err := execute(t, "history", "a1b2c3")

	require.NoError(t, err)
	assert.Contains(t, out, "Expansion into APAC")
	assert.Contains(t, out, "+12% YoY")
}

func TestHistoryCmd_NotFound(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	resetHistoryFlags(t)

	_, err := execute(t, "history", "missing")

	assert.EqualError(t, err, "analysis missing not found")
}

func TestHistoryCmd_JSON(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	resetHistoryFlags(t)

	out, err := execute(t, "history", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"id": "a1b2c3"`)
	assert.Contains(t, out, `"chunk_count": 9`)
}
