package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

func TestServeCmd_HasAddrFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, "a", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)
}

func TestServeCmd_Long(t *testing.T) {
	assert.Contains(t, serveCmd.Long, "POST /api/analyze")
	assert.Contains(t, serveCmd.Long, "/metrics")
}

func TestServeCmd_RequiresSettings(t *testing.T) {
	prev := settingsService
	settingsService = nil
	defer func() { settingsService = prev }()

	_, err := execute(t, "serve")
	assert.EqualError(t, err, "settings service not configured")
}

func TestServeCmd_RuntimeError(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	runtimeBuilder = func(context.Context) (*Runtime, error) {
		return nil, domain.ErrEmbeddingUnavailable
	}

	_, err := execute(t, "serve")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestMCPCmd_HasServeSubcommand(t *testing.T) {
	require.Len(t, mcpCmd.Commands(), 1)
	assert.Equal(t, "serve", mcpCmd.Commands()[0].Name())

	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_NotConfigured(t *testing.T) {
	prev := runtimeBuilder
	runtimeBuilder = nil
	defer func() { runtimeBuilder = prev }()

	_, err := execute(t, "mcp", "serve")
	assert.EqualError(t, err, "analysis service not configured")
}
