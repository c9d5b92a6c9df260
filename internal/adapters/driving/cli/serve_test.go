package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
}

func TestServeCmd_ErrorsWithoutServer(t *testing.T) {
	oldServer := apiServer
	apiServer = nil
	defer func() { apiServer = oldServer }()

	_, err := executeCommand("serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestServeCmd_RunsServer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("serve")

	require.NoError(t, err)
	assert.Equal(t, 1, apiServer.(*mockRunner).runs)
}
