package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func TestRoot_LogFormat(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "--log-format", "xml", "files", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRoot_BootstrapIsLazy(t *testing.T) {
	ts := setupTestServices(t)
	app = nil

	var calls int
	var gotPath string
	bootstrap = func(_ context.Context, path string) (*App, error) {
		calls++
		gotPath = path
		return ts.app, nil
	}

	_, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "version must not bootstrap")

	_, err = execute(t, "", "--config", "/tmp/custom.toml", "files", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/tmp/custom.toml", gotPath)

	_, err = execute(t, "", "files", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "app is built once")
}

func TestRoot_BootstrapError(t *testing.T) {
	setupTestServices(t)
	app = nil
	bootstrap = func(context.Context, string) (*App, error) {
		return nil, errors.New("disk full")
	}

	_, err := execute(t, "", "files", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRoot_NoBootstrap(t *testing.T) {
	setupTestServices(t)
	app = nil

	_, err := execute(t, "", "files", "list")
	assert.EqualError(t, err, "application not configured")
}

func TestRoot_AIErrorSurfaces(t *testing.T) {
	ts := setupTestServices(t)
	ts.app.Chat = nil
	ts.app.Search = nil
	ts.app.AIErr = domain.ErrLLMUnavailable

	_, err := execute(t, "", "ask", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = execute(t, "", "index", "search", "hello")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRoot_CloseApp(t *testing.T) {
	ts := setupTestServices(t)
	var closed bool
	ts.app.Close = func() error {
		closed = true
		return nil
	}

	closeApp()
	assert.True(t, closed)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
