package main

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snapmap-archiver/pkg/config"
	"snapmap-archiver/pkg/ui"
)

func TestConfigInitWritesLoadableExample(t *testing.T) {
	prevFile, prevOut := configFile, ui.Output
	configFile = filepath.Join(t.TempDir(), "nested", "config.yaml")
	ui.Output = io.Discard
	t.Cleanup(func() {
		configFile = prevFile
		ui.Output = prevOut
	})

	require.NoError(t, runConfigInit(initCmd, nil))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configFile))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultConfig(), cfg, "the example documents the defaults")

	err := runConfigInit(initCmd, nil)
	assert.ErrorContains(t, err, "already exists")
}
