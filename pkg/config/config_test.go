// ModPilot Core
// Copyright (c) 2026 The ModPilot Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ModPilot Core.
//
// ModPilot Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ModPilot Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ModPilot Core.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("writes_defaults_when_missing", func(t *testing.T) {
		dir := t.TempDir()

		cfg, err := NewConfig(dir, BaseDefaults)

		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, CfgFile))
		assert.Equal(t, 2*time.Second, cfg.FocusedPoll())
		assert.Equal(t, 5*time.Second, cfg.UnfocusedPoll())
		assert.False(t, cfg.DebugLogging())
	})

	t.Run("loads_existing_file_over_defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `
config_schema = 1
debug_logging = true

[game]
name = "Skyrim Special Edition"
exe_path = 'C:\Games\Skyrim\SkyrimSE.exe'

[monitor]
focused_poll_ms = 1000

[[tools]]
id = "xedit"
exe_path = 'C:\Games\Tools\xEdit.exe'
exclusive = true
detached = false
`
		//nolint:gosec // G306: test file permissions are fine
		require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o644))

		cfg, err := NewConfig(dir, BaseDefaults)

		require.NoError(t, err)
		assert.True(t, cfg.DebugLogging())
		assert.Equal(t, "Skyrim Special Edition", cfg.ActiveGame().Name)
		assert.Equal(t, 1*time.Second, cfg.FocusedPoll())
		// Absent fields keep their defaults.
		assert.Equal(t, 5*time.Second, cfg.UnfocusedPoll())

		tools := cfg.Tools()
		require.Len(t, tools, 1)
		assert.Equal(t, "xedit", tools[0].ID)
		assert.True(t, tools[0].Exclusive)
		assert.False(t, tools[0].Detached)
	})

	t.Run("rejects_schema_mismatch", func(t *testing.T) {
		dir := t.TempDir()
		//nolint:gosec // G306: test file permissions are fine
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, CfgFile), []byte("config_schema = 99\n"), 0o644))

		_, err := NewConfig(dir, BaseDefaults)

		require.Error(t, err)
	})

	t.Run("env_var_overrides_path", func(t *testing.T) {
		dir := t.TempDir()
		custom := filepath.Join(dir, "elsewhere", "my.toml")
		t.Setenv(CfgEnv, custom)

		cfg, err := NewConfig(t.TempDir(), BaseDefaults)

		require.NoError(t, err)
		assert.Equal(t, custom, cfg.Path())
		assert.FileExists(t, custom)
	})
}

func TestToolMutation(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetTool(Tool{ID: "xedit", ExePath: "/tools/xEdit.exe"})
	cfg.SetTool(Tool{ID: "loot", ExePath: "/tools/LOOT.exe", Detached: true})
	require.Len(t, cfg.Tools(), 2)

	// Replacing by id updates in place.
	cfg.SetTool(Tool{ID: "xedit", ExePath: "/tools/xEdit64.exe"})
	tools := cfg.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "/tools/xEdit64.exe", tools[0].ExePath)

	cfg.RemoveTool("xedit")
	tools = cfg.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "loot", tools[0].ID)

	// Round-trips through disk.
	require.NoError(t, cfg.Save())
	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	require.Len(t, reloaded.Tools(), 1)
	assert.True(t, reloaded.Tools()[0].Detached)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetActiveGame(Game{Name: "Fallout 4", ExePath: `C:\Games\Fallout4\Fallout4.exe`})
	require.NoError(t, cfg.Save())

	require.NoError(t, cfg.Load())
	assert.Equal(t, "Fallout 4", cfg.ActiveGame().Name)
	assert.Equal(t, `C:\Games\Fallout4\Fallout4.exe`, cfg.ActiveGame().ExePath)
}
