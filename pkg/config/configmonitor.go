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

import "time"

// ActiveGame returns the configured active game descriptor.
func (c *Instance) ActiveGame() Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Game
}

// SetActiveGame replaces the active game descriptor.
//
//nolint:gocritic // game struct copied for immutability
func (c *Instance) SetActiveGame(game Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Game = game
}

// Tools returns a copy of the discovered tool list.
func (c *Instance) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]Tool, len(c.vals.Tools))
	copy(tools, c.vals.Tools)
	return tools
}

// SetTool adds or replaces a tool entry by id.
//
//nolint:gocritic // tool struct copied for immutability
func (c *Instance) SetTool(tool Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.vals.Tools {
		if existing.ID == tool.ID {
			c.vals.Tools[i] = tool
			return
		}
	}
	c.vals.Tools = append(c.vals.Tools, tool)
}

// RemoveTool deletes a tool entry by id, if present.
func (c *Instance) RemoveTool(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.vals.Tools {
		if existing.ID == id {
			c.vals.Tools = append(c.vals.Tools[:i], c.vals.Tools[i+1:]...)
			return
		}
	}
}

// FocusedPoll is the check period while the host window has focus, or while
// focus information is unavailable.
func (c *Instance) FocusedPoll() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Monitor.FocusedPollMs) * time.Millisecond
}

// UnfocusedPoll is the check period while the host window is backgrounded.
func (c *Instance) UnfocusedPoll() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Monitor.UnfocusedPollMs) * time.Millisecond
}

// DebugLogging reports whether debug level logging is enabled.
func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// APIPort is the listen port of the notifications API.
func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Port
}
