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

// Package statestore owns the service's view of which monitored executables
// are currently running.
package statestore

import (
	"sort"

	"github.com/ModPilotProject/modpilot-core/pkg/api/models"
	"github.com/ModPilotProject/modpilot-core/pkg/api/notifications"
	"github.com/ModPilotProject/modpilot-core/pkg/helpers/syncutil"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/tracker"
	"github.com/rs/zerolog/log"
)

// Store is the single writer of the known-running map. The monitor applies
// transitions to it and everything else reads snapshots.
//
// LOCKING RULES: mu protects running. Never send to the notification channel
// while holding the lock: lock, mutate, unlock, then notify.
type Store struct {
	running       map[string]tracker.Running
	Notifications chan<- models.Notification
	mu            syncutil.RWMutex
}

// NewStore returns an empty store and the channel its notifications are
// delivered on. The buffer gives the consumer headroom during bursts of
// transitions without stalling the monitor's check.
func NewStore() (store *Store, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, 128)
	return &Store{
		running:       make(map[string]tracker.Running),
		Notifications: ns,
	}, ns
}

// Known returns a copy of the running map for a single check to read. The
// copy keeps the check's read-then-signal sequence consistent even if the
// store is mutated between ticks.
func (s *Store) Known() tracker.KnownState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	known := make(tracker.KnownState, len(s.running))
	for path, running := range s.running {
		known[path] = running
	}
	return known
}

// Apply records one transition and emits the matching notification.
func (s *Store) Apply(transition tracker.Transition) {
	s.mu.Lock()

	switch transition.Kind {
	case tracker.KindStarted:
		s.running[transition.Path] = tracker.Running{
			PID:       transition.PID,
			Exclusive: transition.Exclusive,
		}
	case tracker.KindStopped:
		if _, ok := s.running[transition.Path]; !ok {
			// The monitor only signals stops for known entries, so this is
			// a bug somewhere upstream. Log it and move on.
			log.Warn().Str("path", transition.Path).
				Msg("stop transition for unknown executable")
			s.mu.Unlock()
			return
		}
		delete(s.running, transition.Path)
	}

	s.mu.Unlock()

	log.Info().
		Str("path", transition.Path).
		Int("pid", transition.PID).
		Str("kind", transition.Kind.String()).
		Msg("running state changed")

	if transition.Kind == tracker.KindStarted {
		notifications.ToolStarted(s.Notifications, models.ToolStartedParams{
			Path:      transition.Path,
			PID:       transition.PID,
			Exclusive: transition.Exclusive,
		})
	} else {
		notifications.ToolStopped(s.Notifications, models.ToolStoppedParams{
			Path: transition.Path,
		})
	}
}

// RunningTools lists everything currently recorded as running, sorted by path
// for stable API responses.
func (s *Store) RunningTools() []models.RunningTool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]models.RunningTool, 0, len(s.running))
	for path, running := range s.running {
		tools = append(tools, models.RunningTool{
			Path:      path,
			PID:       running.PID,
			Exclusive: running.Exclusive,
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Path < tools[j].Path })
	return tools
}

// ExclusiveRunning reports whether any recorded executable holds the
// exclusive flag. The host refuses to deploy mod files while this is true.
func (s *Store) ExclusiveRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, running := range s.running {
		if running.Exclusive {
			return true
		}
	}
	return false
}
