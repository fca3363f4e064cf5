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

// Package monitor polls the OS process table to detect starts and stops of
// the active game and its tools, and forwards the transitions to the host
// state store. One Monitor instance exists per host application lifetime.
package monitor

import (
	"os"
	"time"

	"github.com/ModPilotProject/modpilot-core/pkg/config"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/procsnap"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/tracker"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Store is the host state store boundary. The monitor reads the known state
// at the start of each check and signals transitions back; it never mutates
// store state directly.
type Store interface {
	Known() tracker.KnownState
	Apply(transition tracker.Transition)
}

// Monitor runs the poll-check loop. Checks execute one at a time on the
// scheduler's timer; there is no concurrent re-entrancy.
type Monitor struct {
	cfg       *config.Instance
	store     Store
	enum      procsnap.Enumerator
	inspector procsnap.Inspector
	trk       *tracker.Tracker
	sched     *PollScheduler
	clock     clockwork.Clock
	focus     FocusFunc
	selfPID   int
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock substitutes the scheduler clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = clock }
}

// WithEnumerator substitutes the process enumerator.
func WithEnumerator(enum procsnap.Enumerator) Option {
	return func(m *Monitor) { m.enum = enum }
}

// WithInspector substitutes the module inspector.
func WithInspector(inspector procsnap.Inspector) Option {
	return func(m *Monitor) { m.inspector = inspector }
}

// WithFocus substitutes the window-focus query.
func WithFocus(focus FocusFunc) Option {
	return func(m *Monitor) { m.focus = focus }
}

// WithSelfPID overrides the ancestry root pid, for tests.
func WithSelfPID(pid int) Option {
	return func(m *Monitor) { m.selfPID = pid }
}

// New assembles a Monitor. On platforms without process enumeration support
// the returned Monitor is inert: Start logs once and stays idle, which is a
// configuration fact rather than an error.
func New(cfg *config.Instance, store Store, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:     cfg,
		store:   store,
		clock:   clockwork.NewRealClock(),
		focus:   WindowFocus,
		selfPID: os.Getpid(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.enum == nil {
		enum, err := procsnap.NewEnumerator()
		if err == nil {
			m.enum = enum
		}
	}
	if m.inspector == nil {
		inspector, err := procsnap.NewInspector()
		if err == nil {
			m.inspector = inspector
		}
	}

	m.trk = tracker.New(m.inspector, m.selfPID)
	m.sched = NewPollScheduler(m.clock, m.runCheck, m.focus, m.intervals)

	return m
}

// Start begins polling. Idempotent while running.
func (m *Monitor) Start() {
	if m.enum == nil || m.inspector == nil {
		log.Info().Msg("process monitoring unavailable on this platform")
		return
	}
	m.sched.Start()
	log.Info().Msg("process monitor started")
}

// Stop cancels polling between checks. Idempotent when already stopped.
func (m *Monitor) Stop() {
	m.sched.Stop()
	log.Info().Msg("process monitor stopped")
}

// runCheck is one tick: snapshot the process table, compare against the
// store's view, signal transitions. All failures are absorbed here and only
// logged; the polling cadence is never interrupted.
func (m *Monitor) runCheck() {
	snap, err := m.enum.ListProcesses()
	if err != nil {
		log.Error().Err(err).Msg("process enumeration failed, skipping check")
		return
	}

	transitions := m.trk.Check(m.targets(), m.store.Known(), snap)
	for _, transition := range transitions {
		m.store.Apply(transition)
	}
}

// targets assembles the per-check target list from configuration: the active
// game first, then the discovered tools.
func (m *Monitor) targets() []tracker.Target {
	var targets []tracker.Target

	game := m.cfg.ActiveGame()
	if game.ExePath != "" {
		targets = append(targets, tracker.Target{
			ExePath:       game.ExePath,
			Exclusive:     true,
			AllowDetached: true,
		})
	}

	for _, tool := range m.cfg.Tools() {
		if tool.ExePath == "" {
			continue
		}
		targets = append(targets, tracker.Target{
			ExePath:       tool.ExePath,
			Exclusive:     tool.Exclusive,
			AllowDetached: tool.Detached,
		})
	}

	return targets
}

func (m *Monitor) intervals() (focusedPeriod, unfocusedPeriod time.Duration) {
	return m.cfg.FocusedPoll(), m.cfg.UnfocusedPoll()
}
