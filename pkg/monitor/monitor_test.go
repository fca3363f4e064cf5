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

package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ModPilotProject/modpilot-core/pkg/config"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/procsnap"
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/tracker"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeEnumerator serves a swappable scripted snapshot.
type fakeEnumerator struct {
	mu      sync.Mutex
	records []procsnap.ProcessRecord
	err     error
}

func (f *fakeEnumerator) set(records []procsnap.ProcessRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

func (f *fakeEnumerator) ListProcesses() (*procsnap.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return procsnap.NewSnapshot(f.records), nil
}

// fakeModules serves canned module lists keyed by pid.
type fakeModules map[int][]procsnap.Module

func (f fakeModules) ListModules(pid int) []procsnap.Module {
	return f[pid]
}

// fakeStore applies transitions the way the host state store does and
// signals each application.
type fakeStore struct {
	mu      sync.Mutex
	known   tracker.KnownState
	applied chan tracker.Transition
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		known:   tracker.KnownState{},
		applied: make(chan tracker.Transition, 16),
	}
}

func (s *fakeStore) Known() tracker.KnownState {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(tracker.KnownState, len(s.known))
	for path, running := range s.known {
		known[path] = running
	}
	return known
}

func (s *fakeStore) Apply(transition tracker.Transition) {
	s.mu.Lock()
	if transition.Kind == tracker.KindStarted {
		s.known[transition.Path] = tracker.Running{
			PID:       transition.PID,
			Exclusive: transition.Exclusive,
		}
	} else {
		delete(s.known, transition.Path)
	}
	s.mu.Unlock()
	s.applied <- transition
}

func (s *fakeStore) expectTransition(t *testing.T) tracker.Transition {
	t.Helper()
	select {
	case transition := <-s.applied:
		return transition
	case <-time.After(2 * time.Second):
		t.Fatal("expected a transition to be applied")
		return tracker.Transition{}
	}
}

func (s *fakeStore) expectNone(t *testing.T) {
	t.Helper()
	select {
	case transition := <-s.applied:
		t.Fatalf("unexpected transition: %+v", transition)
	case <-time.After(50 * time.Millisecond):
	}
}

func testConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetActiveGame(config.Game{Name: "Skyrim", ExePath: "/games/skyrim/SkyrimSE.exe"})
	cfg.SetTool(config.Tool{ID: "xedit", ExePath: "/tools/xEdit.exe", Detached: true})
	return cfg
}

func TestMonitorDetectsStartAndStop(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	enum := &fakeEnumerator{}
	modules := fakeModules{
		100: {{Path: "/games/skyrim/SkyrimSE.exe"}},
	}

	m := New(cfg, store,
		WithClock(clock),
		WithEnumerator(enum),
		WithInspector(modules),
		WithSelfPID(1),
		WithFocus(func() (bool, bool) { return true, true }),
	)
	m.Start()
	defer m.Stop()

	// Nothing interesting running yet.
	enum.set([]procsnap.ProcessRecord{{PID: 1, PPID: 0, ExeFile: "modpilot"}}, nil)
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	store.expectNone(t)

	// Game appears.
	enum.set([]procsnap.ProcessRecord{
		{PID: 1, PPID: 0, ExeFile: "modpilot"},
		{PID: 100, PPID: 1, ExeFile: "SkyrimSE.exe"},
	}, nil)
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	transition := store.expectTransition(t)
	assert.Equal(t, tracker.Started("/games/skyrim/SkyrimSE.exe", 100, true), transition)

	// Steady state stays quiet.
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	store.expectNone(t)

	// Game exits.
	enum.set([]procsnap.ProcessRecord{{PID: 1, PPID: 0, ExeFile: "modpilot"}}, nil)
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	transition = store.expectTransition(t)
	assert.Equal(t, tracker.Stopped("/games/skyrim/SkyrimSE.exe"), transition)
}

func TestMonitorSurvivesEnumerationFailure(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	enum := &fakeEnumerator{}
	modules := fakeModules{100: {{Path: "/games/skyrim/SkyrimSE.exe"}}}

	m := New(cfg, store,
		WithClock(clock),
		WithEnumerator(enum),
		WithInspector(modules),
		WithSelfPID(1),
		WithFocus(func() (bool, bool) { return true, true }),
	)
	m.Start()
	defer m.Stop()

	// A fatal enumeration aborts the tick but not the monitor.
	enum.set(nil, errors.New("permission denied"))
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	store.expectNone(t)

	// Next tick recovers.
	enum.set([]procsnap.ProcessRecord{
		{PID: 100, PPID: 1, ExeFile: "SkyrimSE.exe"},
	}, nil)
	clock.BlockUntil(1)
	clock.Advance(cfg.FocusedPoll())
	transition := store.expectTransition(t)
	assert.Equal(t, tracker.KindStarted, transition.Kind)
}

func TestMonitorInertWithoutEnumerator(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	clock := clockwork.NewFakeClock()

	m := New(cfg, store, WithClock(clock))
	m.enum = nil

	// Start must not arm anything.
	m.Start()
	clock.Advance(time.Hour)
	store.expectNone(t)

	m.Stop()
}

func TestMonitorTargetsOrder(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	m := New(cfg, store, WithSelfPID(1))

	targets := m.targets()

	require.Len(t, targets, 2)
	// The active game is always first and always exclusive and detached.
	assert.Equal(t, "/games/skyrim/SkyrimSE.exe", targets[0].ExePath)
	assert.True(t, targets[0].Exclusive)
	assert.True(t, targets[0].AllowDetached)
	assert.Equal(t, "/tools/xEdit.exe", targets[1].ExePath)
	assert.False(t, targets[1].Exclusive)
}
