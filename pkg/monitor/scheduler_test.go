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
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFocusedPeriod   = 2 * time.Second
	testUnfocusedPeriod = 5 * time.Second
)

type schedulerHarness struct {
	clock   *clockwork.FakeClock
	sched   *PollScheduler
	checks  chan struct{}
	mu      sync.Mutex
	focused bool
	hasWin  bool
}

func newSchedulerHarness(t *testing.T) *schedulerHarness {
	t.Helper()

	h := &schedulerHarness{
		clock:   clockwork.NewFakeClock(),
		checks:  make(chan struct{}, 16),
		focused: true,
		hasWin:  true,
	}
	h.sched = NewPollScheduler(
		h.clock,
		func() { h.checks <- struct{}{} },
		h.focus,
		func() (time.Duration, time.Duration) { return testFocusedPeriod, testUnfocusedPeriod },
	)
	t.Cleanup(h.sched.Stop)
	return h
}

// focus is read from the scheduler's timer goroutine, so the fields behind it
// are mutex-guarded.
func (h *schedulerHarness) focus() (focused, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focused, h.hasWin
}

func (h *schedulerHarness) setFocus(focused, hasWin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = focused
	h.hasWin = hasWin
}

// expectCheck waits for one check to run.
func (h *schedulerHarness) expectCheck(t *testing.T) {
	t.Helper()
	select {
	case <-h.checks:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a check to run")
	}
}

// expectNoCheck asserts no check runs within a short real-time window.
func (h *schedulerHarness) expectNoCheck(t *testing.T) {
	t.Helper()
	select {
	case <-h.checks:
		t.Fatal("unexpected check")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollSchedulerTicks(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	h.sched.Start()

	h.clock.BlockUntil(1)
	h.clock.Advance(testFocusedPeriod)
	h.expectCheck(t)

	// Re-armed only after the check returned.
	h.clock.BlockUntil(1)
	h.clock.Advance(testFocusedPeriod)
	h.expectCheck(t)
}

func TestPollSchedulerStartIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	h.sched.Start()
	h.sched.Start()

	h.clock.BlockUntil(1)
	h.clock.Advance(testFocusedPeriod)

	// Exactly one pending tick, not two.
	h.expectCheck(t)
	h.expectNoCheck(t)
}

func TestPollSchedulerStop(t *testing.T) {
	t.Parallel()

	t.Run("cancels_pending_tick", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.sched.Start()
		h.clock.BlockUntil(1)

		h.sched.Stop()
		h.clock.Advance(10 * testFocusedPeriod)

		h.expectNoCheck(t)
	})

	t.Run("idempotent_when_idle", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.sched.Stop()
		h.sched.Stop()

		h.clock.Advance(10 * testFocusedPeriod)
		h.expectNoCheck(t)
	})

	t.Run("restart_after_stop", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.sched.Start()
		h.clock.BlockUntil(1)
		h.sched.Stop()

		h.sched.Start()
		h.clock.BlockUntil(1)
		h.clock.Advance(testFocusedPeriod)

		h.expectCheck(t)
	})
}

func TestPollSchedulerPeriodSelection(t *testing.T) {
	t.Parallel()

	t.Run("unfocused_uses_longer_period", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.setFocus(false, true)
		h.sched.Start()
		h.clock.BlockUntil(1)

		// The focused period elapses with no tick: the scheduled period is
		// strictly greater than the focused baseline.
		h.clock.Advance(testFocusedPeriod)
		h.expectNoCheck(t)

		h.clock.Advance(testUnfocusedPeriod - testFocusedPeriod)
		h.expectCheck(t)
	})

	t.Run("missing_focus_info_treated_as_focused", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.setFocus(false, false)
		h.sched.Start()
		h.clock.BlockUntil(1)

		h.clock.Advance(testFocusedPeriod)
		h.expectCheck(t)
	})

	t.Run("period_follows_focus_changes", func(t *testing.T) {
		t.Parallel()

		h := newSchedulerHarness(t)
		h.sched.Start()
		h.clock.BlockUntil(1)
		h.clock.Advance(testFocusedPeriod)
		h.expectCheck(t)

		// Focus lost before the re-arm decision of the next tick.
		h.setFocus(false, true)
		h.clock.BlockUntil(1)
		h.clock.Advance(testUnfocusedPeriod)
		h.expectCheck(t)
	})
}

func TestPollSchedulerNoOverlap(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	clock := clockwork.NewFakeClock()

	sched := NewPollScheduler(
		clock,
		func() {
			started <- struct{}{}
			<-release
		},
		func() (bool, bool) { return true, true },
		func() (time.Duration, time.Duration) { return testFocusedPeriod, testUnfocusedPeriod },
	)
	defer sched.Stop()

	sched.Start()
	clock.BlockUntil(1)
	clock.Advance(testFocusedPeriod)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected first check to start")
	}

	// While the check is still executing nothing is armed, so advancing the
	// clock cannot start a second check.
	clock.Advance(10 * testFocusedPeriod)
	select {
	case <-started:
		t.Fatal("second check started while first still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	clock.BlockUntil(1)
	clock.Advance(testFocusedPeriod)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected second check after first completed")
	}
}

func TestNextPeriodValues(t *testing.T) {
	t.Parallel()

	focused := true
	hasWin := true
	sched := NewPollScheduler(
		clockwork.NewFakeClock(),
		func() {},
		func() (bool, bool) { return focused, hasWin },
		func() (time.Duration, time.Duration) { return testFocusedPeriod, testUnfocusedPeriod },
	)

	assert.Equal(t, testFocusedPeriod, sched.nextPeriod())

	focused = false
	require.Greater(t, sched.nextPeriod(), testFocusedPeriod)
	assert.Equal(t, testUnfocusedPeriod, sched.nextPeriod())

	hasWin = false
	assert.Equal(t, testFocusedPeriod, sched.nextPeriod())
}
