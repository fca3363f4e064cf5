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
	"time"

	"github.com/ModPilotProject/modpilot-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type schedulerState int

const (
	schedulerIdle schedulerState = iota
	schedulerActive
)

// FocusFunc reports whether the host window has input focus. ok is false when
// no window-system information is available, which schedules as if focused.
type FocusFunc func() (focused, ok bool)

// PollScheduler owns the single repeating check timer. The period for each
// tick is chosen after the previous check completes: the focused interval
// when the host window has focus or focus is unknowable, the longer
// unfocused interval otherwise. A new tick is only armed once the previous
// check has returned, so checks never overlap.
type PollScheduler struct {
	clock     clockwork.Clock
	check     func()
	focused   FocusFunc
	intervals func() (focusedPeriod, unfocusedPeriod time.Duration)
	timer     clockwork.Timer
	state     schedulerState
	mu        syncutil.Mutex
}

// NewPollScheduler creates an idle scheduler. intervals is consulted on every
// re-arm so config edits take effect without a restart.
func NewPollScheduler(
	clock clockwork.Clock,
	check func(),
	focused FocusFunc,
	intervals func() (focusedPeriod, unfocusedPeriod time.Duration),
) *PollScheduler {
	return &PollScheduler{
		clock:     clock,
		check:     check,
		focused:   focused,
		intervals: intervals,
	}
}

// Start arms the first tick. Calling Start while already active is a no-op,
// so at most one tick is ever pending. Any stray timer left behind by a prior
// stop is cleared before arming.
func (s *PollScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == schedulerActive {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = schedulerActive
	s.armLocked()
	log.Debug().Msg("poll scheduler started")
}

// Stop cancels the pending tick. Idempotent when already idle. Stopping
// between checks is instantaneous: only the timer state is touched.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == schedulerIdle {
		return
	}
	s.state = schedulerIdle
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	log.Debug().Msg("poll scheduler stopped")
}

// fire runs one tick. Re-arming happens only after the check returns, and
// only if no stop raced the timer.
func (s *PollScheduler) fire() {
	s.mu.Lock()
	if s.state != schedulerActive {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.check()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != schedulerActive {
		return
	}
	s.armLocked()
}

func (s *PollScheduler) armLocked() {
	s.timer = s.clock.AfterFunc(s.nextPeriod(), s.fire)
}

// nextPeriod reads window focus once per scheduling decision.
func (s *PollScheduler) nextPeriod() time.Duration {
	focusedPeriod, unfocusedPeriod := s.intervals()
	if focused, ok := s.focused(); !ok || focused {
		return focusedPeriod
	}
	return unfocusedPeriod
}
