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

// Package tracker decides which tracked executables started or stopped
// between the host state store's view and a fresh process snapshot.
package tracker

import (
	"github.com/ModPilotProject/modpilot-core/pkg/monitor/procsnap"
	"github.com/rs/zerolog/log"
)

// Tracker is the per-check decision engine. It holds no state across checks:
// targets, known state and snapshot are all supplied per call, so Check is a
// pure function of its inputs plus module inspection.
type Tracker struct {
	inspector procsnap.Inspector
	selfPID   int
}

// New creates a Tracker. selfPID is the host process pid, used as the
// ancestry root for targets that do not allow detached matches.
func New(inspector procsnap.Inspector, selfPID int) *Tracker {
	return &Tracker{inspector: inspector, selfPID: selfPID}
}

// Check compares each target against the snapshot and reports the start and
// stop transitions the state store should apply. Targets are evaluated in the
// given order; callers put the active game first. No transition is produced
// more than once for the same observed process identity.
func (t *Tracker) Check(targets []Target, known KnownState, snap *procsnap.Snapshot) []Transition {
	var transitions []Transition
	for _, target := range targets {
		if tr, ok := t.checkTarget(target, known, snap); ok {
			transitions = append(transitions, tr)
		}
	}
	return transitions
}

func (t *Tracker) checkTarget(target Target, known KnownState, snap *procsnap.Snapshot) (Transition, bool) {
	candidates := snap.Candidates(procsnap.ExeKey(target.ExePath))
	prior, hasPrior := known[target.ExePath]

	if len(candidates) == 0 {
		if hasPrior {
			log.Debug().Str("path", target.ExePath).Int("pid", prior.PID).
				Msg("tracked executable no longer present")
			return Stopped(target.ExePath), true
		}
		return Transition{}, false
	}

	// Steady state: the recorded pid is still alive, nothing changed. This
	// is the common case and skips all module inspection.
	if hasPrior {
		if _, alive := snap.ByPID[prior.PID]; alive {
			return Transition{}, false
		}
	}

	for _, candidate := range t.filterByAncestry(target, candidates, snap) {
		modules := t.inspector.ListModules(candidate.PID)
		if len(modules) == 0 {
			// Inconclusive: vanished or not inspectable, not confirmed.
			continue
		}
		if procsnap.SamePath(modules[0].Path, target.ExePath) {
			log.Info().Str("path", target.ExePath).Int("pid", candidate.PID).
				Bool("exclusive", target.Exclusive).Msg("tracked executable started")
			return Started(target.ExePath, candidate.PID, target.Exclusive), true
		}
	}

	// Same-named processes exist but none is confirmably ours. If something
	// was recorded before, it is gone.
	if hasPrior {
		log.Debug().Str("path", target.ExePath).Int("pid", prior.PID).
			Msg("tracked process gone with no confirmable replacement")
		return Stopped(target.ExePath), true
	}
	return Transition{}, false
}

// filterByAncestry keeps only descendants of the host process unless the
// target accepts detached matches.
func (t *Tracker) filterByAncestry(
	target Target, candidates []procsnap.ProcessRecord, snap *procsnap.Snapshot,
) []procsnap.ProcessRecord {
	if target.AllowDetached {
		return candidates
	}
	kept := make([]procsnap.ProcessRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if snap.IsDescendantOf(candidate, t.selfPID) {
			kept = append(kept, candidate)
		}
	}
	return kept
}
