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

package tracker

// Target is one executable the monitor watches for: the active game or a
// discovered auxiliary tool. Targets are supplied fresh for each check and
// not cached beyond it.
type Target struct {
	// ExePath is the configured full path of the executable.
	ExePath string
	// Exclusive marks the sole authoritative running instance for the path.
	// Always true for the active game.
	Exclusive bool
	// AllowDetached accepts matches that are not descendants of the host
	// process, for tools launched outside the host application. Always true
	// for the active game.
	AllowDetached bool
}

// Running is what the host state store records for a tracked executable.
type Running struct {
	PID       int
	Exclusive bool
}

// KnownState mirrors the host state store's current view of running
// executables, keyed by configured executable path. The tracker only reads
// it; updates flow back through transitions.
type KnownState map[string]Running

// Kind discriminates transition variants.
type Kind int

const (
	// KindStarted records a newly confirmed running process.
	KindStarted Kind = iota
	// KindStopped clears a previously recorded running process.
	KindStopped
)

func (k Kind) String() string {
	if k == KindStarted {
		return "started"
	}
	return "stopped"
}

// Transition is one observed start or stop of a tracked executable. At most
// one transition per target is produced by a single check.
type Transition struct {
	Path      string
	Kind      Kind
	PID       int
	Exclusive bool
}

// Started builds a start transition for path confirmed running as pid.
func Started(path string, pid int, exclusive bool) Transition {
	return Transition{Path: path, Kind: KindStarted, PID: pid, Exclusive: exclusive}
}

// Stopped builds a stop transition for path.
func Stopped(path string) Transition {
	return Transition{Path: path, Kind: KindStopped}
}
