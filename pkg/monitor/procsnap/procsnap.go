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

// Package procsnap captures point-in-time snapshots of the OS process table
// and answers ancestry queries over them. Platform support is provided by one
// Enumerator/Inspector implementation per OS, selected at build time.
package procsnap

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned by NewEnumerator and NewInspector on platforms
// with no process enumeration support. Callers treat it as a configuration
// fact, not a failure.
var ErrUnsupported = errors.New("process enumeration not supported on this platform")

// NoParentPID is the parent pid reported for processes with no parent.
const NoParentPID = 0

// ProcessRecord is one process as seen at enumeration time. Records are
// immutable snapshot values; a fresh set is produced on every enumeration.
type ProcessRecord struct {
	ExeFile string
	PID     int
	PPID    int
}

// Module is one loaded executable or library image of a process.
type Module struct {
	Path string
}

// Enumerator lists all processes visible to the current user.
type Enumerator interface {
	// ListProcesses returns a full snapshot of the process table. It fails
	// only on unrecoverable I/O errors, not on the normal race where a
	// process exits mid-enumeration.
	ListProcesses() (*Snapshot, error)
}

// Inspector lists the loaded modules of a single process.
type Inspector interface {
	// ListModules returns the modules of pid, main image first. A vanished
	// process or missing permissions yield an empty list, not an error.
	ListModules(pid int) []Module
}

// Snapshot is the full process table captured at one instant, with lookup
// indices derived once at construction. Snapshots are built fresh for each
// poll tick and discarded after the tick's decisions are made.
type Snapshot struct {
	ByPID map[int]ProcessRecord
	ByExe map[string][]ProcessRecord
}

// NewSnapshot builds a Snapshot from enumerated records. Duplicate pids
// should not occur; if they do, the last record wins in ByPID.
func NewSnapshot(records []ProcessRecord) *Snapshot {
	s := &Snapshot{
		ByPID: make(map[int]ProcessRecord, len(records)),
		ByExe: make(map[string][]ProcessRecord, len(records)),
	}
	for _, rec := range records {
		s.ByPID[rec.PID] = rec
		key := strings.ToLower(rec.ExeFile)
		s.ByExe[key] = append(s.ByExe[key], rec)
	}
	return s
}

// Candidates returns the processes whose executable name matches key, as
// produced by ExeKey. The returned slice is shared with the snapshot and must
// not be modified.
func (s *Snapshot) Candidates(key string) []ProcessRecord {
	return s.ByExe[key]
}

// IsDescendantOf reports whether candidate was spawned, directly or
// transitively, by rootPID. The walk keeps a visited set of parent pids so it
// terminates even when the OS reports cyclic ancestry, which has been
// observed in the wild. Malformed chains are never an error: they simply
// resolve to false.
func (s *Snapshot) IsDescendantOf(candidate ProcessRecord, rootPID int) bool {
	visited := make(map[int]struct{})
	cur := candidate
	for {
		parent := cur.PPID
		if parent == NoParentPID {
			return false
		}
		if _, seen := visited[parent]; seen {
			// Cycle in the parent chain.
			return false
		}
		visited[parent] = struct{}{}
		if parent == rootPID {
			return true
		}
		next, ok := s.ByPID[parent]
		if !ok {
			return false
		}
		cur = next
	}
}

// ExeKey normalizes a full executable path to the key used by ByExe: the
// lower-cased file name. Both path separator conventions are handled since
// configured tool paths may be Windows-style even on other platforms.
func ExeKey(path string) string {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// SamePath compares two executable paths case-insensitively, the filesystem
// convention for every platform the monitored games ship on.
func SamePath(a, b string) bool {
	return strings.EqualFold(a, b)
}
