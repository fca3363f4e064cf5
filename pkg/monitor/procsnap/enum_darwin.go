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

//go:build darwin

package procsnap

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// NewEnumerator returns the native enumerator backed by gopsutil.
func NewEnumerator() (Enumerator, error) {
	return &psutilEnumerator{}, nil
}

// NewInspector returns the gopsutil-backed module inspector. macOS offers no
// cheap module listing, so only the main image is reported.
func NewInspector() (Inspector, error) {
	return &psutilInspector{}, nil
}

type psutilEnumerator struct{}

func (*psutilEnumerator) ListProcesses() (*Snapshot, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	records := make([]ProcessRecord, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			// Exited mid-enumeration or not inspectable by this user.
			continue
		}
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		records = append(records, ProcessRecord{
			PID:     int(p.Pid),
			PPID:    int(ppid),
			ExeFile: name,
		})
	}

	return NewSnapshot(records), nil
}

type psutilInspector struct{}

func (*psutilInspector) ListModules(pid int) []Module {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // G115: pids fit in int32
	if err != nil {
		return nil
	}
	exe, err := p.Exe()
	if err != nil || exe == "" {
		return nil
	}
	return []Module{{Path: exe}}
}
