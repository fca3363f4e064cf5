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

//go:build windows

package procsnap

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

// NewEnumerator returns the native Toolhelp32 snapshot enumerator.
func NewEnumerator() (Enumerator, error) {
	return &toolhelpEnumerator{}, nil
}

// NewInspector returns the Toolhelp32 module inspector.
func NewInspector() (Inspector, error) {
	return &toolhelpInspector{}, nil
}

type toolhelpEnumerator struct{}

// ListProcesses takes one Toolhelp32 process snapshot, which yields
// ready-made records: pid, parent pid and executable file name.
func (*toolhelpEnumerator) ListProcesses() (*Snapshot, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("create process snapshot: %w", err)
	}
	defer func() {
		if err := windows.CloseHandle(snap); err != nil {
			log.Warn().Err(err).Msg("closing process snapshot handle")
		}
	}()

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	records := make([]ProcessRecord, 0, 256)

	err = windows.Process32First(snap, &entry)
	for err == nil {
		records = append(records, ProcessRecord{
			PID:     int(entry.ProcessID),
			PPID:    int(entry.ParentProcessID),
			ExeFile: windows.UTF16ToString(entry.ExeFile[:]),
		})
		err = windows.Process32Next(snap, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("walk process snapshot: %w", err)
	}

	return NewSnapshot(records), nil
}

type toolhelpInspector struct{}

// ListModules snapshots the module list of pid. The first entry is the main
// image. Access denied and vanished processes both come back as errors from
// the snapshot call and yield an empty list.
func (*toolhelpInspector) ListModules(pid int) []Module {
	snap, err := windows.CreateToolhelp32Snapshot(
		windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("module snapshot unavailable")
		return nil
	}
	defer func() {
		if err := windows.CloseHandle(snap); err != nil {
			log.Warn().Err(err).Msg("closing module snapshot handle")
		}
	}()

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var modules []Module

	err = windows.Module32First(snap, &entry)
	for err == nil {
		modules = append(modules, Module{Path: windows.UTF16ToString(entry.ExePath[:])})
		err = windows.Module32Next(snap, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		log.Debug().Err(err).Int("pid", pid).Msg("module snapshot walk ended early")
	}

	return modules
}
