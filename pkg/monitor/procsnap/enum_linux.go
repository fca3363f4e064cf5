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

//go:build linux

package procsnap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
)

// NewEnumerator returns the filesystem-based enumerator reading /proc.
func NewEnumerator() (Enumerator, error) {
	return NewProcfsEnumerator("/proc"), nil
}

// NewInspector returns the /proc-based module inspector.
func NewInspector() (Inspector, error) {
	return NewProcfsInspector("/proc"), nil
}

// NewProcfsEnumerator creates an enumerator reading a custom proc root.
// This allows testing with mock filesystems.
func NewProcfsEnumerator(procRoot string) Enumerator {
	return &procfsEnumerator{root: procRoot}
}

// NewProcfsInspector creates a module inspector reading a custom proc root.
func NewProcfsInspector(procRoot string) Inspector {
	return &procfsInspector{root: procRoot}
}

type procfsEnumerator struct {
	root string
}

// ListProcesses walks the numeric entries of the proc root and parses each
// stat file. A single entry vanishing mid-walk is the normal exit race and
// just drops that record; any other read failure aborts the whole listing.
func (e *procfsEnumerator) ListProcesses() (*Snapshot, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("read proc directory: %w", err)
	}

	records := make([]ProcessRecord, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}

		statPath := filepath.Join(e.root, entry.Name(), "stat")
		data, err := os.ReadFile(statPath) //nolint:gosec // G304: proc root is controlled
		if err != nil {
			if processVanished(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", statPath, err)
		}

		comm, ppid, err := parseStat(string(data))
		if err != nil {
			log.Debug().Err(err).Int("pid", pid).Msg("skipping unparseable stat entry")
			continue
		}

		records = append(records, ProcessRecord{PID: pid, PPID: ppid, ExeFile: comm})
	}

	return NewSnapshot(records), nil
}

// processVanished reports whether err means the process exited between
// listing and reading its details.
func processVanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ESRCH)
}

// parseStat extracts the executable name and parent pid from a
// /proc/<pid>/stat line. The name sits inside parentheses and may itself
// contain spaces and parentheses, so it is bounded by the first opening and
// the last closing paren per proc(5). The ppid is the second field after the
// closing paren (state comes first).
func parseStat(stat string) (comm string, ppid int, err error) {
	open := strings.IndexByte(stat, '(')
	closing := strings.LastIndexByte(stat, ')')
	if open < 0 || closing < 0 || closing < open {
		return "", 0, fmt.Errorf("malformed stat line: %q", stat)
	}

	comm = stat[open+1 : closing]

	fields := strings.Fields(stat[closing+1:])
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("stat line too short after comm: %q", stat)
	}

	ppid, err = strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("parse ppid: %w", err)
	}

	return comm, ppid, nil
}

type procfsInspector struct {
	root string
}

// ListModules resolves the main image from the exe symlink and appends the
// remaining file-backed mappings from the maps file. Permission errors and
// vanished processes yield an empty list.
func (i *procfsInspector) ListModules(pid int) []Module {
	pidDir := filepath.Join(i.root, strconv.Itoa(pid))

	exe, err := os.Readlink(filepath.Join(pidDir, "exe"))
	if err != nil || exe == "" {
		return nil
	}

	modules := []Module{{Path: exe}}
	seen := map[string]struct{}{exe: {}}

	mapsData, err := os.ReadFile(filepath.Join(pidDir, "maps")) //nolint:gosec // G304: proc root is controlled
	if err != nil {
		// Main image alone is still a usable answer.
		return modules
	}

	for _, line := range strings.Split(string(mapsData), "\n") {
		idx := strings.IndexByte(line, '/')
		if idx < 0 {
			continue
		}
		path := line[idx:]
		if strings.HasSuffix(path, " (deleted)") {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		modules = append(modules, Module{Path: path})
	}

	return modules
}
