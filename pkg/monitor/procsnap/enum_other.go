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

//go:build !linux && !windows && !darwin

package procsnap

// NewEnumerator reports that no enumerator exists for this platform. The
// monitor stays inert in that case.
func NewEnumerator() (Enumerator, error) {
	return nil, ErrUnsupported
}

// NewInspector reports that no module inspector exists for this platform.
func NewInspector() (Inspector, error) {
	return nil, ErrUnsupported
}
