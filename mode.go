/*
Copyright © 2024 the InMAP authors.
This file is part of overlay.

overlay is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

overlay is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with overlay.  If not, see <http://www.gnu.org/licenses/>.
*/

package overlay

import "fmt"

// Mode is an overlay set operation.
type Mode int

// These are the overlay modes.
const (
	// Intersection keeps the area shared by a left and a right row.
	Intersection Mode = iota
	// Union keeps the area covered by either input, split into pieces
	// attributed to a pair, to a left row only, or to a right row only.
	Union
	// Difference keeps the area of each left row not covered by the right
	// input.
	Difference
	// SymmetricDifference keeps the area covered by exactly one input.
	SymmetricDifference
	// Identity keeps the area of the left input, split where it is
	// covered by the right input.
	Identity
)

var modeNames = []string{
	Intersection:        "intersection",
	Union:               "union",
	Difference:          "difference",
	SymmetricDifference: "symmetric_difference",
	Identity:            "identity",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the mode called s.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown overlay mode %q", ErrInvalidArgument, s)
}

func (m Mode) valid() bool { return m >= 0 && int(m) < len(modeNames) }
