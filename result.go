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

// Origin says which inputs contributed to an output row.
type Origin int

// These are the origins of an output row.
const (
	FromLeft Origin = iota
	FromRight
	FromBoth
)

func (o Origin) String() string {
	switch o {
	case FromLeft:
		return "left"
	case FromRight:
		return "right"
	}
	return "both"
}

// Provenance holds the input rows an output row was computed from. An
// absent side is -1.
type Provenance struct {
	Left, Right int
}

// Origin returns which inputs contributed.
func (p Provenance) Origin() Origin {
	switch {
	case p.Right < 0:
		return FromLeft
	case p.Left < 0:
		return FromRight
	}
	return FromBoth
}

// Result is the output of an overlay. Rows are ordered by mode block and,
// within a block, by left row and then right row.
type Result struct {
	*Collection

	// Provenance[i] is the provenance of Rows[i].
	Provenance []Provenance

	Warnings []Warning
}
