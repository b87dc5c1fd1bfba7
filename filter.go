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

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/overlay/kernel"
)

// dominantFamily returns the most common family among the parts of gs.
// Ties go to the family seen first.
func dominantFamily(gs []geom.Geom) kernel.Family {
	count := make(map[kernel.Family]int)
	var order []kernel.Family
	for _, g := range gs {
		for _, p := range kernel.Decompose(g) {
			f := kernel.FamilyOf(p)
			if f == kernel.FamilyNone {
				continue
			}
			if count[f] == 0 {
				order = append(order, f)
			}
			count[f]++
		}
	}
	best := kernel.FamilyNone
	for _, f := range order {
		if count[f] > count[best] {
			best = f
		}
	}
	return best
}

// filterFamily keeps the pieces of the target family. Collections are
// split into their parts, each matching part becoming its own piece.
func (e *engine) filterFamily(pieces []piece, target kernel.Family) []piece {
	var out []piece
	dropped := 0
	for _, p := range pieces {
		if kernel.TypeOf(p.g) == kernel.TypeGeometryCollection {
			for _, part := range kernel.Decompose(p.g) {
				if kernel.FamilyOf(part) == target {
					out = append(out, piece{g: part, left: p.left, right: p.right})
				} else {
					dropped++
				}
			}
			continue
		}
		if kernel.FamilyOf(p.g) == target {
			out = append(out, p)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		e.warn(Warning{
			Kind:  WarnGeomTypeDropped,
			Count: dropped,
			Msg:   fmt.Sprintf("dropped %d geometries not in the %s family", dropped, target),
		})
	}
	return out
}
