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

import "github.com/spatialmodel/overlay/kernel"

// modeFunc computes the raw pieces of one mode.
type modeFunc func(e *engine) ([]piece, error)

var modes = map[Mode]modeFunc{
	Intersection:        (*engine).intersection,
	Union:               (*engine).union,
	Difference:          (*engine).difference,
	SymmetricDifference: (*engine).symmetricDifference,
	Identity:            (*engine).identity,
}

// intersection returns one piece per candidate pair that shares points.
func (e *engine) intersection() ([]piece, error) {
	if !kernel.BoundsIntersect(e.li.Total(), e.ri.Total()) {
		return nil, nil
	}
	return e.runPairs(e.candidates().Pairs, e.k.Intersection)
}

// difference returns what is left of every left row.
func (e *engine) difference() ([]piece, error) {
	return e.subtract(Left)
}

// symmetricDifference returns what is left of every left row followed by
// what is left of every right row.
func (e *engine) symmetricDifference() ([]piece, error) {
	l, err := e.subtract(Left)
	if err != nil {
		return nil, err
	}
	r, err := e.subtract(Right)
	if err != nil {
		return nil, err
	}
	return append(l, r...), nil
}

// union returns the intersection pieces followed by the symmetric
// difference pieces, so that every point of either input is covered once.
func (e *engine) union() ([]piece, error) {
	i, err := e.intersection()
	if err != nil {
		return nil, err
	}
	s, err := e.symmetricDifference()
	if err != nil {
		return nil, err
	}
	return append(i, s...), nil
}

// identity is union without the pieces that belong to the right input
// only.
func (e *engine) identity() ([]piece, error) {
	i, err := e.intersection()
	if err != nil {
		return nil, err
	}
	l, err := e.subtract(Left)
	if err != nil {
		return nil, err
	}
	return append(i, l...), nil
}
