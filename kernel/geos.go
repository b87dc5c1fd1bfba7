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

package kernel

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// GEOS is a Kernel backed by the GEOS library. It handles every
// combination of points, lines and polygons, and returns the full point
// set of each operation: two polygons that share only an edge intersect
// in a line.
//
// Each operation runs in its own GEOS context so that operations may run
// concurrently.
type GEOS struct{}

var _ Kernel = GEOS{}

// toGEOS converts g into a geometry owned by c. The empty geometry is
// returned as nil.
func toGEOS(c *geos.Context, g geom.Geom) (*geos.Geom, error) {
	if IsEmpty(g) {
		return nil, nil
	}
	o, err := ToOrb(g)
	if err != nil {
		return nil, err
	}
	b, err := wkb.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("kernel: encoding geometry: %v", err)
	}
	return c.NewGeomFromWKB(b)
}

// fromGEOS converts g back to a geom geometry, with polygon shells
// counter-clockwise and holes clockwise. Empty parts are dropped.
func fromGEOS(g *geos.Geom) (geom.Geom, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}
	o, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("kernel: decoding geometry: %v", err)
	}
	out, err := FromOrb(orient(o))
	if err != nil {
		return nil, err
	}
	return simplest(out), nil
}

// orient winds the rings of the polygonal parts of g.
func orient(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon:
		for i, r := range g {
			if (i == 0) != (r.Orientation() == orb.CCW) {
				r.Reverse()
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			orient(p)
		}
	case orb.Collection:
		for _, c := range g {
			orient(c)
		}
	}
	return g
}

// simplest drops the empty members of a collection, unwrapping it when a
// single member remains. WKB writes an empty point as NaN coordinates.
func simplest(g geom.Geom) geom.Geom {
	if p, ok := g.(geom.Point); ok && math.IsNaN(p.X) && math.IsNaN(p.Y) {
		return nil
	}
	gc, ok := g.(geom.GeometryCollection)
	if !ok {
		if IsEmpty(g) {
			return nil
		}
		return g
	}
	var o geom.GeometryCollection
	for _, c := range gc {
		if c = simplest(c); c != nil {
			o = append(o, c)
		}
	}
	switch len(o) {
	case 0:
		return nil
	case 1:
		return o[0]
	}
	return o
}

// binary runs op on a and b. An empty operand takes the place of the
// result of applying op to an empty geometry.
func binary(name string, a, b geom.Geom, empty func(a, b geom.Geom) geom.Geom,
	op func(a, b *geos.Geom) *geos.Geom) (g geom.Geom, err error) {
	defer recoverOp(name, &err)
	if IsEmpty(a) || IsEmpty(b) {
		return simplest(empty(a, b)), nil
	}
	c := geos.NewContext()
	ga, err := toGEOS(c, a)
	if err != nil {
		return nil, fmt.Errorf("kernel: %s: %v", name, err)
	}
	defer ga.Destroy()
	gb, err := toGEOS(c, b)
	if err != nil {
		return nil, fmt.Errorf("kernel: %s: %v", name, err)
	}
	defer gb.Destroy()
	res := op(ga, gb)
	defer res.Destroy()
	return fromGEOS(res)
}

func emptyResult(a, b geom.Geom) geom.Geom { return nil }
func leftResult(a, b geom.Geom) geom.Geom { return a }

func eitherResult(a, b geom.Geom) geom.Geom {
	if IsEmpty(a) {
		return b
	}
	return a
}

// Intersection returns the point set shared by a and b.
func (GEOS) Intersection(a, b geom.Geom) (geom.Geom, error) {
	return binary("intersection", a, b, emptyResult, (*geos.Geom).Intersection)
}

// Union returns the points that are in a, b, or both.
func (GEOS) Union(a, b geom.Geom) (geom.Geom, error) {
	return binary("union", a, b, eitherResult, (*geos.Geom).Union)
}

// Difference returns the points of a that are not in b.
func (GEOS) Difference(a, b geom.Geom) (geom.Geom, error) {
	return binary("difference", a, b, leftResult, (*geos.Geom).Difference)
}

// SymDifference returns the points that are in exactly one of a and b.
func (GEOS) SymDifference(a, b geom.Geom) (geom.Geom, error) {
	return binary("symmetric difference", a, b, eitherResult, (*geos.Geom).SymDifference)
}

// IsValid reports whether g is valid in the OGC sense. The empty geometry
// is valid.
func (GEOS) IsValid(g geom.Geom) (valid bool) {
	if IsEmpty(g) {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			valid = false
		}
	}()
	c := geos.NewContext()
	gg, err := toGEOS(c, g)
	if err != nil {
		return false
	}
	defer gg.Destroy()
	return gg.IsValid()
}

// MakeValid repairs g by rebuilding it from its linework. Parts that
// collapse to a lower dimension are discarded, and a geometry that
// collapses entirely cannot be repaired.
func (GEOS) MakeValid(g geom.Geom) (out geom.Geom, err error) {
	defer recoverOp("make valid", &err)
	c := geos.NewContext()
	gg, err := toGEOS(c, g)
	if err != nil {
		return nil, fmt.Errorf("kernel: make valid: %v", err)
	}
	if gg == nil {
		return nil, fmt.Errorf("kernel: make valid: empty geometry")
	}
	defer gg.Destroy()
	if gg.IsValid() {
		return fromGEOS(gg)
	}
	fixed := gg.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
	defer fixed.Destroy()
	if fixed.IsEmpty() {
		return nil, fmt.Errorf("kernel: make valid: geometry collapsed: %s", gg.IsValidReason())
	}
	if !fixed.IsValid() {
		return nil, fmt.Errorf("kernel: make valid: %s", fixed.IsValidReason())
	}
	return fromGEOS(fixed)
}
