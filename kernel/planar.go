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
)

// DefaultTolerance is the relative tolerance used when Planar.Tolerance is
// zero.
const DefaultTolerance = 1e-9

// Planar is a Kernel for Cartesian coordinates that runs polygon boolean
// operations in pure Go with the polygon clipper in github.com/ctessum/geom.
// Operations on points or lines, validity checks and repair are handed to
// Fallback, as is the intersection of polygons that touch without
// overlapping, whose result is their shared boundary.
type Planar struct {
	// Tolerance is the distance, relative to the extent of the operands,
	// below which two vertices of a result ring are merged. Result rings
	// with an area below Tolerance times the area of the operands' extent
	// are dropped.
	Tolerance float64

	// Fallback handles what the clipper cannot. The default is GEOS.
	Fallback Kernel
}

var _ Kernel = Planar{}

func (k Planar) fallback() Kernel {
	if k.Fallback == nil {
		return GEOS{}
	}
	return k.Fallback
}

// rings returns the rings of a purely polygonal geometry, read with the
// even-odd rule. ok is false if g has point or line parts.
func rings(g geom.Geom) (r geom.Polygon, ok bool) {
	for _, p := range Decompose(g) {
		switch t := p.(type) {
		case geom.Polygon:
			r = append(r, t...)
		case geom.MultiPolygon:
			for _, poly := range t {
				r = append(r, poly...)
			}
		default:
			return nil, false
		}
	}
	return r, true
}

// tolerances returns the vertex and area tolerances for operands with
// bounds b. They scale with the extent of b only, so that translating the
// operands does not change which result rings survive.
func (k Planar) tolerances(b *geom.Bounds) (dist, area float64) {
	rel := k.Tolerance
	if rel <= 0 {
		rel = DefaultTolerance
	}
	if b.Empty() {
		return 0, 0
	}
	w, h := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y
	return rel * math.Max(w, h), rel * w * h
}

// recoverOp converts a panic in a geometry library into an error.
func recoverOp(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("kernel: %s: %v", op, r)
	}
}

type clipOp int

const (
	clipIntersection clipOp = iota
	clipUnion
	clipDifference
	clipXOr
)

// clip runs a polygon boolean operation, skipping the clipper when the
// operands cannot interact.
func clip(a, b geom.Polygon, op clipOp) geom.Polygon {
	if len(b) == 0 || !BoundsIntersect(a.Bounds(), b.Bounds()) {
		switch op {
		case clipIntersection:
			return nil
		case clipDifference:
			return a
		default:
			o := make(geom.Polygon, 0, len(a)+len(b))
			o = append(o, a...)
			return append(o, b...)
		}
	}
	if len(a) == 0 {
		switch op {
		case clipUnion, clipXOr:
			return b
		}
		return nil
	}
	switch op {
	case clipIntersection:
		return a.Intersection(b)
	case clipUnion:
		return a.Union(b)
	case clipDifference:
		return a.Difference(b)
	default:
		return a.XOr(b)
	}
}

// cleanRing merges consecutive vertices closer than dist and returns the
// open ring, or nil if fewer than three vertices or no more than area
// remain.
func cleanRing(r []geom.Point, dist, area float64) []geom.Point {
	var o []geom.Point
	for _, p := range r {
		if n := len(o); n > 0 && math.Hypot(p.X-o[n-1].X, p.Y-o[n-1].Y) <= dist {
			continue
		}
		o = append(o, p)
	}
	for len(o) > 1 && math.Hypot(o[0].X-o[len(o)-1].X, o[0].Y-o[len(o)-1].Y) <= dist {
		o = o[:len(o)-1]
	}
	if len(o) < 3 || (geom.Polygon{o}).Area() <= area {
		return nil
	}
	return o
}

// polygonal runs op on two polygonal operands and assembles the result.
func (k Planar) polygonal(name string, ra, rb geom.Polygon, op clipOp) (g geom.Geom, err error) {
	defer recoverOp(name, &err)
	b := ra.Bounds()
	if len(ra) == 0 {
		b = rb.Bounds()
	} else if len(rb) > 0 {
		b.Extend(rb.Bounds())
	}
	dist, area := k.tolerances(b)
	var out geom.Polygon
	for _, r := range clip(ra, rb, op) {
		if c := cleanRing(r, dist, area); c != nil {
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		o := orb.Ring(toOrbPath(out[0]))
		if o.Orientation() != orb.CCW {
			o.Reverse()
		}
		return geom.Polygon{geom.Path(fromOrbPath(append(o, o[0])))}, nil
	}
	// The clipper returns a flat list of rings; the fallback nests them
	// into shells and holes.
	return k.fallback().MakeValid(out)
}

// Intersection returns the point set shared by a and b.
func (k Planar) Intersection(a, b geom.Geom) (geom.Geom, error) {
	ra, okA := rings(a)
	rb, okB := rings(b)
	if !okA || !okB {
		return k.fallback().Intersection(a, b)
	}
	g, err := k.polygonal("intersection", ra, rb, clipIntersection)
	if err == nil && g == nil && len(ra) > 0 && len(rb) > 0 && BoundsIntersect(ra.Bounds(), rb.Bounds()) {
		// No areal overlap, but the boundaries may still meet.
		return k.fallback().Intersection(a, b)
	}
	return g, err
}

// Union returns the points that are in a, b, or both.
func (k Planar) Union(a, b geom.Geom) (geom.Geom, error) {
	ra, okA := rings(a)
	rb, okB := rings(b)
	if !okA || !okB {
		return k.fallback().Union(a, b)
	}
	return k.polygonal("union", ra, rb, clipUnion)
}

// Difference returns the points of a that are not in b.
func (k Planar) Difference(a, b geom.Geom) (geom.Geom, error) {
	ra, okA := rings(a)
	rb, okB := rings(b)
	if !okA || !okB {
		return k.fallback().Difference(a, b)
	}
	return k.polygonal("difference", ra, rb, clipDifference)
}

// SymDifference returns the points that are in exactly one of a and b.
func (k Planar) SymDifference(a, b geom.Geom) (geom.Geom, error) {
	ra, okA := rings(a)
	rb, okB := rings(b)
	if !okA || !okB {
		return k.fallback().SymDifference(a, b)
	}
	return k.polygonal("symmetric difference", ra, rb, clipXOr)
}

// IsValid reports whether g is valid according to the fallback kernel.
func (k Planar) IsValid(g geom.Geom) bool { return k.fallback().IsValid(g) }

// MakeValid repairs g with the fallback kernel.
func (k Planar) MakeValid(g geom.Geom) (geom.Geom, error) { return k.fallback().MakeValid(g) }
