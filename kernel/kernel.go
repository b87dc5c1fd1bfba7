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

// Package kernel holds the planar geometry operations used by the overlay
// engine: pairwise boolean operations, type and family introspection, and
// validity checking and repair.
//
// Geometries are github.com/ctessum/geom values. A nil geom.Geom represents
// the empty geometry; operations whose result has no points, lines or area
// return nil.
//
// GEOS implements Kernel on the GEOS library, which requires cgo. Planar
// runs polygon operations in pure Go and hands the rest to another Kernel.
package kernel

import (
	"fmt"
	"reflect"

	"github.com/ctessum/geom"
)

// Kernel is the set of pairwise operations the overlay engine needs.
// Implementations must be safe for concurrent use and must not modify
// their arguments.
type Kernel interface {
	Intersection(a, b geom.Geom) (geom.Geom, error)
	Union(a, b geom.Geom) (geom.Geom, error)
	Difference(a, b geom.Geom) (geom.Geom, error)
	SymDifference(a, b geom.Geom) (geom.Geom, error)

	// IsValid reports whether g can be used as an operand without repair.
	IsValid(g geom.Geom) bool

	// MakeValid returns a valid geometry covering the same point set as g,
	// or an error if g cannot be repaired.
	MakeValid(g geom.Geom) (geom.Geom, error)
}

// Type is a geometry type tag.
type Type int

// These are the supported geometry types.
const (
	TypeUnknown Type = iota
	TypePoint
	TypeMultiPoint
	TypeLineString
	TypeMultiLineString
	TypeLinearRing
	TypePolygon
	TypeMultiPolygon
	TypeGeometryCollection
)

var typeNames = map[Type]string{
	TypeUnknown:            "Unknown",
	TypePoint:              "Point",
	TypeMultiPoint:         "MultiPoint",
	TypeLineString:         "LineString",
	TypeMultiLineString:    "MultiLineString",
	TypeLinearRing:         "LinearRing",
	TypePolygon:            "Polygon",
	TypeMultiPolygon:       "MultiPolygon",
	TypeGeometryCollection: "GeometryCollection",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Family groups a geometry type with its multi-part variants.
type Family int

// These are the geometry families. FamilyNone is the family of the empty
// geometry and FamilyMixed the family of a collection whose parts do not
// share a family.
const (
	FamilyNone Family = iota
	FamilyPoint
	FamilyLine
	FamilyPolygon
	FamilyMixed
)

func (f Family) String() string {
	switch f {
	case FamilyNone:
		return "none"
	case FamilyPoint:
		return "point"
	case FamilyLine:
		return "line"
	case FamilyPolygon:
		return "polygon"
	case FamilyMixed:
		return "mixed"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Family returns the family that t belongs to. Collections have no
// family of their own; use FamilyOf for those.
func (t Type) Family() Family {
	switch t {
	case TypePoint, TypeMultiPoint:
		return FamilyPoint
	case TypeLineString, TypeMultiLineString, TypeLinearRing:
		return FamilyLine
	case TypePolygon, TypeMultiPolygon:
		return FamilyPolygon
	}
	return FamilyNone
}

// TypeOf returns the type tag of g.
func TypeOf(g geom.Geom) Type {
	switch g.(type) {
	case geom.Point, *geom.Point:
		return TypePoint
	case geom.MultiPoint:
		return TypeMultiPoint
	case geom.LineString:
		return TypeLineString
	case geom.MultiLineString:
		return TypeMultiLineString
	case geom.Polygon:
		return TypePolygon
	case geom.MultiPolygon:
		return TypeMultiPolygon
	case geom.GeometryCollection:
		return TypeGeometryCollection
	}
	return TypeUnknown
}

// FamilyOf returns the family of g. Empty geometries are FamilyNone, and
// collections take the family of their non-empty parts, or FamilyMixed if
// the parts disagree.
func FamilyOf(g geom.Geom) Family {
	if IsEmpty(g) {
		return FamilyNone
	}
	t := TypeOf(g)
	if t != TypeGeometryCollection {
		return t.Family()
	}
	f := FamilyNone
	for _, p := range Decompose(g) {
		pf := FamilyOf(p)
		switch {
		case pf == FamilyNone:
		case f == FamilyNone:
			f = pf
		case f != pf:
			return FamilyMixed
		}
	}
	return f
}

// Decompose flattens g into its non-collection parts. Nested collections
// are flattened recursively; empty parts are dropped. A geometry that is
// not a collection is returned as the only element.
func Decompose(g geom.Geom) []geom.Geom {
	if g == nil {
		return nil
	}
	gc, ok := g.(geom.GeometryCollection)
	if !ok {
		if IsEmpty(g) {
			return nil
		}
		return []geom.Geom{g}
	}
	var o []geom.Geom
	for _, p := range gc {
		o = append(o, Decompose(p)...)
	}
	return o
}

// IsEmpty reports whether g has no points.
func IsEmpty(g geom.Geom) bool {
	if g == nil {
		return true
	}
	if v := reflect.ValueOf(g); v.Kind() == reflect.Ptr && v.IsNil() {
		return true
	}
	switch t := g.(type) {
	case geom.MultiPoint:
		return len(t) == 0
	case geom.LineString:
		return len(t) == 0
	case geom.MultiLineString:
		for _, l := range t {
			if len(l) > 0 {
				return false
			}
		}
		return true
	case geom.Polygon:
		for _, r := range t {
			if len(r) > 0 {
				return false
			}
		}
		return true
	case geom.MultiPolygon:
		for _, p := range t {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case geom.GeometryCollection:
		for _, p := range t {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	}
	return false
}

// BoundsIntersect reports whether two bounding boxes share at least one
// point. Touching boxes intersect. Empty boxes intersect nothing.
func BoundsIntersect(a, b *geom.Bounds) bool {
	if a == nil || b == nil || a.Empty() || b.Empty() {
		return false
	}
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

// Bounds returns the bounding box of g, or nil if g is empty.
func Bounds(g geom.Geom) *geom.Bounds {
	if IsEmpty(g) {
		return nil
	}
	if gc, ok := g.(geom.GeometryCollection); ok {
		b := geom.NewBounds()
		for _, p := range Decompose(gc) {
			b.Extend(p.Bounds())
		}
		return b
	}
	return g.Bounds()
}

// Area returns the total area of the polygonal parts of g.
func Area(g geom.Geom) float64 {
	var a float64
	for _, p := range Decompose(g) {
		if pg, ok := p.(geom.Polygonal); ok {
			a += pg.Area()
		}
	}
	return a
}
