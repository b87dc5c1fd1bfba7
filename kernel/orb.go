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

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
)

// FromOrb converts an orb geometry to its geom equivalent. A nil
// geometry is the empty geometry.
func FromOrb(g orb.Geometry) (geom.Geom, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return geom.Point{X: g[0], Y: g[1]}, nil
	case orb.MultiPoint:
		o := make(geom.MultiPoint, len(g))
		for i, p := range g {
			o[i] = geom.Point{X: p[0], Y: p[1]}
		}
		return o, nil
	case orb.LineString:
		return fromOrbPath(g), nil
	case orb.MultiLineString:
		o := make(geom.MultiLineString, len(g))
		for i, l := range g {
			o[i] = fromOrbPath(l)
		}
		return o, nil
	case orb.Ring:
		return geom.Polygon{geom.Path(fromOrbPath(g))}, nil
	case orb.Polygon:
		return fromOrbPolygon(g), nil
	case orb.MultiPolygon:
		o := make(geom.MultiPolygon, len(g))
		for i, p := range g {
			o[i] = fromOrbPolygon(p)
		}
		return o, nil
	case orb.Bound:
		return fromOrbPolygon(g.ToPolygon()), nil
	case orb.Collection:
		o := make(geom.GeometryCollection, 0, len(g))
		for _, p := range g {
			pg, err := FromOrb(p)
			if err != nil {
				return nil, err
			}
			if pg != nil {
				o = append(o, pg)
			}
		}
		return o, nil
	}
	return nil, fmt.Errorf("kernel: unsupported orb geometry %T", g)
}

func fromOrbPath(l []orb.Point) geom.LineString {
	o := make(geom.LineString, len(l))
	for i, p := range l {
		o[i] = geom.Point{X: p[0], Y: p[1]}
	}
	return o
}

func fromOrbPolygon(p orb.Polygon) geom.Polygon {
	o := make(geom.Polygon, len(p))
	for i, r := range p {
		o[i] = geom.Path(fromOrbPath(r))
	}
	return o
}

// ToOrb converts g to an orb geometry. The empty geometry becomes an
// empty geometry collection.
func ToOrb(g geom.Geom) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return orb.Collection{}, nil
	case geom.Point:
		return orb.Point{g.X, g.Y}, nil
	case *geom.Point:
		if g == nil {
			return orb.Collection{}, nil
		}
		return orb.Point{g.X, g.Y}, nil
	case geom.MultiPoint:
		return orb.MultiPoint(toOrbPath(g)), nil
	case geom.LineString:
		return orb.LineString(toOrbPath(g)), nil
	case geom.MultiLineString:
		o := make(orb.MultiLineString, len(g))
		for i, l := range g {
			o[i] = orb.LineString(toOrbPath(l))
		}
		return o, nil
	case geom.Polygon:
		return toOrbPolygon(g), nil
	case geom.MultiPolygon:
		o := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			o[i] = toOrbPolygon(p)
		}
		return o, nil
	case geom.GeometryCollection:
		o := make(orb.Collection, len(g))
		for i, p := range g {
			op, err := ToOrb(p)
			if err != nil {
				return nil, err
			}
			o[i] = op
		}
		return o, nil
	}
	return nil, fmt.Errorf("kernel: unsupported geometry type %T", g)
}

func toOrbPath(l []geom.Point) []orb.Point {
	o := make([]orb.Point, len(l))
	for i, p := range l {
		o[i] = orb.Point{p.X, p.Y}
	}
	return o
}

// toOrbPolygon converts the rings of p, closing any that are open.
func toOrbPolygon(p geom.Polygon) orb.Polygon {
	o := make(orb.Polygon, 0, len(p))
	for _, r := range p {
		if len(r) == 0 {
			continue
		}
		ring := orb.Ring(toOrbPath(r))
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		o = append(o, ring)
	}
	return o
}
