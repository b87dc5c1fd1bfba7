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

// Package index provides the bounding-box spatial index used to find the
// pairs of geometries an overlay must consider.
package index

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/spatialmodel/overlay/kernel"
)

// item is an indexed geometry. Its bounds are computed once, when it is
// indexed.
type item struct {
	geom.Geom
	i int
	b *geom.Bounds
}

// Bounds overrides the bounds of the embedded geometry.
func (it *item) Bounds() *geom.Bounds { return it.b }

// Index holds the bounding boxes of a sequence of geometries. Empty
// geometries are not indexed and never match a query.
type Index struct {
	tree   *rtree.Rtree
	bounds []*geom.Bounds // bounds[i] is nil if geometry i is empty
	total  *geom.Bounds
	n      int
}

// Build indexes geometries by their position in gs.
func Build(gs []geom.Geom) *Index {
	x := &Index{
		tree:   rtree.NewTree(25, 50),
		bounds: make([]*geom.Bounds, len(gs)),
		total:  geom.NewBounds(),
	}
	for i, g := range gs {
		b := kernel.Bounds(g)
		if b == nil || b.Empty() {
			continue
		}
		x.bounds[i] = b
		x.total.Extend(b)
		x.tree.Insert(&item{Geom: g, i: i, b: b})
		x.n++
	}
	return x
}

// Len returns the number of indexed geometries.
func (x *Index) Len() int { return x.n }

// Size returns the number of geometries the index was built from,
// including empty ones.
func (x *Index) Size() int { return len(x.bounds) }

// Bounds returns the bounding box of geometry i, or nil if it is empty.
func (x *Index) Bounds(i int) *geom.Bounds { return x.bounds[i] }

// Total returns the bounding box of all indexed geometries, or nil if
// none were indexed.
func (x *Index) Total() *geom.Bounds {
	if x.n == 0 {
		return nil
	}
	return x.total
}

// Query returns, in increasing order, the positions of the geometries
// whose bounding boxes intersect b. Boxes that touch intersect.
func (x *Index) Query(b *geom.Bounds) []int {
	if b == nil || b.Empty() || x.n == 0 {
		return nil
	}
	found := x.tree.SearchIntersect(b)
	o := make([]int, 0, len(found))
	for _, s := range found {
		o = append(o, s.(*item).i)
	}
	sort.Ints(o)
	return o
}
