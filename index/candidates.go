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

package index

import (
	"sort"

	"github.com/spatialmodel/overlay/kernel"
)

// Pair is a left and right geometry position whose bounding boxes
// intersect.
type Pair struct {
	Left, Right int
}

// Candidates is the set of pairs two indexes may overlap on, along with
// the positions that have no partner.
type Candidates struct {
	// Pairs is sorted by Left, then by Right.
	Pairs []Pair

	// UnmatchedLeft and UnmatchedRight are the sorted positions of
	// non-empty geometries that appear in no pair.
	UnmatchedLeft, UnmatchedRight []int

	rightOf map[int][]int
	leftOf  map[int][]int
}

// Generate queries right with the bounding box of every geometry in left.
func Generate(left, right *Index) *Candidates {
	c := &Candidates{
		rightOf: make(map[int][]int),
		leftOf:  make(map[int][]int),
	}
	matchedRight := make(map[int]bool)
	for i, b := range left.bounds {
		if b == nil {
			continue
		}
		var js []int
		for _, j := range right.Query(b) {
			// The tree may return boxes that only touch within rounding.
			if kernel.BoundsIntersect(b, right.bounds[j]) {
				js = append(js, j)
			}
		}
		if len(js) == 0 {
			c.UnmatchedLeft = append(c.UnmatchedLeft, i)
			continue
		}
		c.rightOf[i] = js
		for _, j := range js {
			c.Pairs = append(c.Pairs, Pair{Left: i, Right: j})
			c.leftOf[j] = append(c.leftOf[j], i)
			matchedRight[j] = true
		}
	}
	for j, b := range right.bounds {
		if b != nil && !matchedRight[j] {
			c.UnmatchedRight = append(c.UnmatchedRight, j)
		}
	}
	sort.Slice(c.Pairs, func(a, b int) bool {
		if c.Pairs[a].Left != c.Pairs[b].Left {
			return c.Pairs[a].Left < c.Pairs[b].Left
		}
		return c.Pairs[a].Right < c.Pairs[b].Right
	})
	return c
}

// RightOf returns the sorted right positions paired with left position i.
func (c *Candidates) RightOf(i int) []int { return c.rightOf[i] }

// LeftOf returns the sorted left positions paired with right position j.
func (c *Candidates) LeftOf(j int) []int { return c.leftOf[j] }

// Len returns the number of pairs.
func (c *Candidates) Len() int { return len(c.Pairs) }
