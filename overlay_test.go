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
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"github.com/spatialmodel/overlay/index"
	"github.com/spatialmodel/overlay/kernel"
	"gonum.org/v1/gonum/floats"
)

const testTolerance = 1.e-9

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

// collection returns a collection with one Int column called name whose
// value in row i is i+1.
func collection(name string, gs ...geom.Geom) *Collection {
	c := NewCollection("", Schema{{Name: name, Type: Int}})
	for i, g := range gs {
		if err := c.Add(g, int64(i+1)); err != nil {
			panic(err)
		}
	}
	return c
}

func twoSquares() (*Collection, *Collection) {
	return collection("df1", square(0, 0, 2, 2)), collection("df2", square(1, 1, 3, 3))
}

func totalArea(r *Result) float64 {
	var a float64
	for _, row := range r.Rows {
		a += kernel.Area(row.Geom)
	}
	return a
}

func run(t *testing.T, left, right *Collection, how Mode, opts *Options) *Result {
	t.Helper()
	r, err := Overlay(context.Background(), left, right, how, opts)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestIntersection(t *testing.T) {
	left, right := twoSquares()
	r := run(t, left, right, Intersection, nil)
	if r.Len() != 1 {
		t.Fatalf("want 1 row, have %d", r.Len())
	}
	want := square(1, 1, 2, 2)
	if !r.Rows[0].Geom.Similar(want, testTolerance) {
		t.Errorf("geometry %v != %v", r.Rows[0].Geom, want)
	}
	if diff := pretty.Diff(r.Schema.Names(), []string{"df1", "df2"}); len(diff) != 0 {
		t.Errorf("schema: %v", diff)
	}
	if diff := pretty.Diff(r.Rows[0].Attrs, []interface{}{int64(1), int64(1)}); len(diff) != 0 {
		t.Errorf("attributes: %v", diff)
	}
	if diff := pretty.Diff(r.Provenance, []Provenance{{Left: 0, Right: 0}}); len(diff) != 0 {
		t.Errorf("provenance: %v", diff)
	}
	if r.Provenance[0].Origin() != FromBoth {
		t.Errorf("origin %v", r.Provenance[0].Origin())
	}
	if r.GeometryColumn != DefaultGeometryColumn {
		t.Errorf("geometry column %q", r.GeometryColumn)
	}
}

func TestDifference(t *testing.T) {
	left, right := twoSquares()
	r := run(t, left, right, Difference, nil)
	if r.Len() != 1 {
		t.Fatalf("want 1 row, have %d", r.Len())
	}
	if a := totalArea(r); !floats.EqualWithinAbs(a, 3, testTolerance) {
		t.Errorf("area %g != 3", a)
	}
	if diff := pretty.Diff(r.Schema.Names(), []string{"df1"}); len(diff) != 0 {
		t.Errorf("schema: %v", diff)
	}
	if diff := pretty.Diff(r.Rows[0].Attrs, []interface{}{int64(1)}); len(diff) != 0 {
		t.Errorf("attributes: %v", diff)
	}
	if r.Provenance[0].Origin() != FromLeft {
		t.Errorf("origin %v", r.Provenance[0].Origin())
	}
}

func TestModes(t *testing.T) {
	tests := []struct {
		how     Mode
		area    float64
		origins []Origin
	}{
		{how: Intersection, area: 1, origins: []Origin{FromBoth}},
		{how: Union, area: 7, origins: []Origin{FromBoth, FromLeft, FromRight}},
		{how: Difference, area: 3, origins: []Origin{FromLeft}},
		{how: SymmetricDifference, area: 6, origins: []Origin{FromLeft, FromRight}},
		{how: Identity, area: 4, origins: []Origin{FromBoth, FromLeft}},
	}
	for _, test := range tests {
		t.Run(test.how.String(), func(t *testing.T) {
			left, right := twoSquares()
			r := run(t, left, right, test.how, nil)
			if a := totalArea(r); !floats.EqualWithinAbs(a, test.area, testTolerance) {
				t.Errorf("area %g != %g", a, test.area)
			}
			var origins []Origin
			for _, p := range r.Provenance {
				origins = append(origins, p.Origin())
			}
			if diff := pretty.Diff(origins, test.origins); len(diff) != 0 {
				t.Errorf("origins: %v", diff)
			}
			// Attributes follow provenance.
			for i, p := range r.Provenance {
				for c, s := range r.Schema {
					v := r.Rows[i].Attrs[c]
					var want interface{}
					switch {
					case s.Name == "df1" && p.Left >= 0:
						want = left.Rows[p.Left].Attrs[0]
					case s.Name == "df2" && p.Right >= 0:
						want = right.Rows[p.Right].Attrs[0]
					}
					if v != want {
						t.Errorf("row %d column %s: %v != %v", i, s.Name, v, want)
					}
				}
			}
		})
	}
}

// grid returns n×n unit squares offset by off.
func grid(name string, n int, off float64) *Collection {
	var gs []geom.Geom
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x, y := float64(i)+off, float64(j)+off
			gs = append(gs, square(x, y, x+1, y+1))
		}
	}
	return collection(name, gs...)
}

func TestSetProperties(t *testing.T) {
	left, right := grid("a", 3, 0), grid("b", 3, 0.5)
	area := func(how Mode) float64 { return totalArea(run(t, left, right, how, nil)) }
	inter, union, symdiff, diff := area(Intersection), area(Union), area(SymmetricDifference), area(Difference)
	// Each grid covers 9; they overlap on a 2.5×2.5 square.
	if !floats.EqualWithinAbs(inter, 6.25, 1e-6) {
		t.Errorf("intersection area %g != 6.25", inter)
	}
	if !floats.EqualWithinAbs(union, 18-6.25, 1e-6) {
		t.Errorf("union area %g != %g", union, 18-6.25)
	}
	if !floats.EqualWithinAbs(inter+symdiff, union, 1e-6) {
		t.Errorf("intersection + symmetric difference %g != union %g", inter+symdiff, union)
	}
	if !floats.EqualWithinAbs(diff+inter, 9, 1e-6) {
		t.Errorf("difference + intersection %g != left %g", diff+inter, 9.)
	}
}

func TestOffsetCoordinates(t *testing.T) {
	offsets := []struct {
		name    string
		x, y, s float64
	}{
		{name: "utm", x: 500000, y: 4000000, s: 5},
		{name: "lonlat", x: -93.2, y: 44.9, s: 0.001},
	}
	kernels := []struct {
		name string
		k    kernel.Kernel
	}{
		{name: "geos", k: kernel.GEOS{}},
		{name: "planar", k: kernel.Planar{}},
	}
	for _, kt := range kernels {
		for _, off := range offsets {
			for _, keep := range []bool{true, false} {
				t.Run(fmt.Sprintf("%s/%s/keep=%v", kt.name, off.name, keep), func(t *testing.T) {
					x, y, s := off.x, off.y, off.s
					left := collection("df1", square(x, y, x+2*s, y+2*s))
					right := collection("df2", square(x+s, y+s, x+3*s, y+3*s))
					opts := DefaultOptions()
					opts.Kernel = kt.k
					opts.KeepGeomType = keep
					area := make(map[Mode]float64)
					for _, test := range []struct {
						how  Mode
						area float64
						rows int
					}{
						{how: Intersection, area: 1, rows: 1},
						{how: Union, area: 7, rows: 3},
						{how: Difference, area: 3, rows: 1},
						{how: SymmetricDifference, area: 6, rows: 2},
						{how: Identity, area: 4, rows: 2},
					} {
						r := run(t, left, right, test.how, opts)
						if r.Len() != test.rows {
							t.Errorf("%v: want %d rows, have %d", test.how, test.rows, r.Len())
						}
						for i, row := range r.Rows {
							if f := kernel.FamilyOf(row.Geom); f != kernel.FamilyPolygon {
								t.Errorf("%v row %d: family %v", test.how, i, f)
							}
						}
						area[test.how] = totalArea(r)
						if want := test.area * s * s; !floats.EqualWithinRel(area[test.how], want, 1e-6) {
							t.Errorf("%v: area %g != %g", test.how, area[test.how], want)
						}
					}
					if have, want := area[Intersection]+area[SymmetricDifference], area[Union]; !floats.EqualWithinRel(have, want, 1e-6) {
						t.Errorf("intersection + symmetric difference %g != union %g", have, want)
					}
					if have, want := area[Difference]+area[Intersection], kernel.Area(left.Rows[0].Geom); !floats.EqualWithinRel(have, want, 1e-6) {
						t.Errorf("difference + intersection %g != left %g", have, want)
					}
				})
			}
		}
	}
}

func TestSchemaStable(t *testing.T) {
	left, right := twoSquares()
	want := []string{"df1", "df2"}
	for _, how := range []Mode{Intersection, Union, SymmetricDifference, Identity} {
		r := run(t, left, right, how, nil)
		if diff := pretty.Diff(r.Schema.Names(), want); len(diff) != 0 {
			t.Errorf("%v: %v", how, diff)
		}
	}
}

func TestSharedEdge(t *testing.T) {
	left := collection("df1", square(0, 0, 1, 1))
	right := collection("df2", square(1, 0, 2, 1))

	r := run(t, left, right, Intersection, nil)
	if r.Len() != 0 {
		t.Errorf("keep geometry type: want no rows, have %d", r.Len())
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Kind != WarnGeomTypeDropped {
		t.Errorf("warnings: %v", r.Warnings)
	}

	opts := DefaultOptions()
	opts.KeepGeomType = false
	r = run(t, left, right, Intersection, opts)
	if r.Len() != 1 {
		t.Fatalf("want 1 row, have %d", r.Len())
	}
	if f := kernel.FamilyOf(r.Rows[0].Geom); f != kernel.FamilyLine {
		t.Errorf("family %v != line", f)
	}
}

func TestDisjoint(t *testing.T) {
	left := collection("df1", square(0, 0, 1, 1))
	right := collection("df2", square(5, 5, 6, 6))
	r := run(t, left, right, Intersection, nil)
	if r.Len() != 0 {
		t.Errorf("want no rows, have %d", r.Len())
	}
	if diff := pretty.Diff(r.Schema.Names(), []string{"df1", "df2"}); len(diff) != 0 {
		t.Errorf("schema: %v", diff)
	}
	r = run(t, left, right, Union, nil)
	if r.Len() != 2 {
		t.Errorf("union: want 2 rows, have %d", r.Len())
	}
}

func TestEmptyInputs(t *testing.T) {
	left := collection("df1")
	right := collection("df2", square(0, 0, 1, 1), nil, geom.Polygon{})
	r := run(t, left, right, Union, nil)
	if r.Len() != 1 {
		t.Errorf("want 1 row, have %d", r.Len())
	}
	if p := r.Provenance[0]; p.Origin() != FromRight || p.Right != 0 {
		t.Errorf("provenance %v", p)
	}
}

func TestSuffixes(t *testing.T) {
	left := NewCollection("", Schema{{Name: "name", Type: String}, {Name: "a", Type: Float}})
	left.Add(square(0, 0, 2, 2), "l", 1.5)
	right := NewCollection("", Schema{{Name: "name", Type: String}, {Name: "b", Type: Bool}})
	right.Add(square(1, 1, 3, 3), "r", true)

	r := run(t, left, right, Intersection, nil)
	if diff := pretty.Diff(r.Schema.Names(), []string{"name_1", "a", "name_2", "b"}); len(diff) != 0 {
		t.Errorf("schema: %v", diff)
	}
	if diff := pretty.Diff(r.Rows[0].Attrs, []interface{}{"l", 1.5, "r", true}); len(diff) != 0 {
		t.Errorf("attributes: %v", diff)
	}

	opts := DefaultOptions()
	opts.Suffixes = [2]string{"_left", "_right"}
	r = run(t, left, right, Intersection, opts)
	if diff := pretty.Diff(r.Schema.Names(), []string{"name_left", "a", "name_right", "b"}); len(diff) != 0 {
		t.Errorf("custom suffixes: %v", diff)
	}

	opts.Suffixes = [2]string{"_x", "_x"}
	if _, err := Overlay(context.Background(), left, right, Intersection, opts); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("identical suffixes: %v", err)
	}
}

func TestSchemaConflict(t *testing.T) {
	left := NewCollection("", Schema{{Name: "name", Type: String}, {Name: "name_1", Type: String}})
	left.Add(square(0, 0, 1, 1), "a", "b")
	right := NewCollection("", Schema{{Name: "name", Type: String}})
	right.Add(square(0, 0, 1, 1), "c")
	_, err := Overlay(context.Background(), left, right, Union, nil)
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("want schema conflict, have %v", err)
	}
	// Difference does not join the right columns.
	if _, err := Overlay(context.Background(), left, right, Difference, nil); err != nil {
		t.Errorf("difference: %v", err)
	}
}

func TestInvalidArguments(t *testing.T) {
	left, right := twoSquares()
	if _, err := ParseMode("erase"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("parse mode: %v", err)
	}
	for _, name := range []string{"union", "intersection", "difference", "symmetric_difference", "identity"} {
		m, err := ParseMode(name)
		if err != nil {
			t.Error(err)
		} else if m.String() != name {
			t.Errorf("%s round trips to %s", name, m)
		}
	}
	tests := []struct {
		name        string
		left, right *Collection
		how         Mode
	}{
		{name: "mode", left: left, right: right, how: Mode(99)},
		{name: "nil", left: nil, right: right, how: Union},
		{name: "geometry column", left: NewCollection("", Schema{{Name: "geometry", Type: String}}), right: right, how: Union},
		{name: "attribute type", left: &Collection{Schema: Schema{{Name: "x", Type: Int}},
			Rows: []Row{{Geom: square(0, 0, 1, 1), Attrs: []interface{}{"one"}}}}, right: right, how: Union},
		{name: "attribute count", left: &Collection{Schema: Schema{{Name: "x", Type: Int}},
			Rows: []Row{{Geom: square(0, 0, 1, 1)}}}, right: right, how: Union},
		{name: "geometry type", left: &Collection{Rows: []Row{{Geom: &geom.Bounds{}}}}, right: right, how: Union},
	}
	for _, test := range tests {
		if _, err := Overlay(context.Background(), test.left, test.right, test.how, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: want invalid argument, have %v", test.name, err)
		}
	}
	if err := left.Add(square(0, 0, 1, 1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("add: %v", err)
	}
}

func TestCRS(t *testing.T) {
	left, right := twoSquares()
	left.CRS = "+proj=longlat +datum=WGS84 +no_defs"
	r := run(t, left, right, Intersection, nil)
	if r.CRS != left.CRS {
		t.Errorf("crs %q", r.CRS)
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Kind != WarnCRSUnset || r.Warnings[0].Side != Right {
		t.Errorf("warnings: %v", r.Warnings)
	}

	right.CRS = left.CRS
	if r = run(t, left, right, Intersection, nil); len(r.Warnings) != 0 {
		t.Errorf("matching crs warnings: %v", r.Warnings)
	}

	right.CRS = "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"
	if _, err := Overlay(context.Background(), left, right, Intersection, nil); !errors.Is(err, ErrCRSMismatch) {
		t.Errorf("want crs mismatch, have %v", err)
	}
}

func TestRepair(t *testing.T) {
	bowtie := geom.Polygon{{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: 0}}}
	flat := geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 0}}}
	left := collection("df1", bowtie, flat)
	right := collection("df2", square(0, 0, 2, 2))

	r := run(t, left, right, Intersection, nil)
	if r.Len() != 1 {
		t.Fatalf("want 1 row, have %d", r.Len())
	}
	if a := totalArea(r); !floats.EqualWithinAbs(a, 2, testTolerance) {
		t.Errorf("area %g != 2", a)
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("warnings: %v", r.Warnings)
	}
	w := r.Warnings[0]
	if w.Kind != WarnRepairFailed || w.Side != Left {
		t.Errorf("warning %v", w)
	}
	if diff := pretty.Diff(w.Rows, []int{1}); len(diff) != 0 {
		t.Errorf("warning rows: %v", diff)
	}

	opts := DefaultOptions()
	opts.Repair = FailFast
	_, err := Overlay(context.Background(), left, right, Intersection, opts)
	var gerr *GeometryError
	if !errors.As(err, &gerr) {
		t.Fatalf("want geometry error, have %v", err)
	}
	if gerr.Side != Left || gerr.Row != 1 {
		t.Errorf("geometry error %v", gerr)
	}
}

// failingKernel fails every intersection involving a right geometry with
// a minimum x of 10.
type failingKernel struct {
	kernel.GEOS
}

func (k failingKernel) Intersection(a, b geom.Geom) (geom.Geom, error) {
	if b.Bounds().Min.X == 10 {
		return nil, fmt.Errorf("failing kernel")
	}
	if b.Bounds().Min.X == 20 {
		panic("panicking kernel")
	}
	return k.GEOS.Intersection(a, b)
}

func TestKernelFailure(t *testing.T) {
	left := collection("df1", square(0, 0, 30, 30))
	right := collection("df2", square(1, 1, 2, 2), square(10, 10, 11, 11), square(20, 20, 21, 21))
	opts := DefaultOptions()
	opts.Kernel = failingKernel{}
	r := run(t, left, right, Intersection, opts)
	if r.Len() != 1 {
		t.Errorf("want 1 row, have %d", r.Len())
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Kind != WarnKernelFailure {
		t.Fatalf("warnings: %v", r.Warnings)
	}
	if diff := pretty.Diff(r.Warnings[0].Pairs, []index.Pair{{Left: 0, Right: 1}, {Left: 0, Right: 2}}); len(diff) != 0 {
		t.Errorf("failed pairs: %v", diff)
	}

	opts.Repair = FailFast
	_, err := Overlay(context.Background(), left, right, Intersection, opts)
	var gerr *GeometryError
	if !errors.As(err, &gerr) || gerr.Pair == nil || *gerr.Pair != (index.Pair{Left: 0, Right: 1}) {
		t.Errorf("want geometry error for pair (0, 1), have %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	left, right := grid("a", 6, 0), grid("b", 6, 0.3)
	var results []*Result
	for _, workers := range []int{1, 3, 8} {
		opts := DefaultOptions()
		opts.Workers = workers
		results = append(results, run(t, left, right, Union, opts))
	}
	for i := 1; i < len(results); i++ {
		if diff := pretty.Diff(results[0].Provenance, results[i].Provenance); len(diff) != 0 {
			t.Errorf("provenance differs: %v", diff)
		}
		if diff := pretty.Diff(results[0].Rows, results[i].Rows); len(diff) != 0 {
			t.Errorf("rows differ: %v", diff)
		}
	}
	// Pieces of each block are ordered by left, then right.
	prov := results[0].Provenance
	for i := 1; i < len(prov); i++ {
		a, b := prov[i-1], prov[i]
		if a.Origin() == b.Origin() && (a.Left > b.Left || a.Left == b.Left && a.Right > b.Right) {
			t.Errorf("rows %d and %d out of order: %v, %v", i-1, i, a, b)
		}
	}
}

func TestCanceled(t *testing.T) {
	left, right := twoSquares()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Overlay(ctx, left, right, Union, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("want canceled, have %v", err)
	}
}

type recorder struct {
	overlays int
	rows     int
	tasks    map[string]int
}

func (r *recorder) ObserveOverlay(mode string, d time.Duration, rows int) {
	r.overlays++
	r.rows += rows
}

func (r *recorder) AddTasks(mode, status string, n int) {
	r.tasks[status] += n
}

func TestMetrics(t *testing.T) {
	left := collection("df1", square(0, 0, 2, 2))
	right := collection("df2", square(1, 1, 3, 3), square(2, -1, 3, 0))
	rec := &recorder{tasks: make(map[string]int)}
	opts := DefaultOptions()
	opts.Metrics = rec
	run(t, left, right, Intersection, opts)
	if rec.overlays != 1 || rec.rows != 1 {
		t.Errorf("overlays %d, rows %d", rec.overlays, rec.rows)
	}
	// The second right square touches the left one at a corner only.
	if diff := pretty.Diff(rec.tasks, map[string]int{"ok": 2}); len(diff) != 0 {
		t.Errorf("tasks: %v", diff)
	}
}

func TestDominantFamily(t *testing.T) {
	tests := []struct {
		gs   []geom.Geom
		want kernel.Family
	}{
		{gs: nil, want: kernel.FamilyNone},
		{gs: []geom.Geom{geom.Point{}, square(0, 0, 1, 1), square(0, 0, 1, 1)}, want: kernel.FamilyPolygon},
		{gs: []geom.Geom{geom.LineString{{}, {X: 1}}, square(0, 0, 1, 1)}, want: kernel.FamilyLine},
		{gs: []geom.Geom{geom.GeometryCollection{geom.Point{}, geom.Point{X: 1}}, square(0, 0, 1, 1)}, want: kernel.FamilyPoint},
	}
	for i, test := range tests {
		if f := dominantFamily(test.gs); f != test.want {
			t.Errorf("%d: %v != %v", i, f, test.want)
		}
	}
}

func TestLines(t *testing.T) {
	left := collection("road", geom.LineString{{X: -1, Y: 0.5}, {X: 3, Y: 0.5}})
	right := collection("zone", square(0, 0, 1, 1), square(2, 0, 3, 1))
	r := run(t, left, right, Intersection, nil)
	if r.Len() != 2 {
		t.Fatalf("want 2 rows, have %d", r.Len())
	}
	var length float64
	for _, row := range r.Rows {
		l, ok := row.Geom.(geom.LineString)
		if !ok {
			t.Fatalf("want LineString, have %T", row.Geom)
		}
		length += l.Length()
	}
	if math.Abs(length-2) > testTolerance {
		t.Errorf("length %g != 2", length)
	}
	r = run(t, left, right, Difference, nil)
	if r.Len() != 1 || kernel.TypeOf(r.Rows[0].Geom) != kernel.TypeMultiLineString {
		t.Errorf("difference: %v", r.Rows)
	}
}
