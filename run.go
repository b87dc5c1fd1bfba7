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
	"fmt"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay/index"
	"github.com/spatialmodel/overlay/kernel"
)

// parallel calls f(i) for every i in [0, n) on up to workers goroutines,
// each taking a strided share of the indices. It stops handing out work
// once ctx is done and returns ctx.Err().
func parallel(ctx context.Context, n, workers int, f func(i int)) error {
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for pp := 0; pp < workers; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < n; ii += workers {
				if ctx.Err() != nil {
					return
				}
				f(ii)
			}
		}(pp)
	}
	wg.Wait()
	return ctx.Err()
}

type binaryOp func(a, b geom.Geom) (geom.Geom, error)

// call runs op, converting a panic into an error.
func call(op binaryOp, a, b geom.Geom) (g geom.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panic: %v", r)
		}
	}()
	return op(a, b)
}

// piece is one raw output geometry. left and right are the contributing
// row indices, or -1.
type piece struct {
	g           geom.Geom
	left, right int
}

// Task outcomes reported to the Recorder.
const (
	statusOK     = "ok"
	statusEmpty  = "empty"
	statusFailed = "failed"
)

// engine holds the state of one overlay call.
type engine struct {
	ctx  context.Context
	mode Mode
	opts *Options
	k    kernel.Kernel
	log  logrus.FieldLogger

	// left and right are the repaired operand geometries. Empty and
	// skipped rows are nil.
	left, right []geom.Geom

	li, ri *index.Index
	cands  *index.Candidates

	warnings []Warning
	tasks    map[string]int
}

func (e *engine) warn(w Warning) { e.warnings = append(e.warnings, w) }

func (e *engine) candidates() *index.Candidates {
	if e.cands == nil {
		e.cands = index.Generate(e.li, e.ri)
		e.log.WithField("pairs", e.cands.Len()).Debug("overlay: generated candidate pairs")
	}
	return e.cands
}

// prepare returns the geometries of c, repairing invalid ones.
func (e *engine) prepare(side Side, c *Collection) ([]geom.Geom, error) {
	out := make([]geom.Geom, len(c.Rows))
	errs := make([]error, len(c.Rows))
	err := parallel(e.ctx, len(c.Rows), e.opts.Workers, func(i int) {
		g := c.Rows[i].Geom
		if kernel.IsEmpty(g) {
			return
		}
		valid, err := e.isValid(g)
		if err != nil {
			errs[i] = err
			return
		}
		if valid {
			out[i] = g
			return
		}
		out[i], errs[i] = call(func(a, _ geom.Geom) (geom.Geom, error) { return e.k.MakeValid(a) }, g, nil)
	})
	if err != nil {
		return nil, err
	}
	var failed []int
	for i, err := range errs {
		if err == nil {
			continue
		}
		if e.opts.Repair == FailFast {
			return nil, &GeometryError{Side: side, Row: i, Err: err}
		}
		out[i] = nil
		failed = append(failed, i)
	}
	if len(failed) > 0 {
		e.warn(Warning{
			Kind:  WarnRepairFailed,
			Side:  side,
			Rows:  failed,
			Count: len(failed),
			Msg:   fmt.Sprintf("skipped %d %s rows with unrepairable geometry", len(failed), side),
		})
	}
	return out, nil
}

func (e *engine) isValid(g geom.Geom) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panic: %v", r)
		}
	}()
	return e.k.IsValid(g), nil
}

// runPairs applies op to every pair. Results are in pair order.
func (e *engine) runPairs(pairs []index.Pair, op binaryOp) ([]piece, error) {
	out := make([]geom.Geom, len(pairs))
	errs := make([]error, len(pairs))
	err := parallel(e.ctx, len(pairs), e.opts.Workers, func(i int) {
		p := pairs[i]
		out[i], errs[i] = call(op, e.left[p.Left], e.right[p.Right])
	})
	if err != nil {
		return nil, err
	}
	var pieces []piece
	var failed []index.Pair
	for i, p := range pairs {
		switch {
		case errs[i] != nil:
			if e.opts.Repair == FailFast {
				pp := p
				return nil, &GeometryError{Side: Left, Row: p.Left, Pair: &pp, Err: errs[i]}
			}
			failed = append(failed, p)
			e.tasks[statusFailed]++
		case kernel.IsEmpty(out[i]):
			e.tasks[statusEmpty]++
		default:
			pieces = append(pieces, piece{g: out[i], left: p.Left, right: p.Right})
			e.tasks[statusOK]++
		}
	}
	if len(failed) > 0 {
		e.warn(Warning{
			Kind:  WarnKernelFailure,
			Pairs: failed,
			Count: len(failed),
			Msg:   fmt.Sprintf("skipped %d pairs the geometry kernel failed on", len(failed)),
		})
	}
	return pieces, nil
}

// subtract removes the union of the other input's candidates from every
// row of side. Rows without candidates pass through unchanged.
func (e *engine) subtract(side Side) ([]piece, error) {
	c := e.candidates()
	subj, other, partners := e.left, e.right, c.RightOf
	if side == Right {
		subj, other, partners = e.right, e.left, c.LeftOf
	}
	var rows []int
	for i, g := range subj {
		if g != nil {
			rows = append(rows, i)
		}
	}
	out := make([]geom.Geom, len(rows))
	errs := make([]error, len(rows))
	err := parallel(e.ctx, len(rows), e.opts.Workers, func(k int) {
		i := rows[k]
		ns := partners(i)
		if len(ns) == 0 {
			out[k] = subj[i]
			return
		}
		out[k], errs[k] = e.differenceOf(subj[i], other, ns)
	})
	if err != nil {
		return nil, err
	}
	var pieces []piece
	var failed []int
	for k, i := range rows {
		switch {
		case errs[k] != nil:
			if e.opts.Repair == FailFast {
				return nil, &GeometryError{Side: side, Row: i, Err: errs[k]}
			}
			failed = append(failed, i)
			e.tasks[statusFailed]++
		case kernel.IsEmpty(out[k]):
			e.tasks[statusEmpty]++
		default:
			p := piece{g: out[k], left: i, right: -1}
			if side == Right {
				p.left, p.right = -1, i
			}
			pieces = append(pieces, p)
			e.tasks[statusOK]++
		}
	}
	if len(failed) > 0 {
		e.warn(Warning{
			Kind:  WarnKernelFailure,
			Side:  side,
			Rows:  failed,
			Count: len(failed),
			Msg:   fmt.Sprintf("skipped %d %s rows the geometry kernel failed on", len(failed), side),
		})
	}
	return pieces, nil
}

// differenceOf subtracts the union of other[ns] from g.
func (e *engine) differenceOf(g geom.Geom, other []geom.Geom, ns []int) (geom.Geom, error) {
	var cover geom.Geom
	for _, j := range ns {
		if other[j] == nil {
			continue
		}
		if cover == nil {
			cover = other[j]
			continue
		}
		u, err := call(e.k.Union, cover, other[j])
		if err != nil {
			return nil, err
		}
		cover = u
	}
	if cover == nil {
		return g, nil
	}
	return call(e.k.Difference, g, cover)
}
