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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay/index"
	"github.com/spatialmodel/overlay/kernel"
)

// Overlay combines left and right under mode how. The result takes the
// geometry column name of left and the CRS of whichever input declares
// one. opts may be nil, meaning DefaultOptions().
//
// Every mode but Difference joins the columns of both inputs, suffixing
// names they share. Difference returns the left columns only.
//
// Structural problems with the inputs are reported before any geometry is
// processed, as errors wrapping ErrInvalidArgument, ErrSchemaConflict or
// ErrCRSMismatch. Geometry failures on individual rows or pairs are
// handled according to opts.Repair.
func Overlay(ctx context.Context, left, right *Collection, how Mode, opts *Options) (*Result, error) {
	start := time.Now()
	if !how.valid() {
		return nil, fmt.Errorf("%w: unknown overlay mode %v", ErrInvalidArgument, how)
	}
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	crs, warnings, err := validate(left, right)
	if err != nil {
		return nil, err
	}
	schema, src, err := joinSchema(left, right, how, o.Suffixes)
	if err != nil {
		return nil, err
	}

	e := &engine{
		ctx:      ctx,
		mode:     how,
		opts:     o,
		k:        o.Kernel,
		warnings: warnings,
		tasks:    make(map[string]int),
		log: o.Log.WithFields(logrus.Fields{
			"mode":       how.String(),
			"left_rows":  left.Len(),
			"right_rows": right.Len(),
		}),
	}
	if e.left, err = e.prepare(Left, left); err != nil {
		return nil, err
	}
	if e.right, err = e.prepare(Right, right); err != nil {
		return nil, err
	}
	e.li, e.ri = index.Build(e.left), index.Build(e.right)
	e.log.Debug("overlay: indexed inputs")

	pieces, err := modes[how](e)
	if err != nil {
		return nil, err
	}
	if o.KeepGeomType {
		target := dominantFamily(e.left)
		if target == kernel.FamilyNone {
			target = dominantFamily(e.right)
		}
		pieces = e.filterFamily(pieces, target)
	}
	res := assemble(left, right, crs, schema, src, pieces)
	res.Warnings = e.warnings
	for _, w := range res.Warnings {
		w.log(e.log)
	}
	if o.Metrics != nil {
		for _, status := range []string{statusOK, statusEmpty, statusFailed} {
			if n := e.tasks[status]; n > 0 {
				o.Metrics.AddTasks(how.String(), status, n)
			}
		}
		o.Metrics.ObserveOverlay(how.String(), time.Since(start), res.Len())
	}
	e.log.WithFields(logrus.Fields{
		"rows":     res.Len(),
		"duration": time.Since(start),
	}).Debug("overlay: finished")
	return res, nil
}

// Overlay combines c with right. See the Overlay function.
func (c *Collection) Overlay(ctx context.Context, right *Collection, how Mode, opts *Options) (*Result, error) {
	return Overlay(ctx, c, right, how, opts)
}
