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
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay/kernel"
)

// RepairStrategy determines what happens to a geometry that is invalid and
// cannot be repaired, or a pair the kernel fails on.
type RepairStrategy int

const (
	// SkipAndWarn skips the offending row or pair and reports it in the
	// result's warnings.
	SkipAndWarn RepairStrategy = iota
	// FailFast aborts the overlay with a *GeometryError.
	FailFast
)

func (r RepairStrategy) String() string {
	switch r {
	case SkipAndWarn:
		return "skip"
	case FailFast:
		return "fail"
	}
	return fmt.Sprintf("RepairStrategy(%d)", int(r))
}

// ParseRepairStrategy parses "skip" or "fail".
func ParseRepairStrategy(s string) (RepairStrategy, error) {
	switch s {
	case "skip":
		return SkipAndWarn, nil
	case "fail":
		return FailFast, nil
	}
	return 0, fmt.Errorf("%w: unknown repair strategy %q", ErrInvalidArgument, s)
}

// Recorder receives measurements of overlay calls.
type Recorder interface {
	// ObserveOverlay records one completed overlay call.
	ObserveOverlay(mode string, d time.Duration, rows int)

	// AddTasks records n pairwise tasks that finished with status
	// "ok", "empty" or "failed".
	AddTasks(mode, status string, n int)
}

// Options configures an overlay.
type Options struct {
	// KeepGeomType drops output geometries whose family differs from the
	// left input's dominant family.
	KeepGeomType bool

	// Suffixes are appended to the left and right names of columns that
	// appear in both inputs.
	Suffixes [2]string

	Repair RepairStrategy

	// Workers is the number of concurrent pairwise workers. Values < 1
	// mean runtime.GOMAXPROCS(0).
	Workers int

	// Kernel performs the pairwise geometry operations. Nil means
	// kernel.GEOS{}.
	Kernel kernel.Kernel

	// Log receives progress and warnings. Nil means
	// logrus.StandardLogger().
	Log logrus.FieldLogger

	// Metrics, if not nil, receives measurements.
	Metrics Recorder
}

// DefaultOptions returns the default options: geometry types are kept,
// suffixes are "_1" and "_2", and unrepairable geometries are skipped.
func DefaultOptions() *Options {
	return &Options{
		KeepGeomType: true,
		Suffixes:     [2]string{"_1", "_2"},
		Repair:       SkipAndWarn,
	}
}

// withDefaults fills in unset fields of a copy of o.
func (o *Options) withDefaults() (*Options, error) {
	if o == nil {
		o = DefaultOptions()
	}
	c := *o
	if c.Suffixes == [2]string{} {
		c.Suffixes = [2]string{"_1", "_2"}
	}
	if c.Suffixes[0] == c.Suffixes[1] {
		return nil, fmt.Errorf("%w: suffixes %q and %q are identical", ErrInvalidArgument, c.Suffixes[0], c.Suffixes[1])
	}
	if c.Repair != SkipAndWarn && c.Repair != FailFast {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, c.Repair)
	}
	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Kernel == nil {
		c.Kernel = kernel.GEOS{}
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return &c, nil
}
