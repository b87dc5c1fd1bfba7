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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay/index"
)

// WarningKind classifies a Warning.
type WarningKind int

// These are the kinds of warnings.
const (
	// WarnCRSUnset: one input has no CRS and the other's was used.
	WarnCRSUnset WarningKind = iota
	// WarnRepairFailed: invalid geometries that could not be repaired were
	// skipped.
	WarnRepairFailed
	// WarnKernelFailure: tasks the kernel failed on were skipped.
	WarnKernelFailure
	// WarnGeomTypeDropped: output geometries of another family were
	// dropped.
	WarnGeomTypeDropped
)

func (k WarningKind) String() string {
	switch k {
	case WarnCRSUnset:
		return "crs unset"
	case WarnRepairFailed:
		return "repair failed"
	case WarnKernelFailure:
		return "kernel failure"
	case WarnGeomTypeDropped:
		return "geometry type dropped"
	}
	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is a non-fatal condition aggregated over an overlay call.
type Warning struct {
	Kind WarningKind
	Side Side

	// Rows are the affected rows of Side.
	Rows []int

	// Pairs are the affected left and right row pairs.
	Pairs []index.Pair

	// Count is the number of affected rows, pairs or geometries.
	Count int

	Msg string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
}

func (w Warning) log(l logrus.FieldLogger) {
	f := logrus.Fields{
		"kind":  w.Kind.String(),
		"count": w.Count,
	}
	if len(w.Rows) > 0 {
		f["side"] = w.Side.String()
		f["rows"] = w.Rows
	}
	if len(w.Pairs) > 0 {
		f["pairs"] = w.Pairs
	}
	l.WithFields(f).Warn(w.Msg)
}
