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
	"errors"
	"fmt"

	"github.com/spatialmodel/overlay/index"
)

var (
	// ErrInvalidArgument is returned for an unknown mode, a missing
	// collection, or a collection whose schema or rows are malformed.
	ErrInvalidArgument = errors.New("overlay: invalid argument")

	// ErrSchemaConflict is returned when suffixing a shared column name
	// would produce a name that already exists.
	ErrSchemaConflict = errors.New("overlay: schema conflict")

	// ErrCRSMismatch is returned when both inputs declare different
	// coordinate reference systems.
	ErrCRSMismatch = errors.New("overlay: CRS mismatch")
)

// Side identifies an input collection.
type Side int

// The two inputs.
const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// GeometryError reports a geometry that could not be repaired, or a task
// the kernel failed on, when the repair strategy is FailFast.
type GeometryError struct {
	Side Side
	Row  int

	// Pair is set when the failure involves a left and a right row.
	Pair *index.Pair

	Err error
}

func (e *GeometryError) Error() string {
	if e.Pair != nil {
		return fmt.Sprintf("overlay: left row %d, right row %d: %v", e.Pair.Left, e.Pair.Right, e.Err)
	}
	return fmt.Sprintf("overlay: %s row %d: %v", e.Side, e.Row, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }
