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

	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/overlay/kernel"
)

// crsULP is the tolerance, in units in the last place, used when comparing
// parsed coordinate reference systems.
const crsULP = 100

// validate checks the structure of both inputs and returns the CRS of the
// result.
func validate(left, right *Collection) (string, []Warning, error) {
	if left == nil || right == nil {
		return "", nil, fmt.Errorf("%w: nil collection", ErrInvalidArgument)
	}
	for _, s := range []struct {
		side Side
		c    *Collection
	}{{Left, left}, {Right, right}} {
		if err := validateCollection(s.c); err != nil {
			return "", nil, fmt.Errorf("%s input: %w", s.side, err)
		}
	}
	return resolveCRS(left.CRS, right.CRS)
}

func validateCollection(c *Collection) error {
	gc := c.geometryColumn()
	seen := make(map[string]bool, len(c.Schema))
	for _, col := range c.Schema {
		if col.Name == gc {
			return fmt.Errorf("%w: attribute column %q has the name of the geometry column", ErrInvalidArgument, col.Name)
		}
		if col.Name == "" {
			return fmt.Errorf("%w: unnamed column", ErrInvalidArgument)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidArgument, col.Name)
		}
		switch col.Type {
		case String, Int, Float, Bool:
		default:
			return fmt.Errorf("%w: column %q has unsupported type %v", ErrInvalidArgument, col.Name, col.Type)
		}
		seen[col.Name] = true
	}
	for i, r := range c.Rows {
		if r.Geom != nil && kernel.TypeOf(r.Geom) == kernel.TypeUnknown {
			return fmt.Errorf("%w: row %d: %T is not a geometry type", ErrInvalidArgument, i, r.Geom)
		}
		if len(r.Attrs) != len(c.Schema) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", ErrInvalidArgument, i, len(r.Attrs), len(c.Schema))
		}
		for j, v := range r.Attrs {
			if !c.Schema[j].Type.holds(v) {
				return fmt.Errorf("%w: row %d: column %q: %T is not a %v", ErrInvalidArgument, i, c.Schema[j].Name, v, c.Schema[j].Type)
			}
		}
	}
	return nil
}

func (t ColumnType) holds(v interface{}) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case string:
		return t == String
	case int, int32, int64:
		return t == Int
	case float32, float64:
		return t == Float
	case bool:
		return t == Bool
	}
	return false
}

// resolveCRS returns the CRS shared by both inputs. Identifiers that
// differ as strings are parsed and compared as spatial references.
func resolveCRS(l, r string) (string, []Warning, error) {
	switch {
	case l == r:
		return l, nil, nil
	case l == "":
		return r, []Warning{{Kind: WarnCRSUnset, Side: Left, Msg: "left input has no CRS; using the right input's"}}, nil
	case r == "":
		return l, []Warning{{Kind: WarnCRSUnset, Side: Right, Msg: "right input has no CRS; using the left input's"}}, nil
	}
	lsr, err := proj.Parse(l)
	if err != nil {
		return "", nil, fmt.Errorf("%w: left %q, right %q", ErrCRSMismatch, l, r)
	}
	rsr, err := proj.Parse(r)
	if err != nil {
		return "", nil, fmt.Errorf("%w: left %q, right %q", ErrCRSMismatch, l, r)
	}
	if !lsr.Equal(rsr, crsULP) {
		return "", nil, fmt.Errorf("%w: left %q, right %q", ErrCRSMismatch, l, r)
	}
	return l, nil, nil
}
