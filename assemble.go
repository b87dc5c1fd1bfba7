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

import "fmt"

// source locates the input column an output column is copied from.
type source struct {
	side Side
	col  int
}

// joinSchema computes the output schema. Columns of the left input come
// first, then those of the right input; names present in both get the
// left and right suffix. Difference keeps the left columns only.
func joinSchema(left, right *Collection, how Mode, suffixes [2]string) (Schema, []source, error) {
	var schema Schema
	var src []source
	if how == Difference {
		for i, c := range left.Schema {
			schema = append(schema, c)
			src = append(src, source{Left, i})
		}
		return schema, src, nil
	}
	shared := make(map[string]bool)
	for _, c := range left.Schema {
		if right.Schema.Index(c.Name) >= 0 {
			shared[c.Name] = true
		}
	}
	for i, c := range left.Schema {
		if shared[c.Name] {
			c.Name += suffixes[0]
		}
		schema = append(schema, c)
		src = append(src, source{Left, i})
	}
	for i, c := range right.Schema {
		if shared[c.Name] {
			c.Name += suffixes[1]
		}
		schema = append(schema, c)
		src = append(src, source{Right, i})
	}
	names := map[string]bool{left.geometryColumn(): true}
	for _, c := range schema {
		if names[c.Name] {
			return nil, nil, fmt.Errorf("%w: column %q would appear twice in the result", ErrSchemaConflict, c.Name)
		}
		names[c.Name] = true
	}
	return schema, src, nil
}

// assemble builds the result rows from the filtered pieces.
func assemble(left, right *Collection, crs string, schema Schema, src []source, pieces []piece) *Result {
	res := &Result{
		Collection: &Collection{
			GeometryColumn: left.geometryColumn(),
			CRS:            crs,
			Schema:         schema,
			Rows:           make([]Row, len(pieces)),
		},
		Provenance: make([]Provenance, len(pieces)),
	}
	for i, p := range pieces {
		attrs := make([]interface{}, len(schema))
		for c, s := range src {
			switch {
			case s.side == Left && p.left >= 0:
				attrs[c] = left.Rows[p.left].Attrs[s.col]
			case s.side == Right && p.right >= 0:
				attrs[c] = right.Rows[p.right].Attrs[s.col]
			}
		}
		res.Rows[i] = Row{Geom: p.g, Attrs: attrs}
		res.Provenance[i] = Provenance{Left: p.left, Right: p.right}
	}
	return res
}
