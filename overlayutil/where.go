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

package overlayutil

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/overlay"
)

// filterFunctions are the functions available to row filter expressions
// in addition to the govaluate operators.
var filterFunctions = map[string]govaluate.ExpressionFunction{
	"isnull": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("overlayutil: got %d arguments for function 'isnull', but needs 1", len(arg))
		}
		return arg[0] == nil, nil
	},
}

// Where returns a collection holding the rows of c for which expr is true.
// expr is a govaluate expression in which column names are variables, for
// example "population > 100 && state == 'MN'"; names that are not valid
// identifiers can be written in brackets, as in "[name with spaces] > 1".
// Comparing a null value with an ordering operator is an error; guard
// such comparisons with isnull. An empty expression selects every row.
func Where(c *overlay.Collection, expr string) (*overlay.Collection, error) {
	if strings.TrimSpace(expr) == "" {
		return c, nil
	}
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, filterFunctions)
	if err != nil {
		return nil, fmt.Errorf("overlayutil: parsing filter %q: %v", expr, err)
	}
	for _, v := range e.Vars() {
		if c.Schema.Index(v) < 0 {
			return nil, fmt.Errorf("overlayutil: filter %q: unknown column %q", expr, v)
		}
	}
	out := &overlay.Collection{
		GeometryColumn: c.GeometryColumn,
		CRS:            c.CRS,
		Schema:         c.Schema,
	}
	params := make(map[string]interface{}, len(c.Schema))
	for i, r := range c.Rows {
		for j, col := range c.Schema {
			params[col.Name] = exprValue(r.Attrs[j])
		}
		v, err := e.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("overlayutil: filter %q: row %d: %v", expr, i, err)
		}
		keep, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("overlayutil: filter %q evaluates to %v, not a boolean", expr, v)
		}
		if keep {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

// exprValue converts an attribute value to the types govaluate operates
// on, which represents all numbers as float64.
func exprValue(v interface{}) interface{} {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case float32:
		return float64(v)
	}
	return v
}
