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

// Package overlay combines two collections of attributed geometries into
// one under the set operations union, intersection, difference, symmetric
// difference and identity, carrying the attributes of the contributing
// rows through to the output.
package overlay

import (
	"fmt"

	"github.com/ctessum/geom"
)

// Version is the version of this software.
const Version = "1.0.0"

// DefaultGeometryColumn is the name of the geometry column of a
// Collection whose GeometryColumn is unset.
const DefaultGeometryColumn = "geometry"

// ColumnType is the type of an attribute column.
type ColumnType int

// These are the supported attribute types. Values are stored as string,
// int64, float64 and bool, respectively; nil is null.
const (
	String ColumnType = iota
	Int
	Float
	Bool
)

func (t ColumnType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Column is a named, typed attribute column.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered list of attribute columns.
type Schema []Column

// Index returns the position of the column called name, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	o := make([]string, len(s))
	for i, c := range s {
		o[i] = c.Name
	}
	return o
}

// Row is one geometry and its attribute values, in schema order.
type Row struct {
	Geom  geom.Geom
	Attrs []interface{}
}

// Collection is an ordered sequence of rows sharing a coordinate reference
// system and an attribute schema. Overlay never modifies a Collection.
type Collection struct {
	// GeometryColumn is the name of the geometry column.
	GeometryColumn string

	// CRS identifies the coordinate reference system, as a PROJ.4 string,
	// WKT or any other identifier. Empty means unset.
	CRS string

	Schema Schema
	Rows   []Row
}

// NewCollection returns an empty collection.
func NewCollection(crs string, schema Schema) *Collection {
	return &Collection{
		GeometryColumn: DefaultGeometryColumn,
		CRS:            crs,
		Schema:         schema,
	}
}

// Add appends a row. attrs must hold one value per schema column.
func (c *Collection) Add(g geom.Geom, attrs ...interface{}) error {
	if len(attrs) != len(c.Schema) {
		return fmt.Errorf("%w: %d attribute values for %d columns", ErrInvalidArgument, len(attrs), len(c.Schema))
	}
	c.Rows = append(c.Rows, Row{Geom: g, Attrs: attrs})
	return nil
}

// Len returns the number of rows.
func (c *Collection) Len() int { return len(c.Rows) }

// Geoms returns the geometry of every row.
func (c *Collection) Geoms() []geom.Geom {
	o := make([]geom.Geom, len(c.Rows))
	for i, r := range c.Rows {
		o[i] = r.Geom
	}
	return o
}

// Value returns the value of column name in row i.
func (c *Collection) Value(i int, name string) (interface{}, bool) {
	j := c.Schema.Index(name)
	if j < 0 {
		return nil, false
	}
	return c.Rows[i].Attrs[j], true
}

func (c *Collection) geometryColumn() string {
	if c.GeometryColumn == "" {
		return DefaultGeometryColumn
	}
	return c.GeometryColumn
}
