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
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/overlay"
	"github.com/spatialmodel/overlay/kernel"
)

// ReadCollection reads a collection from a shapefile (.shp) or a GeoJSON
// feature collection (.geojson or .json).
func ReadCollection(path string) (*overlay.Collection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path)
	case ".geojson", ".json":
		return readGeoJSON(path)
	}
	return nil, fmt.Errorf("overlayutil: unsupported input file type %q", path)
}

// WriteCollection writes c to a shapefile (.shp) or a GeoJSON feature
// collection (.geojson or .json), replacing any existing file.
func WriteCollection(path string, c *overlay.Collection) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return writeShapefile(path, c)
	case ".geojson", ".json":
		return writeGeoJSON(path, c)
	}
	return fmt.Errorf("overlayutil: unsupported output file type %q", path)
}

// The longest field name a dBase file can hold.
const maxFieldName = 10

func fieldType(f goshp.Field) overlay.ColumnType {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return overlay.Int
		}
		return overlay.Float
	case 'F':
		return overlay.Float
	case 'L':
		return overlay.Bool
	}
	return overlay.String
}

// parseField converts a dBase attribute to the value type of t. Blank
// numeric and logical values are null.
func parseField(s string, t overlay.ColumnType) (interface{}, error) {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if t == overlay.String {
		return s, nil
	}
	if s == "" || strings.Trim(s, "*") == "" {
		return nil, nil
	}
	switch t {
	case overlay.Int:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Some writers store integral values with a decimal point.
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) {
				return nil, err
			}
			return int64(f), nil
		}
		return v, nil
	case overlay.Float:
		return strconv.ParseFloat(s, 64)
	case overlay.Bool:
		switch s {
		case "T", "t", "Y", "y":
			return true, nil
		case "F", "f", "N", "n":
			return false, nil
		case "?":
			return nil, nil
		}
		return nil, fmt.Errorf("invalid logical value %q", s)
	}
	return nil, fmt.Errorf("unsupported column type %v", t)
}

func readShapefile(path string) (*overlay.Collection, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("overlayutil: opening shapefile %s: %v", path, err)
	}
	defer d.Close()

	fields := d.Reader.Fields()
	names := make([]string, len(fields))
	schema := make(overlay.Schema, len(fields))
	for i, f := range fields {
		names[i] = f.String()
		schema[i] = overlay.Column{Name: names[i], Type: fieldType(f)}
	}
	c := overlay.NewCollection(readPrj(path), schema)

	for row := 0; ; row++ {
		g, vals, more := d.DecodeRowFields(names...)
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("overlayutil: reading shapefile %s: %v", path, err)
		}
		if !more {
			break
		}
		attrs := make([]interface{}, len(schema))
		for j, col := range schema {
			v, err := parseField(vals[col.Name], col.Type)
			if err != nil {
				return nil, fmt.Errorf("overlayutil: reading shapefile %s: row %d, field %s: %v", path, row, col.Name, err)
			}
			attrs[j] = v
		}
		if err := c.Add(g, attrs...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// readPrj returns the contents of the .prj file accompanying the
// shapefile at path, or "" if there isn't one.
func readPrj(path string) string {
	b, err := ioutil.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// shapeType chooses the shapefile geometry type able to hold every
// geometry in gs. Shapefiles hold one geometry family.
func shapeType(gs []geom.Geom) (goshp.ShapeType, error) {
	family := kernel.FamilyNone
	multiPoint := false
	for _, g := range gs {
		f := kernel.FamilyOf(g)
		switch {
		case f == kernel.FamilyNone:
			continue
		case f == kernel.FamilyMixed, family != kernel.FamilyNone && f != family:
			return goshp.NULL, fmt.Errorf("a shapefile holds a single geometry family but the rows are %v and %v; use GeoJSON output instead", family, f)
		}
		family = f
		if kernel.TypeOf(g) != kernel.TypePoint {
			multiPoint = true
		}
	}
	switch family {
	case kernel.FamilyPolygon:
		return goshp.POLYGON, nil
	case kernel.FamilyLine:
		return goshp.POLYLINE, nil
	case kernel.FamilyPoint:
		if multiPoint {
			return goshp.MULTIPOINT, nil
		}
		return goshp.POINT, nil
	}
	return goshp.POLYGON, nil
}

// toShape converts g to the single-part representation accepted by the
// shapefile encoder. Polygon shells are wound clockwise and holes
// counter-clockwise.
func toShape(g geom.Geom, t goshp.ShapeType) geom.Geom {
	if kernel.IsEmpty(g) {
		return nil
	}
	parts := kernel.Decompose(g)
	switch t {
	case goshp.POLYGON:
		var o geom.Polygon
		for _, p := range parts {
			switch p := p.(type) {
			case geom.Polygon:
				o = append(o, windPolygon(p)...)
			case geom.MultiPolygon:
				for _, pp := range p {
					o = append(o, windPolygon(pp)...)
				}
			}
		}
		return o
	case goshp.POLYLINE:
		var o geom.MultiLineString
		for _, p := range parts {
			switch p := p.(type) {
			case geom.LineString:
				o = append(o, p)
			case geom.MultiLineString:
				o = append(o, p...)
			}
		}
		return o
	case goshp.MULTIPOINT:
		var o geom.MultiPoint
		for _, p := range parts {
			switch p := p.(type) {
			case geom.Point:
				o = append(o, p)
			case *geom.Point:
				o = append(o, *p)
			case geom.MultiPoint:
				o = append(o, p...)
			}
		}
		return o
	}
	if p, ok := parts[0].(*geom.Point); ok {
		return *p
	}
	return parts[0]
}

func windPolygon(p geom.Polygon) geom.Polygon {
	o := make(geom.Polygon, len(p))
	for i, r := range p {
		cw := i == 0
		var a float64
		for j := range r {
			k := (j + 1) % len(r)
			a += r[j].X*r[k].Y - r[k].X*r[j].Y
		}
		ring := make([]geom.Point, len(r))
		copy(ring, r)
		if (a < 0) != cw {
			for x, y := 0, len(ring)-1; x < y; x, y = x+1, y-1 {
				ring[x], ring[y] = ring[y], ring[x]
			}
		}
		o[i] = ring
	}
	return o
}

func shpFields(c *overlay.Collection) ([]goshp.Field, error) {
	fields := make([]goshp.Field, len(c.Schema))
	for i, col := range c.Schema {
		if len(col.Name) > maxFieldName {
			return nil, fmt.Errorf("column name %q is longer than %d characters", col.Name, maxFieldName)
		}
		switch col.Type {
		case overlay.String:
			size := 1
			for _, r := range c.Rows {
				if s, ok := r.Attrs[i].(string); ok && len(s) > size {
					size = len(s)
				}
			}
			if size > 254 {
				size = 254
			}
			fields[i] = goshp.StringField(col.Name, uint8(size))
		case overlay.Int:
			fields[i] = goshp.NumberField(col.Name, 20)
		case overlay.Float:
			fields[i] = goshp.FloatField(col.Name, 24, 10)
		case overlay.Bool:
			f := goshp.Field{Fieldtype: 'L', Size: 1}
			copy(f.Name[:], col.Name)
			fields[i] = f
		default:
			return nil, fmt.Errorf("column %s has unsupported type %v", col.Name, col.Type)
		}
	}
	return fields, nil
}

// shpValue converts an attribute value to a type the dBase writer accepts.
func shpValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return ""
	case int64:
		return int(v)
	case bool:
		if v {
			return "T"
		}
		return "F"
	}
	return v
}

func writeShapefile(path string, c *overlay.Collection) error {
	t, err := shapeType(c.Geoms())
	if err != nil {
		return fmt.Errorf("overlayutil: writing shapefile %s: %v", path, err)
	}
	fields, err := shpFields(c)
	if err != nil {
		return fmt.Errorf("overlayutil: writing shapefile %s: %v", path, err)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	e, err := shp.NewEncoderFromFields(path, t, fields...)
	if err != nil {
		return fmt.Errorf("overlayutil: creating shapefile %s: %v", path, err)
	}
	for i, r := range c.Rows {
		vals := make([]interface{}, len(r.Attrs))
		for j, v := range r.Attrs {
			vals[j] = shpValue(v)
		}
		if err := e.EncodeFields(toShape(r.Geom, t), vals...); err != nil {
			e.Close()
			return fmt.Errorf("overlayutil: writing shapefile %s: row %d: %v", path, i, err)
		}
	}
	e.Close()

	if c.CRS == "" {
		return nil
	}
	f, err := os.Create(base + ".prj")
	if err != nil {
		return fmt.Errorf("overlayutil: writing projection file: %v", err)
	}
	defer f.Close()
	if _, err := fmt.Fprint(f, c.CRS); err != nil {
		return fmt.Errorf("overlayutil: writing projection file: %v", err)
	}
	return nil
}
