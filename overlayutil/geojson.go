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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/spatialmodel/overlay"
	"github.com/spatialmodel/overlay/kernel"
	"github.com/spf13/cast"
)

// crsMember is the pre-RFC 7946 named coordinate reference system member.
type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// readCRS interprets the "crs" member of a feature collection, which may
// be a named CRS object or a bare string.
func readCRS(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var m crsMember
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	return m.Properties.Name
}

// inferType chooses the column type of a GeoJSON property from its
// values. Numbers that are all integral are Int; a property whose values
// have different JSON types is String.
func inferType(vals []interface{}) overlay.ColumnType {
	var strs, nums, bools, others int
	integral := true
	for _, v := range vals {
		switch v := v.(type) {
		case nil:
		case string:
			strs++
		case bool:
			bools++
		case float64:
			nums++
			if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
				integral = false
			}
		default:
			others++
		}
	}
	switch {
	case others > 0:
		return overlay.String
	case bools > 0 && strs == 0 && nums == 0:
		return overlay.Bool
	case nums > 0 && strs == 0 && bools == 0:
		if integral {
			return overlay.Int
		}
		return overlay.Float
	}
	return overlay.String
}

func propertyValue(v interface{}, t overlay.ColumnType) interface{} {
	if v == nil {
		return nil
	}
	switch t {
	case overlay.Int:
		return cast.ToInt64(v)
	case overlay.Float:
		return cast.ToFloat64(v)
	case overlay.Bool:
		return cast.ToBool(v)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func readGeoJSON(path string) (*overlay.Collection, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("overlayutil: reading GeoJSON file: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("overlayutil: parsing GeoJSON file %s: %v", path, err)
	}

	values := make(map[string][]interface{})
	for _, f := range fc.Features {
		for k, v := range f.Properties {
			values[k] = append(values[k], v)
		}
	}
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	schema := make(overlay.Schema, len(names))
	for i, k := range names {
		schema[i] = overlay.Column{Name: k, Type: inferType(values[k])}
	}

	c := overlay.NewCollection(readCRS(fc.ExtraMembers["crs"]), schema)
	for i, f := range fc.Features {
		g, err := kernel.FromOrb(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("overlayutil: reading GeoJSON file %s: feature %d: %v", path, i, err)
		}
		attrs := make([]interface{}, len(schema))
		for j, col := range schema {
			attrs[j] = propertyValue(f.Properties[col.Name], col.Type)
		}
		if err := c.Add(g, attrs...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func writeGeoJSON(path string, c *overlay.Collection) error {
	fc := geojson.NewFeatureCollection()
	for i, r := range c.Rows {
		g, err := kernel.ToOrb(r.Geom)
		if err != nil {
			return fmt.Errorf("overlayutil: writing GeoJSON file %s: row %d: %v", path, i, err)
		}
		f := geojson.NewFeature(g)
		for j, col := range c.Schema {
			f.Properties[col.Name] = r.Attrs[j]
		}
		fc.Append(f)
	}
	if c.CRS != "" {
		crs := crsMember{Type: "name"}
		crs.Properties.Name = c.CRS
		fc.ExtraMembers = geojson.Properties{"crs": crs}
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("overlayutil: writing GeoJSON file %s: %v", path, err)
	}
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("overlayutil: writing GeoJSON file: %v", err)
	}
	return nil
}
