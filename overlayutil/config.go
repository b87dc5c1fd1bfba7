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
	"os"
	"path/filepath"
	"strings"

	"github.com/spatialmodel/overlay"
	"github.com/spatialmodel/overlay/kernel"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// envName returns the environment variable that sets option name.
func envName(name string) string {
	return "OVERLAY_" + strings.ToUpper(strings.Replace(name, "-", "_", -1))
}

// RunConfig holds the settings of one overlay run.
type RunConfig struct {
	// Left and Right are the paths to the input collections.
	Left, Right string

	// LeftWhere and RightWhere are optional row filter expressions.
	LeftWhere, RightWhere string

	// Output is the path of the result.
	Output string

	// MetricsFile, if not empty, is where Prometheus metrics are written.
	MetricsFile string

	How     overlay.Mode
	Options *overlay.Options
}

// RunConfigFromViper reads and checks a run configuration.
func RunConfigFromViper(cfg *viper.Viper) (*RunConfig, error) {
	left, err := checkInputFile("left", cfg.GetString("left"))
	if err != nil {
		return nil, err
	}
	right, err := checkInputFile("right", cfg.GetString("right"))
	if err != nil {
		return nil, err
	}
	output, err := checkOutputFile("output", cfg.GetString("output"))
	if err != nil {
		return nil, err
	}
	var metricsFile string
	if f := cfg.GetString("metrics-file"); f != "" {
		if metricsFile, err = checkOutputFile("metrics-file", f); err != nil {
			return nil, err
		}
	}
	how, err := overlay.ParseMode(cfg.GetString("how"))
	if err != nil {
		return nil, err
	}
	repair, err := overlay.ParseRepairStrategy(cfg.GetString("repair"))
	if err != nil {
		return nil, err
	}
	k, err := parseKernel(cfg.GetString("kernel"))
	if err != nil {
		return nil, err
	}
	suffixes, err := checkSuffixes(cfg.Get("suffixes"))
	if err != nil {
		return nil, err
	}
	workers, err := cast.ToIntE(cfg.Get("workers"))
	if err != nil {
		return nil, fmt.Errorf("overlay: invalid workers: %v", err)
	}
	keep, err := cast.ToBoolE(cfg.Get("keep-geom-type"))
	if err != nil {
		return nil, fmt.Errorf("overlay: invalid keep-geom-type: %v", err)
	}

	opts := overlay.DefaultOptions()
	opts.KeepGeomType = keep
	opts.Suffixes = suffixes
	opts.Repair = repair
	opts.Workers = workers
	opts.Kernel = k
	return &RunConfig{
		Left:        left,
		Right:       right,
		LeftWhere:   cfg.GetString("left-where"),
		RightWhere:  cfg.GetString("right-where"),
		Output:      output,
		MetricsFile: metricsFile,
		How:         how,
		Options:     opts,
	}, nil
}

// parseKernel returns the geometry kernel with the given name.
func parseKernel(name string) (kernel.Kernel, error) {
	switch strings.ToLower(name) {
	case "", "geos":
		return kernel.GEOS{}, nil
	case "planar":
		return kernel.Planar{}, nil
	}
	return nil, fmt.Errorf("overlay: invalid kernel %q (want geos or planar)", name)
}

// checkInputFile expands any environment variables in f and makes sure
// the file exists if it is local.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("overlay: you need to specify the %s input file (for example: --%s=input.shp)", name, name)
	}
	f = os.ExpandEnv(f)
	if IsRemote(f) {
		return f, nil
	}
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("overlay: the %s input file doesn't exist: %v", name, err)
	}
	return f, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("overlay: you need to specify the %s file (for example: --%s=out.geojson)", name, name)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("overlay: the %s directory doesn't exist: %v", name, err)
	}
	return f, nil
}

// checkSuffixes converts the suffixes setting, which may be a list or a
// comma-separated string, to a pair.
func checkSuffixes(v interface{}) ([2]string, error) {
	var s []string
	if str, ok := v.(string); ok {
		s = strings.Split(str, ",")
	} else {
		var err error
		if s, err = cast.ToStringSliceE(v); err != nil {
			return [2]string{}, fmt.Errorf("overlay: invalid suffixes: %v", err)
		}
	}
	if len(s) == 1 && strings.Contains(s[0], ",") {
		s = strings.Split(s[0], ",")
	}
	if len(s) != 2 {
		return [2]string{}, fmt.Errorf("overlay: suffixes must have two values but has %d: %v", len(s), s)
	}
	return [2]string{strings.TrimSpace(s[0]), strings.TrimSpace(s[1])}, nil
}
