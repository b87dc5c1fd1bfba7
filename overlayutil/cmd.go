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
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to overlay.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "left",
			usage: `
              left specifies the path to the left input collection, as a
              shapefile (.shp) or GeoJSON feature collection (.geojson or .json).
              It can be a local path, an http or https URL, or a blob URL
              starting with file://, gs://, or s3://, and it can include
              environment variables.`,
			shorthand:  "l",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "right",
			usage: `
              right specifies the path to the right input collection, in the
              same formats as left.`,
			shorthand:  "r",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "how",
			usage: `
              how specifies the overlay mode: union, intersection, difference,
              symmetric_difference, or identity.`,
			defaultVal: "intersection",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output specifies the path where the result should be written.
              The format is chosen by the file extension, as for the inputs.
              Shapefile outputs must hold a single geometry family. It can
              include environment variables.`,
			shorthand:  "o",
			defaultVal: "overlay_output.geojson",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "keep-geom-type",
			usage: `
              keep-geom-type specifies whether output rows whose geometry
              family differs from that of the left input should be dropped.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "suffixes",
			usage: `
              suffixes specifies the two suffixes appended to attribute names
              that appear in both inputs, for the left and right input
              respectively.`,
			defaultVal: []string{"_1", "_2"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "repair",
			usage: `
              repair specifies what to do with geometries that are invalid
              and cannot be repaired: 'skip' drops them with a warning and
              'fail' stops the overlay with an error.`,
			defaultVal: "skip",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "kernel",
			usage: `
              kernel specifies the geometry engine: 'geos' runs every
              operation with the GEOS library and 'planar' runs polygon
              operations with the pure Go polygon clipper, using GEOS for
              the rest.`,
			defaultVal: "geos",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "workers",
			usage: `
              workers specifies the number of pairwise tasks to run in
              parallel. Values less than 1 use one worker per processor.`,
			shorthand:  "w",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "left-where",
			usage: `
              left-where specifies an expression selecting the rows of the
              left input to use, for example "population > 100". Column names
              are variables; names with spaces or symbols can be written in
              brackets. isnull(x) tests for missing values.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "right-where",
			usage: `
              right-where specifies an expression selecting the rows of the
              right input to use, in the same form as left-where.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "metrics-file",
			usage: `
              metrics-file specifies a path where Prometheus metrics for the
              run should be written in the text exposition format. If empty,
              no metrics are written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "log-level",
			usage: `
              log-level specifies the logging level: panic, fatal, error,
              warn, info, debug, or trace.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("OVERLAY")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
			Cfg.BindEnv(option.name, envName(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(configCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("overlay: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("overlay: invalid log-level: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "overlay",
	Short: "Overlay two collections of attributed geometries.",
	Long: `overlay combines two collections of attributed polygons, lines or points
under the set operations union, intersection, difference, symmetric_difference
and identity, carrying the attributes of the contributing features through to
the output.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'OVERLAY_VAR' where 'VAR' is the
name of the variable to be set, in upper case and with dashes replaced by
underscores. Refer to https://github.com/spf13/viper for additional
configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of overlay.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("overlay v%s\n", overlay.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an overlay.",
	Long: `run reads the left and right collections, overlays them using the
selected mode, and writes the result to the output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := RunConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		_, err = Run(ctx, cfg, logrus.StandardLogger())
		return err
	},
	DisableAutoGenTag: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration.",
	Long: `config prints the configuration that run would use, after combining
the configuration file, environment variables and command-line arguments,
in TOML format. The output can be used as a configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := make(map[string]interface{})
		for _, option := range options {
			if option.name != "config" {
				config[option.name] = Cfg.Get(option.name)
			}
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(config)
	},
	DisableAutoGenTag: true,
}
