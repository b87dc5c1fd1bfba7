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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/overlay"
	"github.com/spatialmodel/overlay/internal/hash"
	"github.com/spatialmodel/overlay/internal/metrics"
)

// readInput reads a collection, downloading it first if it is remote, and
// applies the row filter where.
func readInput(ctx context.Context, log logrus.FieldLogger, side, path, where string) (*overlay.Collection, error) {
	local, cleanup, err := fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	c, err := ReadCollection(local)
	if err != nil {
		return nil, err
	}
	n := c.Len()
	if c, err = Where(c, where); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"side":     side,
		"file":     path,
		"rows":     n,
		"selected": c.Len(),
		"columns":  len(c.Schema),
	}).Info("overlay: read input")
	return c, nil
}

// Run reads the inputs named by cfg, overlays them and writes the result.
// Progress is logged to log.
func Run(ctx context.Context, cfg *RunConfig, log logrus.FieldLogger) (*overlay.Result, error) {
	start := time.Now()
	left, err := readInput(ctx, log, "left", cfg.Left, cfg.LeftWhere)
	if err != nil {
		return nil, err
	}
	right, err := readInput(ctx, log, "right", cfg.Right, cfg.RightWhere)
	if err != nil {
		return nil, err
	}

	opts := *cfg.Options
	opts.Log = log
	var collector *metrics.Collector
	if cfg.MetricsFile != "" {
		collector = metrics.NewCollector("overlay")
		opts.Metrics = collector
	}

	res, err := overlay.Overlay(ctx, left, right, cfg.How, &opts)
	if err != nil {
		return nil, err
	}
	if err := WriteCollection(cfg.Output, res.Collection); err != nil {
		return nil, err
	}
	if collector != nil {
		if err := collector.WriteToTextfile(cfg.MetricsFile); err != nil {
			return nil, fmt.Errorf("overlay: writing metrics: %v", err)
		}
	}

	log.WithFields(logrus.Fields{
		"mode":        cfg.How.String(),
		"rows":        res.Len(),
		"warnings":    len(res.Warnings),
		"output":      cfg.Output,
		"fingerprint": hash.Hash(res.Schema, res.Rows),
		"duration":    time.Since(start).String(),
	}).Info("overlay: wrote output")
	return res, nil
}
