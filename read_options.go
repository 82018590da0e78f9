// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package arrayio

import (
	"fmt"

	"go.uber.org/zap"
)

// ReadOption configures ReadSection.
// This follows the Functional Options Pattern.
//
// Example:
//
//	err := arrayio.ReadSection(ctx, f, layout, dst,
//	    arrayio.WithWorkers(8),
//	    arrayio.WithLogger(logger),
//	)
type ReadOption func(*readConfig) error

type readConfig struct {
	workers int
	logger  *zap.Logger
}

func defaultReadConfig() readConfig {
	return readConfig{
		workers: 1,
		logger:  zap.NewNop(),
	}
}

// WithWorkers sets how many transfers may be in flight at once.
//
// Transfers of one plan write disjoint parts of the destination, so they
// can be issued concurrently against an io.ReaderAt. With more than one
// worker the whole plan is drained before any I/O starts.
//
// Default: 1 (sequential, interleaving planning and I/O).
func WithWorkers(n int) ReadOption {
	return func(c *readConfig) error {
		if n < 1 {
			return fmt.Errorf("workers must be >= 1, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithLogger sets the logger used to report plan execution.
// Default: a no-op logger.
func WithLogger(logger *zap.Logger) ReadOption {
	return func(c *readConfig) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
		return nil
	}
}
