// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90392

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned when a mode does not fit in the 4 bit MODE
	// field, or is not usable for the requested operation.
	ErrInvalidMode = errors.New("mlx90392: invalid mode")
	// ErrInvalidFilter is returned when a digital filter setting is outside
	// 0..7.
	ErrInvalidFilter = errors.New("mlx90392: invalid digital filter")

	errSensing = errors.New("mlx90392: continuous sensing already running")
)

// ReadyTimeoutError is returned when the data ready flag did not assert
// within Opts.ReadyTimeout.
type ReadyTimeoutError struct {
	Polls int
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("mlx90392: data not ready after %d polls", e.Polls)
}
