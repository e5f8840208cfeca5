// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package melexis is a container for the Melexis magnetometer driver and the
// tooling built around it.
//
// The driver itself lives in package mlx90392. The command line tool in
// cmd/mlx90392 exercises it against a real bus.
package melexis
