// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// mlx90392 provides a package for interfacing a Melexis MLX90392 I²C 3-axis
// magnetometer with integrated temperature sensing.
//
// Range: ±5mT (0.15µT/LSB) or ±50mT (1.5µT/LSB) depending on the part
// variant.
//
// Output data rates: single shot, or continuous at 10Hz to 1.4kHz.
//
// The measurement range is driver side metadata. The device does not report
// it, so the caller must keep Dev.SetRange consistent with the part that is
// actually fitted. Temperature is reported as a raw count.
//
// Waiting for the data ready flag is bounded by Opts.ReadyTimeout. Set it to
// NoTimeout to poll forever.
//
// For detailed information, refer to the [datasheet].
//
// A command line example is available in cmd/mlx90392.
//
// [datasheet]: https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90392
package mlx90392
