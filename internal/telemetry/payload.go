// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package telemetry ships magnetometer samples to MQTT and websocket
// subscribers.
package telemetry

import (
	"time"

	"github.com/GermanBionicSystems/melexis/mlx90392"
)

// Raw holds the counts of a sample.
type Raw struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Payload is the JSON document published for each sample. X, Y, Z and Norm
// are in µT. Time is RFC3339 with nanoseconds, UTC.
type Payload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Norm float64 `json:"norm"`
	Raw  Raw     `json:"raw"`
	Time string  `json:"time"`
}

// NewPayload converts a measurement.
func NewPayload(m mlx90392.Measurement) Payload {
	return Payload{
		X:    m.Field.X,
		Y:    m.Field.Y,
		Z:    m.Field.Z,
		Norm: m.Field.Magnitude(),
		Raw:  Raw{X: m.Raw.X, Y: m.Raw.Y, Z: m.Raw.Z},
		Time: m.Time.UTC().Format(time.RFC3339Nano),
	}
}
