// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, extracting and packing bit-fields inside an 8 bit register.
package common

import "fmt"

// BitField describes a run of Width bits starting at bit Shift inside an 8
// bit register.
type BitField struct {
	Shift uint8
	Width uint8
}

// Mask returns the in-register mask of the field.
func (f BitField) Mask() byte {
	return byte(((1 << f.Width) - 1) << f.Shift)
}

// Max returns the largest value the field can hold.
func (f BitField) Max() uint8 {
	return uint8((1 << f.Width) - 1)
}

// Fits reports whether v can be stored in the field without truncation.
func (f BitField) Fits(v uint8) bool {
	return v <= f.Max()
}

// Get extracts the field value from reg.
func (f BitField) Get(reg byte) uint8 {
	return (reg & f.Mask()) >> f.Shift
}

// Set returns reg with exactly the field bits replaced by v. All other bits
// are left untouched.
func (f BitField) Set(reg byte, v uint8) (byte, error) {
	if !f.Fits(v) {
		return reg, fmt.Errorf("value %d does not fit in %d bits", v, f.Width)
	}
	return (reg &^ f.Mask()) | (v << f.Shift), nil
}

// Bool interprets a single bit field as a boolean.
func (f BitField) Bool(reg byte) bool {
	return f.Get(reg) != 0
}

// SetBool is the single bit counterpart of Set.
func (f BitField) SetBool(reg byte, on bool) byte {
	if on {
		return reg | f.Mask()
	}
	return reg &^ f.Mask()
}

// Int16LE assembles two consecutive register bytes, low byte first, into a
// signed 16 bit value.
func Int16LE(lo, hi byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}
