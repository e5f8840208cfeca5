// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90392

import (
	"fmt"
	"math"

	"github.com/GermanBionicSystems/melexis/common"
)

// Bit-fields of the control registers.
var (
	fieldMode = common.BitField{Shift: 0, Width: 4}

	// OSR_DIG_FILT (0x14)
	fieldOSR      = common.BitField{Shift: 7, Width: 1}
	fieldOSRTemp  = common.BitField{Shift: 6, Width: 1}
	fieldFiltXY   = common.BitField{Shift: 3, Width: 3}
	fieldFiltTemp = common.BitField{Shift: 0, Width: 3}

	// CUST_CTRL (0x15)
	fieldTComp = common.BitField{Shift: 5, Width: 1}
	fieldFiltZ = common.BitField{Shift: 0, Width: 3}
)

const (
	// CUST_CTRL bits 7, 6, 4 and 3 must always be written as 1, 0, 0, 0.
	custCtrlReservedMask  byte = 0xd8
	custCtrlReservedValue byte = 0x80

	maxFilter uint8 = 7
)

// Range is the measurement range of the fitted part. It only selects the
// scale factor used to convert counts; the device is never queried for it.
type Range uint8

const (
	// Range5mT is ±5mT at 0.15µT/LSB.
	Range5mT Range = iota
	// Range50mT is ±50mT at 1.5µT/LSB.
	Range50mT
)

// Sensitivity returns the scale factor in µT per count.
func (r Range) Sensitivity() float64 {
	if r == Range5mT {
		return 0.15
	}
	return 1.5
}

// Convert scales raw counts to µT. No offset or calibration is applied.
func (r Range) Convert(raw RawField) Field {
	s := r.Sensitivity()
	return Field{
		X: float64(raw.X) * s,
		Y: float64(raw.Y) * s,
		Z: float64(raw.Z) * s,
	}
}

func (r Range) String() string {
	if r == Range5mT {
		return "5mT"
	}
	return "50mT"
}

// RawField is a magnetic field sample in counts.
type RawField struct {
	X, Y, Z int16
}

// Sub returns r-o per axis.
func (r RawField) Sub(o RawField) RawField {
	return RawField{X: r.X - o.X, Y: r.Y - o.Y, Z: r.Z - o.Z}
}

func (r RawField) String() string {
	return fmt.Sprintf("X=%d Y=%d Z=%d", r.X, r.Y, r.Z)
}

// Field is a magnetic field sample in µT.
type Field struct {
	X, Y, Z float64
}

// Magnitude returns the norm of the field vector in µT.
func (f Field) Magnitude() float64 {
	return math.Sqrt(f.X*f.X + f.Y*f.Y + f.Z*f.Z)
}

func (f Field) String() string {
	return fmt.Sprintf("X=%.2fµT Y=%.2fµT Z=%.2fµT", f.X, f.Y, f.Z)
}

// decodeField assembles the X, Y, Z low/high byte pairs.
func decodeField(b []byte) RawField {
	return RawField{
		X: common.Int16LE(b[0], b[1]),
		Y: common.Int16LE(b[2], b[3]),
		Z: common.Int16LE(b[4], b[5]),
	}
}

// Configuration is the content of the OSR_DIG_FILT and CUST_CTRL registers.
type Configuration struct {
	// Magnetic oversampling ratio bit.
	MagneticOSR bool
	// Temperature oversampling ratio bit.
	TemperatureOSR bool
	// Digital filters, 0..7.
	XYFilter          uint8
	ZFilter           uint8
	TemperatureFilter uint8
	// Temperature measurement and compensation.
	TemperatureCompensation bool
}

func (c Configuration) String() string {
	return fmt.Sprintf("OSR=%t OSR_TEMP=%t FILT_XY=%d FILT_Z=%d FILT_TEMP=%d T_COMP=%t",
		c.MagneticOSR, c.TemperatureOSR, c.XYFilter, c.ZFilter, c.TemperatureFilter, c.TemperatureCompensation)
}

func (c Configuration) validate() error {
	for _, f := range []uint8{c.XYFilter, c.ZFilter, c.TemperatureFilter} {
		if f > maxFilter {
			return fmt.Errorf("%w: %d", ErrInvalidFilter, f)
		}
	}
	return nil
}

func decodeConfiguration(osr, cust byte) Configuration {
	return Configuration{
		MagneticOSR:             fieldOSR.Bool(osr),
		TemperatureOSR:          fieldOSRTemp.Bool(osr),
		XYFilter:                fieldFiltXY.Get(osr),
		TemperatureFilter:       fieldFiltTemp.Get(osr),
		ZFilter:                 fieldFiltZ.Get(cust),
		TemperatureCompensation: fieldTComp.Bool(cust),
	}
}

// encode returns the OSR_DIG_FILT and CUST_CTRL bytes. Filters must already be
// validated.
func (c Configuration) encode() (osr, cust byte) {
	osr = fieldOSR.SetBool(osr, c.MagneticOSR)
	osr = fieldOSRTemp.SetBool(osr, c.TemperatureOSR)
	osr, _ = fieldFiltXY.Set(osr, c.XYFilter)
	osr, _ = fieldFiltTemp.Set(osr, c.TemperatureFilter)
	cust = fieldTComp.SetBool(cust, c.TemperatureCompensation)
	cust, _ = fieldFiltZ.Set(cust, c.ZFilter)
	return osr, withCustCtrlReserved(cust)
}

func withCustCtrlReserved(b byte) byte {
	return b&^custCtrlReservedMask | custCtrlReservedValue
}

func boolBit(on bool) uint8 {
	if on {
		return 1
	}
	return 0
}

// readField returns the value of f in reg.
func (d *Dev) readField(reg byte, f common.BitField) (uint8, error) {
	b, err := d.readRegister(reg)
	if err != nil {
		return 0, err
	}
	return f.Get(b), nil
}

// updateOSRDigFilt does a read-modify-write of one field of OSR_DIG_FILT.
func (d *Dev) updateOSRDigFilt(f common.BitField, v uint8) error {
	cur, err := d.readRegister(regOSRDigFilt)
	if err != nil {
		return err
	}
	b, err := f.Set(cur, v)
	if err != nil {
		return fmt.Errorf("mlx90392: %w", err)
	}
	return d.writeRegister(regOSRDigFilt, b)
}

// writeCustomControl does a read-modify-write of one field of CUST_CTRL. The
// reserved bits are rewritten on every call whatever field changes.
func (d *Dev) writeCustomControl(f common.BitField, v uint8) error {
	cur, err := d.readRegister(regCustCtrl)
	if err != nil {
		return err
	}
	b, err := f.Set(cur, v)
	if err != nil {
		return fmt.Errorf("mlx90392: %w", err)
	}
	return d.writeRegister(regCustCtrl, withCustCtrlReserved(b))
}

// MagneticOSR returns the magnetic oversampling ratio bit.
func (d *Dev) MagneticOSR() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readField(regOSRDigFilt, fieldOSR)
	return v != 0, err
}

// SetMagneticOSR sets the magnetic oversampling ratio bit.
func (d *Dev) SetMagneticOSR(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateOSRDigFilt(fieldOSR, boolBit(on))
}

// TemperatureOSR returns the temperature oversampling ratio bit.
func (d *Dev) TemperatureOSR() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readField(regOSRDigFilt, fieldOSRTemp)
	return v != 0, err
}

// SetTemperatureOSR sets the temperature oversampling ratio bit.
func (d *Dev) SetTemperatureOSR(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateOSRDigFilt(fieldOSRTemp, boolBit(on))
}

// XYFilter returns the digital filter setting of the X and Y axes.
func (d *Dev) XYFilter() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readField(regOSRDigFilt, fieldFiltXY)
}

// SetXYFilter sets the digital filter of the X and Y axes. filter must be in
// 0..7.
func (d *Dev) SetXYFilter(filter uint8) error {
	if filter > maxFilter {
		return fmt.Errorf("%w: %d", ErrInvalidFilter, filter)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateOSRDigFilt(fieldFiltXY, filter)
}

// TemperatureFilter returns the digital filter setting of the temperature
// channel.
func (d *Dev) TemperatureFilter() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readField(regOSRDigFilt, fieldFiltTemp)
}

// SetTemperatureFilter sets the digital filter of the temperature channel.
// filter must be in 0..7.
func (d *Dev) SetTemperatureFilter(filter uint8) error {
	if filter > maxFilter {
		return fmt.Errorf("%w: %d", ErrInvalidFilter, filter)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateOSRDigFilt(fieldFiltTemp, filter)
}

// ZFilter returns the digital filter setting of the Z axis.
func (d *Dev) ZFilter() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readField(regCustCtrl, fieldFiltZ)
}

// SetZFilter sets the digital filter of the Z axis. filter must be in 0..7.
func (d *Dev) SetZFilter(filter uint8) error {
	if filter > maxFilter {
		return fmt.Errorf("%w: %d", ErrInvalidFilter, filter)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCustomControl(fieldFiltZ, filter)
}

// TemperatureCompensation reports whether temperature measurement and
// compensation is enabled.
func (d *Dev) TemperatureCompensation() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readField(regCustCtrl, fieldTComp)
	return v != 0, err
}

// SetTemperatureCompensation enables or disables temperature measurement and
// compensation.
func (d *Dev) SetTemperatureCompensation(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCustomControl(fieldTComp, boolBit(enable))
}

// ReadConfiguration reads both control registers.
func (d *Dev) ReadConfiguration() (Configuration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	osr, err := d.readRegister(regOSRDigFilt)
	if err != nil {
		return Configuration{}, err
	}
	cust, err := d.readRegister(regCustCtrl)
	if err != nil {
		return Configuration{}, err
	}
	return decodeConfiguration(osr, cust), nil
}

// SetConfiguration writes both control registers. Every bit of the two
// registers is defined by c, so no read is needed first.
func (d *Dev) SetConfiguration(c Configuration) error {
	if err := c.validate(); err != nil {
		return err
	}
	osr, cust := c.encode()
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeRegister(regOSRDigFilt, osr); err != nil {
		return err
	}
	return d.writeRegister(regCustCtrl, cust)
}
