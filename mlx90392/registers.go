// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90392

import (
	"fmt"
)

// Register map.
const (
	regStatus1    byte = 0x00
	regMagX       byte = 0x01 // X, Y, Z as low/high byte pairs up to 0x06.
	regStatus2    byte = 0x07
	regTemp       byte = 0x08 // low/high
	regCompanyID  byte = 0x0a
	regDeviceID   byte = 0x0b
	regCtrl       byte = 0x10
	regReset      byte = 0x11
	regOSRDigFilt byte = 0x14
	regCustCtrl   byte = 0x15

	cmdReset byte = 0x06
)

// readBytes selects reg and reads n bytes back with a repeated start. A short
// or failed read returns nil.
func (d *Dev) readBytes(reg byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := d.d.Tx([]byte{reg}, r); err != nil {
		return nil, fmt.Errorf("mlx90392: read 0x%02x: %w", reg, err)
	}
	d.debug("read 0x%02x % x", reg, r)
	return r, nil
}

// writeBytes writes the register address followed by payload in a single
// transaction.
func (d *Dev) writeBytes(reg byte, payload ...byte) error {
	w := make([]byte, 0, len(payload)+1)
	w = append(w, reg)
	w = append(w, payload...)
	d.debug("write 0x%02x % x", reg, payload)
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("mlx90392: write 0x%02x: %w", reg, err)
	}
	return nil
}

func (d *Dev) readRegister(reg byte) (byte, error) {
	r, err := d.readBytes(reg, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Dev) writeRegister(reg, value byte) error {
	return d.writeBytes(reg, value)
}

// ReadRegister returns the content of a single register.
func (d *Dev) ReadRegister(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegister(reg)
}

// WriteRegister writes value to a single register. No validation is done on
// either the address or the value.
func (d *Dev) WriteRegister(reg, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(reg, value)
}
