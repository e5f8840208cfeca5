// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package embdi2c exposes a github.com/kidoman/embd I²C bus as a periph
// i2c.Bus, so drivers written against periph can run on hosts that are
// already managed through embd.
//
// Only register style transactions are supported: a write, a read, or a
// single register address byte followed by a read.
package embdi2c

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kidoman/embd"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	// Registers the embd host drivers (rpi, bbb, ...).
	_ "github.com/kidoman/embd/host/all"
)

// Conn is the subset of embd.I2CBus used by Bus.
type Conn interface {
	ReadBytes(addr byte, num int) ([]byte, error)
	WriteBytes(addr byte, value []byte) error
	ReadFromReg(addr, reg byte, value []byte) error
	Close() error
}

var (
	errAddr     = errors.New("embdi2c: only 7 bit addresses are supported")
	errTx       = errors.New("embdi2c: write then read needs a single register byte")
	errSpeed    = errors.New("embdi2c: bus speed is set by the host")
	errShortRes = errors.New("embdi2c: short read")
)

// Bus adapts an embd bus to i2c.Bus.
type Bus struct {
	mu   sync.Mutex
	c    Conn
	line byte
}

// Open initializes embd I²C support and returns the bus on line l.
func Open(l byte) (*Bus, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("embdi2c: %w", err)
	}
	return New(embd.NewI2CBus(l), l), nil
}

// New wraps an existing connection. line is only used by String.
func New(c Conn, line byte) *Bus {
	return &Bus{c: c, line: line}
}

func (b *Bus) String() string {
	return fmt.Sprintf("embd-i2c%d", b.line)
}

// Tx implements i2c.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return errAddr
	}
	a := byte(addr)
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case len(r) == 0:
		return b.c.WriteBytes(a, w)
	case len(w) == 0:
		v, err := b.c.ReadBytes(a, len(r))
		if err != nil {
			return err
		}
		if len(v) < len(r) {
			return errShortRes
		}
		copy(r, v)
		return nil
	case len(w) == 1:
		return b.c.ReadFromReg(a, w[0], r)
	default:
		return errTx
	}
}

// SetSpeed implements i2c.Bus. embd does not expose the bus clock.
func (b *Bus) SetSpeed(_ physic.Frequency) error {
	return errSpeed
}

// Close implements i2c.BusCloser.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.Close()
}

var _ i2c.BusCloser = &Bus{}
