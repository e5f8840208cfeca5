// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package embdi2c

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/google/go-cmp/cmp"
)

type call struct {
	Op   string
	Addr byte
	Reg  byte
	Data []byte
}

// fakeConn serves register reads from regs and records every call.
type fakeConn struct {
	regs   map[byte][]byte
	calls  []call
	fail   error
	closed bool
}

func (f *fakeConn) ReadBytes(addr byte, num int) ([]byte, error) {
	f.calls = append(f.calls, call{Op: "read", Addr: addr, Data: make([]byte, num)})
	return make([]byte, num), f.fail
}

func (f *fakeConn) WriteBytes(addr byte, value []byte) error {
	f.calls = append(f.calls, call{Op: "write", Addr: addr, Data: append([]byte(nil), value...)})
	return f.fail
}

func (f *fakeConn) ReadFromReg(addr, reg byte, value []byte) error {
	f.calls = append(f.calls, call{Op: "readreg", Addr: addr, Reg: reg})
	if f.fail != nil {
		return f.fail
	}
	copy(value, f.regs[reg])
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestTx(t *testing.T) {
	c := &fakeConn{regs: map[byte][]byte{0x0b: {0x9a}}}
	b := New(c, 1)
	r := make([]byte, 1)
	if err := b.Tx(0x0c, []byte{0x0b}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x9a {
		t.Errorf("read 0x%02x", r[0])
	}
	if err := b.Tx(0x0c, []byte{0x10, 0x01}, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x0c, nil, make([]byte, 2)); err != nil {
		t.Fatal(err)
	}
	want := []call{
		{Op: "readreg", Addr: 0x0c, Reg: 0x0b},
		{Op: "write", Addr: 0x0c, Data: []byte{0x10, 0x01}},
		{Op: "read", Addr: 0x0c, Data: []byte{0, 0}},
	}
	if diff := cmp.Diff(want, c.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestTxErrors(t *testing.T) {
	b := New(&fakeConn{}, 1)
	if err := b.Tx(0x100, []byte{0}, nil); !errors.Is(err, errAddr) {
		t.Errorf("expected address error, got %v", err)
	}
	if err := b.Tx(0x0c, []byte{0, 1}, make([]byte, 1)); !errors.Is(err, errTx) {
		t.Errorf("expected tx error, got %v", err)
	}
	if err := b.SetSpeed(0); err == nil {
		t.Error("expected SetSpeed to fail")
	}
	boom := errors.New("nack")
	b = New(&fakeConn{fail: boom}, 1)
	if err := b.Tx(0x0c, []byte{0x0b}, make([]byte, 1)); !errors.Is(err, boom) {
		t.Errorf("expected bus error, got %v", err)
	}
}

func TestDriverOverEmbd(t *testing.T) {
	c := &fakeConn{regs: map[byte][]byte{
		0x01: {0x64, 0x00, 0x9c, 0xff, 0x00, 0x00},
	}}
	b := New(c, 1)
	dev, err := mlx90392.NewI2C(b, mlx90392.DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := dev.MagneticFieldRaw()
	if err != nil {
		t.Fatal(err)
	}
	if raw != (mlx90392.RawField{X: 100, Y: -100}) {
		t.Errorf("MagneticFieldRaw()=%s", raw)
	}
	if err := b.Close(); err != nil || !c.closed {
		t.Errorf("Close()=%v closed=%t", err, c.closed)
	}
	if b.String() != "embd-i2c1" {
		t.Errorf("String()=%q", b.String())
	}
}
