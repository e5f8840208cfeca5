// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90392

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// Initial register contents used to check that unrelated bits survive a
// read-modify-write.
var initialBytes = []byte{0x00, 0xff, 0xc7, 0x5a, 0x38}

func TestOSRDigFiltRoundTrip(t *testing.T) {
	for _, test := range []struct {
		name  string
		shift uint
		set   func(*Dev, uint8) error
		get   func(*Dev) (uint8, error)
	}{
		{"XY", 3, (*Dev).SetXYFilter, (*Dev).XYFilter},
		{"Temperature", 0, (*Dev).SetTemperatureFilter, (*Dev).TemperatureFilter},
	} {
		for _, initial := range initialBytes {
			for v := uint8(0); v <= 7; v++ {
				t.Run(fmt.Sprintf("%s/0x%02x/%d", test.name, initial, v), func(t *testing.T) {
					mask := byte(0x07 << test.shift)
					want := initial&^mask | v<<test.shift
					ops := []i2ctest.IO{
						{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{initial}},
						{Addr: addr, W: []byte{regOSRDigFilt, want}},
						{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{want}},
					}
					dev, pb, _ := newPlayback(t, ops)
					if err := test.set(dev, v); err != nil {
						t.Fatal(err)
					}
					got, err := test.get(dev)
					if err != nil {
						t.Fatal(err)
					}
					if got != v {
						t.Errorf("read back %d, expected %d", got, v)
					}
					if err := pb.Close(); err != nil {
						t.Fatal(err)
					}
				})
			}
		}
	}
}

func TestZFilterReservedBits(t *testing.T) {
	for _, initial := range initialBytes {
		for v := uint8(0); v <= 7; v++ {
			t.Run(fmt.Sprintf("0x%02x/%d", initial, v), func(t *testing.T) {
				want := (initial&^0x07|v)&^0xd8 | 0x80
				ops := []i2ctest.IO{
					{Addr: addr, W: []byte{regCustCtrl}, R: []byte{initial}},
					{Addr: addr, W: []byte{regCustCtrl, want}},
					{Addr: addr, W: []byte{regCustCtrl}, R: []byte{want}},
				}
				dev, pb, _ := newPlayback(t, ops)
				if err := dev.SetZFilter(v); err != nil {
					t.Fatal(err)
				}
				got, err := dev.ZFilter()
				if err != nil {
					t.Fatal(err)
				}
				if got != v {
					t.Errorf("read back %d, expected %d", got, v)
				}
				// Bit 5 is the only bit carried over from the initial value.
				if want&0x20 != initial&0x20 {
					t.Errorf("T_COMP_EN changed: 0x%02x -> 0x%02x", initial, want)
				}
				if err := pb.Close(); err != nil {
					t.Fatal(err)
				}
			})
		}
	}
}

func TestTemperatureCompensation(t *testing.T) {
	for _, test := range []struct {
		initial byte
		enable  bool
		want    byte
	}{
		{0x5f, false, 0x87},
		{0x5f, true, 0xa7},
		{0x00, true, 0xa0},
		{0xff, false, 0x87},
		{0x80, false, 0x80},
	} {
		t.Run(fmt.Sprintf("0x%02x/%t", test.initial, test.enable), func(t *testing.T) {
			ops := []i2ctest.IO{
				{Addr: addr, W: []byte{regCustCtrl}, R: []byte{test.initial}},
				{Addr: addr, W: []byte{regCustCtrl, test.want}},
				{Addr: addr, W: []byte{regCustCtrl}, R: []byte{test.want}},
			}
			dev, pb, _ := newPlayback(t, ops)
			if err := dev.SetTemperatureCompensation(test.enable); err != nil {
				t.Fatal(err)
			}
			got, err := dev.TemperatureCompensation()
			if err != nil {
				t.Fatal(err)
			}
			if got != test.enable {
				t.Errorf("read back %t, expected %t", got, test.enable)
			}
			if err := pb.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestOSR(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0x3f}},
		{Addr: addr, W: []byte{regOSRDigFilt, 0xbf}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0xbf}},
		{Addr: addr, W: []byte{regOSRDigFilt, 0xff}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0xff}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0xff}},
		{Addr: addr, W: []byte{regOSRDigFilt, 0x7f}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0x7f}},
		{Addr: addr, W: []byte{regOSRDigFilt, 0x3f}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0x3f}},
	}
	dev, pb, _ := newPlayback(t, ops)
	if err := dev.SetMagneticOSR(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetTemperatureOSR(true); err != nil {
		t.Fatal(err)
	}
	if v, err := dev.MagneticOSR(); err != nil || !v {
		t.Fatalf("MagneticOSR()=%t, %v", v, err)
	}
	if err := dev.SetMagneticOSR(false); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetTemperatureOSR(false); err != nil {
		t.Fatal(err)
	}
	if v, err := dev.TemperatureOSR(); err != nil || v {
		t.Fatalf("TemperatureOSR()=%t, %v", v, err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutOfRangeNoBusTraffic(t *testing.T) {
	for _, test := range []struct {
		name string
		f    func(*Dev) error
		want error
	}{
		{"XYFilter", func(d *Dev) error { return d.SetXYFilter(8) }, ErrInvalidFilter},
		{"ZFilter", func(d *Dev) error { return d.SetZFilter(8) }, ErrInvalidFilter},
		{"TemperatureFilter", func(d *Dev) error { return d.SetTemperatureFilter(255) }, ErrInvalidFilter},
		{"Configuration", func(d *Dev) error { return d.SetConfiguration(Configuration{ZFilter: 9}) }, ErrInvalidFilter},
		{"Mode16", func(d *Dev) error { return d.SetMode(16) }, ErrInvalidMode},
		{"Mode255", func(d *Dev) error { return d.SetMode(255) }, ErrInvalidMode},
		{"SenseContinuous", func(d *Dev) error { _, err := d.SenseContinuous(SingleMeasurement); return err }, ErrInvalidMode},
	} {
		t.Run(test.name, func(t *testing.T) {
			record := &i2ctest.Record{}
			dev, err := NewI2C(record, addr, nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := test.f(dev); !errors.Is(err, test.want) {
				t.Fatalf("expected %v, got %v", test.want, err)
			}
			if len(record.Ops) != 0 {
				t.Fatalf("expected no bus transaction, got %#v", record.Ops)
			}
		})
	}
}

func TestRangeConvert(t *testing.T) {
	dev, _ := NewI2C(&i2ctest.Record{}, addr, nil)
	for _, test := range []struct {
		r    Range
		want float64
	}{
		{Range5mT, 15.0},
		{Range50mT, 150.0},
	} {
		dev.SetRange(test.r)
		if dev.Range() != test.r {
			t.Fatalf("Range()=%s expected %s", dev.Range(), test.r)
		}
		f := dev.Range().Convert(RawField{X: 100, Y: 100, Z: -100})
		if math.Abs(f.X-test.want) > 1e-9 || math.Abs(f.Y-test.want) > 1e-9 || math.Abs(f.Z+test.want) > 1e-9 {
			t.Errorf("%s: Convert(100)=%s expected %f", test.r, f, test.want)
		}
		if dev.Precision() != test.r.Sensitivity() {
			t.Errorf("%s: Precision()=%f", test.r, dev.Precision())
		}
	}
}

func TestConfiguration(t *testing.T) {
	c := Configuration{
		MagneticOSR:             true,
		TemperatureOSR:          false,
		XYFilter:                5,
		ZFilter:                 6,
		TemperatureFilter:       2,
		TemperatureCompensation: true,
	}
	// 0x14: 1 0 101 010, 0x15: 1 0 1 0 0 110
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{regOSRDigFilt, 0xaa}},
		{Addr: addr, W: []byte{regCustCtrl, 0xa6}},
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0xaa}},
		{Addr: addr, W: []byte{regCustCtrl}, R: []byte{0xa6}},
	}
	dev, pb, _ := newPlayback(t, ops)
	if err := dev.SetConfiguration(c); err != nil {
		t.Fatal(err)
	}
	got, err := dev.ReadConfiguration()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("configuration mismatch (-want +got):\n%s", diff)
	}
	if len(got.String()) == 0 {
		t.Error("invalid String() result")
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigurationFailure(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{regOSRDigFilt}, R: []byte{0xaa}},
		{Addr: addr, W: []byte{regCustCtrl}, R: []byte{}},
	}
	dev := &Dev{d: &i2c.Dev{Bus: &i2ctest.Playback{Ops: ops, DontPanic: true}, Addr: addr}, debug: noop}
	c, err := dev.ReadConfiguration()
	if err == nil {
		t.Fatal("expected error")
	}
	if c != (Configuration{}) {
		t.Fatalf("expected zero configuration, got %s", c)
	}
}

func TestRawFieldSub(t *testing.T) {
	got := RawField{X: 50, Y: 60, Z: -32768}.Sub(RawField{X: 10, Y: 70, Z: 1})
	if diff := cmp.Diff(RawField{X: 40, Y: -10, Z: 32767}, got); diff != "" {
		t.Errorf("Sub mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldMagnitude(t *testing.T) {
	if m := (Field{X: 3, Y: 4, Z: 12}).Magnitude(); math.Abs(m-13) > 1e-9 {
		t.Errorf("Magnitude()=%f expected 13", m)
	}
}
