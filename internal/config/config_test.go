// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/google/go-cmp/cmp"
)

const sample = `
# bench setup
I2C_BUS=1
I2C_ADDR=0x3c
TRANSPORT=embd
RANGE=50mT
MODE=Continuous1400Hz
POLL_INTERVAL_MS=5
READY_TIMEOUT_MS=-1
FILTER_Z=6
TEMP_COMP=true
MQTT_BROKER = tcp://localhost:1883
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Bus = "1"
	want.Addr = 0x3c
	want.Transport = TransportEmbd
	want.Range = mlx90392.Range50mT
	want.Mode = mlx90392.Continuous1400Hz
	want.PollInterval = 5 * time.Millisecond
	want.ReadyTimeout = mlx90392.NoTimeout
	z, comp := uint8(6), true
	want.FilterZ = &z
	want.TempComp = &comp
	want.MQTTBroker = "tcp://localhost:1883"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	c := mlx90392.Configuration{XYFilter: 3}
	if !cfg.Apply(&c) {
		t.Fatal("expected settings to apply")
	}
	if diff := cmp.Diff(mlx90392.Configuration{XYFilter: 3, ZFilter: 6, TemperatureCompensation: true}, c); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}
	if Default().Apply(&c) {
		t.Error("default config should not change the device")
	}
	if o := cfg.Opts(); o.Range != mlx90392.Range50mT || o.ReadyTimeout != mlx90392.NoTimeout {
		t.Errorf("Opts()=%+v", o)
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"NOPE",
		"UNKNOWN=1",
		"I2C_ADDR=0x80",
		"TRANSPORT=spi",
		"RANGE=20mT",
		"MODE=16",
		"MODE=fast",
		"POLL_INTERVAL_MS=0",
		"FILTER_XY=8",
		"OSR=maybe",
	} {
		if _, err := Parse(strings.NewReader(line)); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
	_, err := Parse(strings.NewReader("FILTER_TEMP=9"))
	if !errors.Is(err, mlx90392.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for m := mlx90392.Mode(0); m <= 15; m++ {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if got != m {
			t.Errorf("ParseMode(%q)=%d", m.String(), got)
		}
	}
	for _, test := range []struct {
		s    string
		want mlx90392.Mode
	}{
		{"Continuous1400Hz", mlx90392.Continuous1400Hz},
		{"continuous700hz", mlx90392.Continuous700Hz},
		{"SelfTest", mlx90392.SelfTest},
		{"Mode(7)", mlx90392.Mode(7)},
	} {
		if m, err := ParseMode(test.s); err != nil || m != test.want {
			t.Errorf("ParseMode(%q)=%s, %v", test.s, m, err)
		}
	}
	if m, err := ParseMode("11"); err != nil || m != mlx90392.Continuous500Hz {
		t.Errorf("ParseMode(11)=%s, %v", m, err)
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mlx90392.conf")
	if err := os.WriteFile(p, []byte("SAMPLE_DB=/tmp/x.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleDB != "/tmp/x.db" {
		t.Errorf("SampleDB=%q", cfg.SampleDB)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
