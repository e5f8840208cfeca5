// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package app

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/melexis/internal/config"
	"github.com/GermanBionicSystems/melexis/internal/plot"
	"github.com/GermanBionicSystems/melexis/internal/store"
	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/GermanBionicSystems/melexis/screen1d"
)

func (a *App) info(ctx context.Context, args []string) error {
	if err := parseArgs(a.newFlags("info"), args); err != nil {
		return err
	}
	d := a.Dev
	cid, err := d.ManufacturerID()
	if err != nil {
		return err
	}
	did, err := d.DeviceID()
	if err != nil {
		return err
	}
	mode, err := d.Mode()
	if err != nil {
		return err
	}
	st1, err := d.Status1()
	if err != nil {
		return err
	}
	st2, err := d.Status2()
	if err != nil {
		return err
	}
	c, err := d.ReadConfiguration()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "device:    %s\n", d)
	fmt.Fprintf(a.Out, "company:   0x%02x\n", cid)
	fmt.Fprintf(a.Out, "device id: 0x%02x\n", did)
	fmt.Fprintf(a.Out, "mode:      %s\n", mode)
	fmt.Fprintf(a.Out, "status:    DRDY=%s RT=%s HOVF=%s DOR=%s\n",
		onOff(st1.DataReady()), onOff(st1.ResetOccurred()), onOff(st2.Overflow()), onOff(st2.DataOverrun()))
	fmt.Fprintf(a.Out, "config:    %s\n", c)
	fmt.Fprintf(a.Out, "range:     %s (%.2fµT/LSB)\n", d.Range(), d.Precision())
	return nil
}

func (a *App) read(ctx context.Context, args []string) error {
	fs := a.newFlags("read")
	n := fs.Int("n", 1, "number of measurements")
	raw := fs.Bool("raw", false, "print counts instead of µT")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	for i := 0; i < *n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if *raw {
			r, err := a.Dev.SingleMeasurement()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.Out, r)
			continue
		}
		f, err := a.Dev.SingleMeasurementField()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s |B|=%.2fµT\n", f, f.Magnitude())
	}
	return nil
}

func (a *App) temp(ctx context.Context, args []string) error {
	if err := parseArgs(a.newFlags("temp"), args); err != nil {
		return err
	}
	t, err := a.Dev.Temperature()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, t)
	return nil
}

func (a *App) selfTest(ctx context.Context, args []string) error {
	if err := parseArgs(a.newFlags("selftest"), args); err != nil {
		return err
	}
	delta, err := a.Dev.SelfTest()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "self-test delta: %s\n", delta)
	return nil
}

func (a *App) reset(ctx context.Context, args []string) error {
	if err := parseArgs(a.newFlags("reset"), args); err != nil {
		return err
	}
	return a.Dev.Reset()
}

func (a *App) set(ctx context.Context, args []string) error {
	fs := a.newFlags("set")
	mode := fs.String("mode", "", "application mode, name or number")
	fs.Bool("osr", false, "magnetic oversampling")
	fs.Bool("osr-temp", false, "temperature oversampling")
	fs.Uint("xy", 0, "X/Y digital filter, 0..7")
	fs.Uint("z", 0, "Z digital filter, 0..7")
	fs.Uint("temp-filter", 0, "temperature digital filter, 0..7")
	fs.Bool("temp-comp", false, "temperature compensation")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	keys := map[string]string{
		"osr":         "OSR",
		"osr-temp":    "OSR_TEMP",
		"xy":          "FILTER_XY",
		"z":           "FILTER_Z",
		"temp-filter": "FILTER_TEMP",
		"temp-comp":   "TEMP_COMP",
	}
	changes := &config.Config{}
	var err error
	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok && err == nil {
			err = changes.Set(key, f.Value.String())
		}
	})
	if err != nil {
		return err
	}
	var scratch mlx90392.Configuration
	if changes.Apply(&scratch) {
		c, err := a.Dev.ReadConfiguration()
		if err != nil {
			return err
		}
		changes.Apply(&c)
		if err := a.Dev.SetConfiguration(c); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "config: %s\n", c)
	}
	if *mode != "" {
		m, err := config.ParseMode(*mode)
		if err != nil {
			return err
		}
		if err := a.Dev.SetMode(m); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "mode: %s\n", m)
	}
	return nil
}

var registerNames = []struct {
	addr byte
	name string
}{
	{0x00, "STAT1"},
	{0x01, "X_L"},
	{0x02, "X_H"},
	{0x03, "Y_L"},
	{0x04, "Y_H"},
	{0x05, "Z_L"},
	{0x06, "Z_H"},
	{0x07, "STAT2"},
	{0x08, "T_L"},
	{0x09, "T_H"},
	{0x0a, "CID"},
	{0x0b, "DID"},
	{0x10, "CTRL"},
	{0x14, "OSR_DIG_FILT"},
	{0x15, "CUST_CTRL"},
}

func (a *App) dump(ctx context.Context, args []string) error {
	if err := parseArgs(a.newFlags("dump"), args); err != nil {
		return err
	}
	for _, r := range registerNames {
		v, err := a.Dev.ReadRegister(r.addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "0x%02x %-12s 0x%02x %08b\n", r.addr, r.name, v, v)
	}
	return nil
}

// continuousMode returns the mode flag value, or the configured mode.
func (a *App) continuousMode(s string) (mlx90392.Mode, error) {
	if s == "" {
		return a.Config.Mode, nil
	}
	return config.ParseMode(s)
}

func (a *App) watch(ctx context.Context, args []string) error {
	fs := a.newFlags("watch")
	mode := fs.String("mode", "", "continuous mode, defaults to MODE")
	n := fs.Int("n", 0, "stop after n samples, 0 runs until interrupted")
	full := fs.Float64("full", screen1d.DefaultOpts.FullScale, "field drawn as a full bar, in µT")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	m, err := a.continuousMode(*mode)
	if err != nil {
		return err
	}
	screen := screen1d.New(&screen1d.Opts{FullScale: *full, W: a.Out})
	ch, err := a.Dev.SenseContinuous(m)
	if err != nil {
		return err
	}
	err = a.consume(ctx, ch, *n, func(s mlx90392.Measurement) error {
		if s.Err != nil {
			return s.Err
		}
		return screen.Field(s.Field)
	})
	if herr := a.Dev.Halt(); err == nil {
		err = herr
	}
	if herr := screen.Halt(); err == nil {
		err = herr
	}
	return err
}

// consume calls f for every sample of ch until ctx is done, ch is closed or
// n samples were handled when n > 0.
func (a *App) consume(ctx context.Context, ch <-chan mlx90392.Measurement, n int, f func(mlx90392.Measurement) error) error {
	for i := 0; n <= 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			if err := f(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// collect takes n single measurements in µT.
func (a *App) collect(ctx context.Context, n int) ([]mlx90392.Measurement, error) {
	out := make([]mlx90392.Measurement, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		raw, err := a.Dev.SingleMeasurement()
		if err != nil {
			return out, err
		}
		out = append(out, mlx90392.Measurement{
			Raw:   raw,
			Field: a.Dev.Range().Convert(raw),
			Time:  now(),
		})
	}
	return out, nil
}

func (a *App) plot(ctx context.Context, args []string) error {
	fs := a.newFlags("plot")
	n := fs.Int("n", 100, "number of measurements")
	path := fs.String("o", "mlx90392.png", "output PNG file, - for stdout")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	samples, err := a.collect(ctx, *n)
	if err != nil {
		return err
	}
	if *path == "-" {
		return plot.WritePNG(a.Out, samples, nil)
	}
	if err := plot.SavePNG(*path, samples, nil); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "wrote %d samples to %s\n", len(samples), *path)
	return nil
}

func (a *App) record(ctx context.Context, args []string) error {
	fs := a.newFlags("record")
	n := fs.Int("n", 100, "number of measurements")
	path := fs.String("db", a.Config.SampleDB, "SQLite database")
	show := fs.Int("show", 0, "print the last N stored samples")
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	s, err := store.Open(*path)
	if err != nil {
		return err
	}
	defer s.Close()
	samples, err := a.collect(ctx, *n)
	for _, m := range samples {
		if ierr := s.Insert(m); ierr != nil {
			return ierr
		}
	}
	if err != nil {
		return err
	}
	total, err := s.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "stored %d samples in %s (%d total)\n", len(samples), *path, total)
	if *show <= 0 {
		return nil
	}
	last, err := s.Last(*show)
	if err != nil {
		return err
	}
	for _, m := range last {
		fmt.Fprintf(a.Out, "%s %s %s\n", m.Time.UTC().Format(time.RFC3339Nano), m.Raw, m.Field)
	}
	return nil
}
