// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package app implements the mlx90392 command line tool.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/GermanBionicSystems/melexis/embdi2c"
	"github.com/GermanBionicSystems/melexis/internal/config"
	"github.com/GermanBionicSystems/melexis/mlx90392"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// App runs commands against one device.
type App struct {
	Dev    *mlx90392.Dev
	Config *config.Config
	Out    io.Writer
}

type command struct {
	help string
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"info":     {"print IDs, mode, status and configuration", (*App).info},
	"read":     {"take single measurements", (*App).read},
	"temp":     {"print the raw temperature count", (*App).temp},
	"selftest": {"run the built-in self-test", (*App).selfTest},
	"reset":    {"issue a soft reset", (*App).reset},
	"set":      {"write mode and configuration", (*App).set},
	"dump":     {"print every documented register", (*App).dump},
	"watch":    {"display continuous samples on the terminal", (*App).watch},
	"plot":     {"render samples to a PNG file", (*App).plot},
	"record":   {"store samples in SQLite", (*App).record},
	"serve":    {"publish continuous samples to MQTT, websocket and metrics", (*App).serve},
}

// flagKeys maps global flags to configuration keys.
var flagKeys = map[string]string{
	"bus":       "I2C_BUS",
	"addr":      "I2C_ADDR",
	"transport": "TRANSPORT",
	"range":     "RANGE",
}

// Main parses args, opens the device and runs the requested command.
func Main(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mlx90392", flag.ContinueOnError)
	fs.SetOutput(out)
	cfgPath := fs.String("config", "", "KEY=VALUE configuration file")
	fs.String("bus", "", "I²C bus name for periph")
	fs.String("addr", "", "I²C address, e.g. 0x0c")
	fs.String("transport", "", "bus driver: periph or embd")
	fs.String("range", "", "range of the part: 5mT or 50mT")
	verbose := fs.Bool("v", false, "log every register access")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(fs)
		return flag.ErrHelp
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && ferr == nil {
			ferr = cfg.Set(key, f.Value.String())
		}
	})
	if ferr != nil {
		return ferr
	}

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	dev, err := mlx90392.NewI2C(bus, cfg.Addr, cfg.Opts())
	if err != nil {
		return err
	}
	if *verbose {
		dev.EnableDebug(log.Printf)
	}
	if err := dev.Init(); err != nil {
		return err
	}
	a := &App{Dev: dev, Config: cfg, Out: out}
	if err := a.configure(); err != nil {
		return err
	}
	return cmd.run(a, ctx, fs.Args()[1:])
}

// Run runs the named command.
func (a *App) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd.run(a, ctx, args)
}

// configure writes the register settings present in the configuration.
func (a *App) configure() error {
	var scratch mlx90392.Configuration
	if !a.Config.Apply(&scratch) {
		return nil
	}
	c, err := a.Dev.ReadConfiguration()
	if err != nil {
		return err
	}
	a.Config.Apply(&c)
	return a.Dev.SetConfiguration(c)
}

func openBus(cfg *config.Config) (i2c.BusCloser, error) {
	if cfg.Transport == config.TransportEmbd {
		return embdi2c.Open(cfg.EmbdBus)
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C: %w", err)
	}
	return b, nil
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "usage: mlx90392 [flags] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-9s %s\n", n, commands[n].help)
	}
	fmt.Fprintf(w, "\nflags:\n")
	fs.PrintDefaults()
}

// newFlags returns the flag set of a command.
func (a *App) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

// onOff formats a flag bit.
func onOff(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var errParse = errors.New("invalid argument")

func parseArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: %s", errParse, strings.Join(fs.Args(), " "))
	}
	return nil
}
