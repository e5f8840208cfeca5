// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the KEY=VALUE configuration file of the mlx90392
// tool.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/melexis/mlx90392"
)

// Transports accepted by TRANSPORT.
const (
	TransportPeriph = "periph"
	TransportEmbd   = "embd"
)

// Config holds all application configuration values.
type Config struct {
	// I²C
	Bus       string
	Addr      uint16
	Transport string
	EmbdBus   byte

	// Sensor
	Range        mlx90392.Range
	Mode         mlx90392.Mode
	PollInterval time.Duration
	ReadyTimeout time.Duration

	// Optional register settings, nil when not configured.
	OSR        *bool
	OSRTemp    *bool
	FilterXY   *uint8
	FilterZ    *uint8
	FilterTemp *uint8
	TempComp   *bool

	// Outputs
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	HTTPListen   string
	SampleDB     string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:         mlx90392.DefaultAddress,
		Transport:    TransportPeriph,
		EmbdBus:      1,
		Range:        mlx90392.Range5mT,
		Mode:         mlx90392.Continuous10Hz,
		PollInterval: mlx90392.DefaultOpts.PollInterval,
		ReadyTimeout: mlx90392.DefaultOpts.ReadyTimeout,
		MQTTClientID: "mlx90392",
		MQTTTopic:    "sensors/mag/mlx90392",
		HTTPListen:   ":8080",
		SampleDB:     "mlx90392.db",
	}
}

// Load reads the configuration file at path on top of Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads KEY=VALUE lines from r on top of Default. Blank lines and
// lines starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}
		if err := cfg.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

// Set assigns one configuration key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "I2C_BUS":
		c.Bus = value
	case "I2C_ADDR":
		var v uint64
		if v, err = strconv.ParseUint(value, 0, 7); err == nil {
			c.Addr = uint16(v)
		}
	case "TRANSPORT":
		if value != TransportPeriph && value != TransportEmbd {
			return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportPeriph, TransportEmbd, value)
		}
		c.Transport = value
	case "EMBD_BUS":
		var v uint64
		if v, err = strconv.ParseUint(value, 0, 8); err == nil {
			c.EmbdBus = byte(v)
		}
	case "RANGE":
		c.Range, err = ParseRange(value)
	case "MODE":
		c.Mode, err = ParseMode(value)
	case "POLL_INTERVAL_MS":
		var ms int
		if ms, err = strconv.Atoi(value); err == nil {
			if ms <= 0 {
				return fmt.Errorf("POLL_INTERVAL_MS must be positive, got %d", ms)
			}
			c.PollInterval = time.Duration(ms) * time.Millisecond
		}
	case "READY_TIMEOUT_MS":
		var ms int
		if ms, err = strconv.Atoi(value); err == nil {
			if ms < 0 {
				c.ReadyTimeout = mlx90392.NoTimeout
			} else {
				c.ReadyTimeout = time.Duration(ms) * time.Millisecond
			}
		}
	case "OSR":
		c.OSR, err = parseBool(value)
	case "OSR_TEMP":
		c.OSRTemp, err = parseBool(value)
	case "FILTER_XY":
		c.FilterXY, err = parseFilter(value)
	case "FILTER_Z":
		c.FilterZ, err = parseFilter(value)
	case "FILTER_TEMP":
		c.FilterTemp, err = parseFilter(value)
	case "TEMP_COMP":
		c.TempComp, err = parseBool(value)
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC":
		c.MQTTTopic = value
	case "HTTP_LISTEN":
		c.HTTPListen = value
	case "SAMPLE_DB":
		c.SampleDB = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return nil
}

// Opts returns the driver options.
func (c *Config) Opts() *mlx90392.Opts {
	return &mlx90392.Opts{
		Range:        c.Range,
		PollInterval: c.PollInterval,
		ReadyTimeout: c.ReadyTimeout,
	}
}

// Apply merges the configured register settings into cfg and reports
// whether any was set.
func (c *Config) Apply(cfg *mlx90392.Configuration) bool {
	set := false
	if c.OSR != nil {
		cfg.MagneticOSR, set = *c.OSR, true
	}
	if c.OSRTemp != nil {
		cfg.TemperatureOSR, set = *c.OSRTemp, true
	}
	if c.FilterXY != nil {
		cfg.XYFilter, set = *c.FilterXY, true
	}
	if c.FilterZ != nil {
		cfg.ZFilter, set = *c.FilterZ, true
	}
	if c.FilterTemp != nil {
		cfg.TemperatureFilter, set = *c.FilterTemp, true
	}
	if c.TempComp != nil {
		cfg.TemperatureCompensation, set = *c.TempComp, true
	}
	return set
}

// ParseRange accepts "5mT" or "50mT".
func ParseRange(s string) (mlx90392.Range, error) {
	switch strings.ToLower(s) {
	case "5mt", "5":
		return mlx90392.Range5mT, nil
	case "50mt", "50":
		return mlx90392.Range50mT, nil
	}
	return 0, fmt.Errorf("unknown range %q", s)
}

// ParseMode accepts a mode name as printed by Mode.String or its number.
func ParseMode(s string) (mlx90392.Mode, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		if v > 15 {
			return 0, fmt.Errorf("%w: %d", mlx90392.ErrInvalidMode, v)
		}
		return mlx90392.Mode(v), nil
	}
	for m := mlx90392.Mode(0); m <= 15; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", mlx90392.ErrInvalidMode, s)
}

func parseBool(s string) (*bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFilter(s string) (*uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return nil, err
	}
	if v > 7 {
		return nil, mlx90392.ErrInvalidFilter
	}
	f := uint8(v)
	return &f, nil
}
