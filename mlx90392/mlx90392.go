// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90392

import (
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/melexis/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// I²C addresses of the part variants.
const (
	AddrAAA010 uint16 = 0x0c
	AddrAAA011 uint16 = 0x0c
	AddrAAA013 uint16 = 0x3c

	DefaultAddress = AddrAAA010
)

// Mode is the application mode held in CTRL.MODE.
type Mode uint8

const (
	PowerDown         Mode = 0
	SingleMeasurement Mode = 1
	Continuous10Hz    Mode = 2
	Continuous20Hz    Mode = 3
	Continuous50Hz    Mode = 4
	Continuous100Hz   Mode = 5
	SelfTest          Mode = 6
	Continuous200Hz   Mode = 10
	Continuous500Hz   Mode = 11
	Continuous700Hz   Mode = 12
	Continuous1400Hz  Mode = 13
)

var modeFrequencies = map[Mode]physic.Frequency{
	Continuous10Hz:   10 * physic.Hertz,
	Continuous20Hz:   20 * physic.Hertz,
	Continuous50Hz:   50 * physic.Hertz,
	Continuous100Hz:  100 * physic.Hertz,
	Continuous200Hz:  200 * physic.Hertz,
	Continuous500Hz:  500 * physic.Hertz,
	Continuous700Hz:  700 * physic.Hertz,
	Continuous1400Hz: 1400 * physic.Hertz,
}

// Frequency returns the output data rate of a continuous mode, or 0.
func (m Mode) Frequency() physic.Frequency {
	return modeFrequencies[m]
}

// Continuous reports whether m is one of the fixed rate continuous modes.
func (m Mode) Continuous() bool {
	return m.Frequency() != 0
}

var modeNames = map[Mode]string{
	PowerDown:         "PowerDown",
	SingleMeasurement: "SingleMeasurement",
	Continuous10Hz:    "Continuous10Hz",
	Continuous20Hz:    "Continuous20Hz",
	Continuous50Hz:    "Continuous50Hz",
	Continuous100Hz:   "Continuous100Hz",
	SelfTest:          "SelfTest",
	Continuous200Hz:   "Continuous200Hz",
	Continuous500Hz:   "Continuous500Hz",
	Continuous700Hz:   "Continuous700Hz",
	Continuous1400Hz:  "Continuous1400Hz",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Status1 is the content of the ST1 register.
type Status1 uint8

// DataReady reports the DRDY bit.
func (s Status1) DataReady() bool { return s&0x01 != 0 }

// ResetOccurred reports the RT bit.
func (s Status1) ResetOccurred() bool { return s&0x08 != 0 }

// Status2 is the content of the ST2 register.
type Status2 uint8

// Overflow reports the HOVF bit, set when the magnetic sensor saturated.
func (s Status2) Overflow() bool { return s&0x01 != 0 }

// DataOverrun reports the DOR bit, set when a sample was skipped.
func (s Status2) DataOverrun() bool { return s&0x02 != 0 }

// NoTimeout as Opts.ReadyTimeout makes data ready polling wait forever.
const NoTimeout time.Duration = -1

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// Opts holds the configuration options for the device.
type Opts struct {
	// Range of the fitted part. Default is Range5mT.
	Range Range
	// PollInterval is the delay between two reads of the data ready flag.
	// Default is 10ms. Leave 0 to use default.
	PollInterval time.Duration
	// ReadyTimeout bounds the wait for the data ready flag. Default is 1s.
	// Leave 0 to use default, NoTimeout to wait forever.
	ReadyTimeout time.Duration
	// Sleep is the blocking delay. Default is time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Range:        Range5mT,
	PollInterval: 10 * time.Millisecond,
	ReadyTimeout: time.Second,
}

const settleDelay = 100 * time.Millisecond

// Measurement is a sample emitted by SenseContinuous.
type Measurement struct {
	Raw   RawField
	Field Field
	Time  time.Time
	// Err is set when the sample could not be read.
	Err error
}

// Dev is a handle to an MLX90392.
//
// Operations issued through one Dev are serialized. Nothing prevents another
// user of the bus from touching the same registers.
type Dev struct {
	d     *i2c.Dev
	mu    sync.Mutex
	opts  Opts
	rng   Range
	debug DebugF
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewI2C returns a handle to the MLX90392 at addr on b. No bus transaction is
// issued; call Init to probe the device. The Opts can be nil.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultOpts.PollInterval
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = DefaultOpts.ReadyTimeout
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: o, rng: o.Range, debug: noop}, nil
}

// EnableDebug sets the debugging output using the local print function.
func (d *Dev) EnableDebug(f DebugF) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f == nil {
		f = noop
	}
	d.debug = f
}

// Init probes the device by reading its identification registers.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.readBytes(regCompanyID, 2)
	if err != nil {
		return fmt.Errorf("mlx90392: init: %w", err)
	}
	d.debug("company id 0x%02x device id 0x%02x", id[0], id[1])
	return nil
}

// MagneticFieldRaw reads the last X, Y, Z sample in counts.
func (d *Dev) MagneticFieldRaw() (RawField, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readField3()
}

// MagneticField reads the last X, Y, Z sample scaled with the current Range.
func (d *Dev) MagneticField() (Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.readField3()
	if err != nil {
		return Field{}, err
	}
	return d.rng.Convert(raw), nil
}

func (d *Dev) readField3() (RawField, error) {
	b, err := d.readBytes(regMagX, 6)
	if err != nil {
		return RawField{}, err
	}
	return decodeField(b), nil
}

// Temperature returns the raw temperature count.
func (d *Dev) Temperature() (int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.readBytes(regTemp, 2)
	if err != nil {
		return 0, err
	}
	return common.Int16LE(b[0], b[1]), nil
}

// Mode returns the current application mode as reported by the device.
func (d *Dev) Mode() (Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode()
}

func (d *Dev) mode() (Mode, error) {
	v, err := d.readField(regCtrl, fieldMode)
	return Mode(v), err
}

// SetMode writes the application mode. Values above 15 are rejected without
// touching the bus.
func (d *Dev) SetMode(m Mode) error {
	if !fieldMode.Fits(uint8(m)) {
		return fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(m)
}

func (d *Dev) setMode(m Mode) error {
	return d.writeRegister(regCtrl, byte(m))
}

// Status1 reads ST1.
func (d *Dev) Status1() (Status1, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.readRegister(regStatus1)
	return Status1(s), err
}

// Status2 reads ST2.
func (d *Dev) Status2() (Status2, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.readRegister(regStatus2)
	return Status2(s), err
}

// IsDataReady reads ST1 and returns the DRDY bit.
func (d *Dev) IsDataReady() (bool, error) {
	s, err := d.Status1()
	return s.DataReady(), err
}

// IsDeviceReset reads ST1 and returns the RT bit.
func (d *Dev) IsDeviceReset() (bool, error) {
	s, err := d.Status1()
	return s.ResetOccurred(), err
}

// IsDataOverrun reads ST2 and returns the DOR bit.
func (d *Dev) IsDataOverrun() (bool, error) {
	s, err := d.Status2()
	return s.DataOverrun(), err
}

// IsMagneticOverflow reads ST2 and returns the HOVF bit.
func (d *Dev) IsMagneticOverflow() (bool, error) {
	s, err := d.Status2()
	return s.Overflow(), err
}

// Reset issues a soft reset.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(regReset, cmdReset)
}

// ManufacturerID returns the company ID register.
func (d *Dev) ManufacturerID() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegister(regCompanyID)
}

// DeviceID returns the device ID register.
func (d *Dev) DeviceID() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegister(regDeviceID)
}

// Range returns the range used to scale samples.
func (d *Dev) Range() Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng
}

// SetRange sets the range used to scale samples. It is not written to the
// device and is not checked against it.
func (d *Dev) SetRange(r Range) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng = r
}

// Precision returns the size of one count in µT for the current Range.
func (d *Dev) Precision() float64 {
	return d.Range().Sensitivity()
}

// waitReady polls DRDY until it is set. A failed status read aborts.
func (d *Dev) waitReady() error {
	budget := -1
	if d.opts.ReadyTimeout > 0 {
		budget = int((d.opts.ReadyTimeout + d.opts.PollInterval - 1) / d.opts.PollInterval)
	}
	for polls := 1; ; polls++ {
		s, err := d.readRegister(regStatus1)
		if err != nil {
			return err
		}
		if Status1(s).DataReady() {
			return nil
		}
		if budget > 0 && polls >= budget {
			return &ReadyTimeoutError{Polls: polls}
		}
		d.opts.Sleep(d.opts.PollInterval)
	}
}

// measure switches to m, waits for data ready and reads the sample.
func (d *Dev) measure(m Mode) (RawField, error) {
	if err := d.setMode(m); err != nil {
		return RawField{}, err
	}
	if err := d.waitReady(); err != nil {
		return RawField{}, err
	}
	return d.readField3()
}

// SingleMeasurement triggers a single measurement and returns it in counts.
func (d *Dev) SingleMeasurement() (RawField, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.measure(SingleMeasurement)
}

// SingleMeasurementField triggers a single measurement and returns it in µT.
func (d *Dev) SingleMeasurementField() (Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := d.measure(SingleMeasurement)
	if err != nil {
		return Field{}, err
	}
	return d.rng.Convert(raw), nil
}

// SelfTest runs the built-in self-test and returns the difference between a
// normal measurement and the self-test measurement.
//
// The previous mode is restored only when every step succeeded. On error the
// device may be left in PowerDown or SelfTest mode.
func (d *Dev) SelfTest() (RawField, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	orig, err := d.mode()
	if err != nil {
		return RawField{}, err
	}
	if err := d.setMode(PowerDown); err != nil {
		return RawField{}, err
	}
	d.opts.Sleep(settleDelay)
	baseline, err := d.measure(SelfTest)
	if err != nil {
		return RawField{}, err
	}
	d.opts.Sleep(settleDelay)
	comparison, err := d.measure(SingleMeasurement)
	if err != nil {
		return RawField{}, err
	}
	if err := d.setMode(orig); err != nil {
		return RawField{}, err
	}
	d.debug("self-test baseline %s comparison %s", baseline, comparison)
	return comparison.Sub(baseline), nil
}

// SenseContinuous puts the device in the continuous mode m and polls it at
// the mode's data rate, writing each sample to the returned channel. To
// terminate the continuous read, call Halt().
func (d *Dev) SenseContinuous(m Mode) (<-chan Measurement, error) {
	if !m.Continuous() {
		return nil, fmt.Errorf("%w: %s is not a continuous mode", ErrInvalidMode, m)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errSensing
	}
	if err := d.setMode(m); err != nil {
		return nil, err
	}
	const channelSize = 16
	ch := make(chan Measurement, channelSize)
	d.stop = make(chan struct{})
	d.wg.Add(1)
	go d.sense(m.Frequency().Period(), ch, d.stop)
	return ch, nil
}

func (d *Dev) sense(period time.Duration, ch chan<- Measurement, stop <-chan struct{}) {
	defer d.wg.Done()
	defer close(ch)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m, ok := d.poll()
			if !ok {
				continue
			}
			select {
			case ch <- m:
			default:
			}
		}
	}
}

// poll returns a sample if DRDY is set.
func (d *Dev) poll() (Measurement, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := Measurement{Time: time.Now()}
	s, err := d.readRegister(regStatus1)
	if err != nil {
		m.Err = err
		return m, true
	}
	if !Status1(s).DataReady() {
		return m, false
	}
	if m.Raw, m.Err = d.readField3(); m.Err == nil {
		m.Field = d.rng.Convert(m.Raw)
	}
	return m, true
}

// Halt stops a SenseContinuous operation if one is in progress and puts the
// device in PowerDown mode. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(PowerDown)
}

func (d *Dev) String() string {
	return fmt.Sprintf("mlx90392: %s", d.d.String())
}

func noop(string, ...interface{}) {}

var _ conn.Resource = &Dev{}
