// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// I2CAddr is the default I²C address of the PCA9685 on motor HATs.
const I2CAddr uint16 = 0x60

// NumChannels is the number of PWM outputs of one chip.
const NumChannels = 16

// Resolution is the number of counts in one PWM period.
const Resolution = 4096

const (
	// MinFrequency and MaxFrequency bound the frequencies SetFrequency
	// accepts. Requests outside the range are clamped.
	MinFrequency = 24 * physic.Hertz
	MaxFrequency = 1526 * physic.Hertz

	// InternalClock is the frequency of the on-chip oscillator.
	InternalClock = 25 * physic.MegaHertz
)

const (
	// Register addresses from the datasheet.
	_MODE1      byte = 0x00
	_MODE2      byte = 0x01
	_LED0_ON_L  byte = 0x06
	_ALL_LED_ON byte = 0xFA
	_PRESCALE   byte = 0xFE

	// MODE1 bits.
	_MODE1_RESTART byte = 0x80
	_MODE1_AI      byte = 0x20
	_MODE1_SLEEP   byte = 0x10
	_MODE1_ALLCALL byte = 0x01

	// MODE2 bits.
	_MODE2_OUTDRV byte = 0x04

	// Bit 12 of the ON and OFF count words, i.e. bit 4 of the high bytes.
	_FULL uint16 = 0x1000

	// Software reset is sent to the general call address.
	_GENERAL_CALL uint16 = 0x00
	_SWRST        byte   = 0x06

	_PRESCALE_MIN = 3
	_PRESCALE_MAX = 255

	// The oscillator needs 500µs to settle after leaving sleep.
	oscillatorSettle = 500 * time.Microsecond
)

// Opts holds the configuration options of the chip.
type Opts struct {
	// Frequency is the PWM frequency programmed by Init.
	Frequency physic.Frequency
	// Clock is the oscillator frequency used to derive the prescaler.
	Clock physic.Frequency
	// OpenDrain configures the outputs as open drain instead of totem pole.
	OpenDrain bool
}

// DefaultOpts is the configuration used by motor driver boards.
var DefaultOpts = Opts{
	Frequency: 1600 * physic.Hertz,
	Clock:     InternalClock,
}

// channel is the bookkeeping for one output. on and off hold the register
// words, including the full on / full off flag.
type channel struct {
	acquired bool
	disabled bool
	on, off  uint16
}

// Dev is a handle to a PCA9685 PWM controller.
type Dev struct {
	d    *i2c.Dev
	opts Opts

	// mu serializes every register write sequence.
	mu          sync.Mutex
	initialized bool
	mode1       byte
	prescale    byte

	// chMu guards channels. It is always taken before mu.
	chMu     sync.Mutex
	channels [NumChannels]channel
}

// New returns an initialized PCA9685. If opts is nil, DefaultOpts is used.
func New(bus i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: addr}, opts: *opts}
	if dev.opts.Clock == 0 {
		dev.opts.Clock = InternalClock
	}
	if dev.opts.Frequency == 0 {
		dev.opts.Frequency = DefaultOpts.Frequency
	}
	for i := range dev.channels {
		dev.channels[i].off = _FULL
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return dev, nil
}

// Init resets the chip, programs the prescaler for the configured frequency
// and restarts the oscillator with register auto-increment and all-call
// addressing. Calling Init on an initialized device does nothing.
//
// Init returns ErrDeviceNotFound if the chip does not answer.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if err := d.d.Bus.Tx(_GENERAL_CALL, []byte{_SWRST}, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	r := []byte{0}
	if err := d.d.Tx([]byte{_MODE1}, r); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	mode2 := _MODE2_OUTDRV
	if d.opts.OpenDrain {
		mode2 = 0
	}
	if err := d.write(_MODE2, mode2); err != nil {
		return err
	}
	prescale := Prescale(d.opts.Clock, clamp(d.opts.Frequency))
	if err := d.program(_MODE1_AI|_MODE1_ALLCALL, prescale); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// program puts the oscillator to sleep, writes the prescaler and restarts
// with the given MODE1 value. The caller must hold mu.
func (d *Dev) program(mode1, prescale byte) error {
	mode1 &^= _MODE1_RESTART | _MODE1_SLEEP
	if err := d.write(_MODE1, mode1|_MODE1_SLEEP); err != nil {
		return err
	}
	if err := d.write(_PRESCALE, prescale); err != nil {
		return err
	}
	if err := d.write(_MODE1, mode1); err != nil {
		return err
	}
	time.Sleep(oscillatorSettle)
	// The oscillator is already running; RESTART takes effect at once and
	// needs no second settle delay.
	if err := d.write(_MODE1, mode1|_MODE1_RESTART); err != nil {
		return err
	}
	d.mode1 = mode1
	d.prescale = prescale
	return nil
}

func (d *Dev) write(reg, value byte) error {
	return d.d.Tx([]byte{reg, value}, nil)
}

// Prescale returns the prescaler value producing the frequency closest to f
// for the given oscillator clock:
//
//	round(clock / (f * 4096)) - 1
//
// The result is limited to the range the chip accepts.
func Prescale(clock, f physic.Frequency) byte {
	if f <= 0 {
		return _PRESCALE_MAX
	}
	p := math.Round(float64(clock)/(float64(f)*Resolution)) - 1
	if p < _PRESCALE_MIN {
		p = _PRESCALE_MIN
	}
	if p > _PRESCALE_MAX {
		p = _PRESCALE_MAX
	}
	return byte(p)
}

// FrequencyOf returns the PWM frequency produced by a prescaler value.
func FrequencyOf(clock physic.Frequency, prescale byte) physic.Frequency {
	return physic.Frequency(math.Round(float64(clock) / (Resolution * (float64(prescale) + 1))))
}

func clamp(f physic.Frequency) physic.Frequency {
	if f < MinFrequency {
		return MinFrequency
	}
	if f > MaxFrequency {
		return MaxFrequency
	}
	return f
}

// SetFrequency sets the PWM frequency of all channels and returns the actual
// frequency, which is quantized by the 8-bit prescaler.
//
// f is clamped to [MinFrequency, MaxFrequency].
func (d *Dev) SetFrequency(f physic.Frequency) (physic.Frequency, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, ErrNotInitialized
	}
	prescale := Prescale(d.opts.Clock, clamp(f))
	if err := d.program(d.mode1, prescale); err != nil {
		return 0, err
	}
	return FrequencyOf(d.opts.Clock, prescale), nil
}

// Frequency returns the PWM frequency currently programmed.
func (d *Dev) Frequency() physic.Frequency {
	d.mu.Lock()
	defer d.mu.Unlock()
	return FrequencyOf(d.opts.Clock, d.prescale)
}

// AcquireChannel takes exclusive ownership of a channel.
func (d *Dev) AcquireChannel(ch int) error {
	if err := checkRange(ch); err != nil {
		return err
	}
	d.chMu.Lock()
	defer d.chMu.Unlock()
	if d.channels[ch].acquired {
		return fmt.Errorf("%w: %d", ErrChannelBusy, ch)
	}
	d.channels[ch] = channel{acquired: true, off: _FULL}
	return nil
}

// ReleaseChannel turns the channel fully off and gives up ownership. The
// channel is released even if the bus write fails.
func (d *Dev) ReleaseChannel(ch int) error {
	if err := checkRange(ch); err != nil {
		return err
	}
	d.chMu.Lock()
	defer d.chMu.Unlock()
	if !d.channels[ch].acquired {
		return fmt.Errorf("%w: %d", ErrChannelNotAcquired, ch)
	}
	d.channels[ch] = channel{off: _FULL}
	return d.writePulse(ch, 0, _FULL)
}

// Acquired reports whether the channel is owned.
func (d *Dev) Acquired(ch int) bool {
	if checkRange(ch) != nil {
		return false
	}
	d.chMu.Lock()
	defer d.chMu.Unlock()
	return d.channels[ch].acquired
}

// SetDutyCycle sets the fraction of the period during which the channel is
// energized. With invert, the output is active low, so the pin is high for
// 1-duty of the period.
//
// A duty that rounds to the full period selects the full on state, zero
// selects the full off state.
func (d *Dev) SetDutyCycle(ch int, duty float64, invert bool) error {
	if math.IsNaN(duty) || duty < 0 || duty > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidDuty, duty)
	}
	high := duty
	if invert {
		high = 1 - duty
	}
	on, off := pulse(int(math.Round(high * Resolution)))
	return d.setPulse(ch, on, off)
}

// pulse returns the register words for a pulse that is high for count
// ticks of the period.
func pulse(count int) (on, off uint16) {
	switch {
	case count >= Resolution:
		return _FULL, 0
	case count <= 0:
		return 0, _FULL
	default:
		return 0, uint16(count)
	}
}

// SetPulse programs the raw on and off counts of a channel. Both must be
// below Resolution.
func (d *Dev) SetPulse(ch int, on, off uint16) error {
	if on >= Resolution || off >= Resolution {
		return fmt.Errorf("%w: pulse %d/%d", ErrConfiguration, on, off)
	}
	return d.setPulse(ch, on, off)
}

func (d *Dev) setPulse(ch int, on, off uint16) error {
	if err := checkRange(ch); err != nil {
		return err
	}
	d.chMu.Lock()
	defer d.chMu.Unlock()
	c := &d.channels[ch]
	if !c.acquired {
		return fmt.Errorf("%w: %d", ErrChannelNotAcquired, ch)
	}
	c.on, c.off = on, off
	if c.disabled {
		return nil
	}
	return d.writePulse(ch, on, off)
}

// Disable forces the channel fully off. The programmed duty cycle is kept
// and restored by Enable; duty changes made while disabled take effect on
// Enable.
func (d *Dev) Disable(ch int) error {
	return d.setDisabled(ch, true)
}

// Enable resumes the programmed output of a channel disabled with Disable.
func (d *Dev) Enable(ch int) error {
	return d.setDisabled(ch, false)
}

func (d *Dev) setDisabled(ch int, disabled bool) error {
	if err := checkRange(ch); err != nil {
		return err
	}
	d.chMu.Lock()
	defer d.chMu.Unlock()
	c := &d.channels[ch]
	if !c.acquired {
		return fmt.Errorf("%w: %d", ErrChannelNotAcquired, ch)
	}
	c.disabled = disabled
	if disabled {
		return d.writePulse(ch, c.on, c.off|_FULL)
	}
	return d.writePulse(ch, c.on, c.off)
}

// writePulse writes the four count registers of a channel in one
// auto-incremented transaction.
func (d *Dev) writePulse(ch int, on, off uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	reg := _LED0_ON_L + 4*byte(ch)
	return d.d.Tx([]byte{reg, byte(on), byte(on >> 8), byte(off), byte(off >> 8)}, nil)
}

func checkRange(ch int) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	return nil
}

// Halt turns every channel fully off through the ALL_LED registers.
// Channel ownership and programmed duty cycles are kept.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	return d.d.Tx([]byte{_ALL_LED_ON, 0, 0, 0, byte(_FULL >> 8)}, nil)
}

func (d *Dev) String() string {
	return fmt.Sprintf("PCA9685{%s}", d.d)
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
