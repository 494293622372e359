// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/motorhat/pca9685"
	"github.com/GermanBionicSystems/motorhat/stepper"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// Playback of New with DefaultOpts.
var pbInit = []i2ctest.IO{
	{Addr: 0x00, W: []uint8{0x06}},
	{Addr: 0x60, W: []uint8{0x00}, R: []uint8{0x11}},
	{Addr: 0x60, W: []uint8{0x01, 0x04}},
	{Addr: 0x60, W: []uint8{0x00, 0x31}},
	{Addr: 0x60, W: []uint8{0xfe, 0x03}},
	{Addr: 0x60, W: []uint8{0x00, 0x21}},
	{Addr: 0x60, W: []uint8{0x00, 0xa1}},
}

func led(ch int, on, off uint16) i2ctest.IO {
	return i2ctest.IO{Addr: 0x60, W: []uint8{0x06 + 4*uint8(ch), uint8(on), uint8(on >> 8), uint8(off), uint8(off >> 8)}}
}

func high(ch int) i2ctest.IO {
	return led(ch, 0x1000, 0)
}

func low(ch int) i2ctest.IO {
	return led(ch, 0, 0x1000)
}

func newTestHat(t *testing.T, ops ...i2ctest.IO) (*Hat, *i2ctest.Playback) {
	t.Helper()
	b := &i2ctest.Playback{Ops: append(append([]i2ctest.IO{}, pbInit...), ops...)}
	h, err := New(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	return h, b
}

func closePlayback(t *testing.T, b *i2ctest.Playback) {
	t.Helper()
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStepper(t *testing.T) {
	h, b := newTestHat(t,
		// Step to (1,-1): B reversed, then A forward, then both currents.
		low(11), high(12),
		low(9), high(10),
		high(8), high(13),
		// Stop.
		low(11), low(12),
		low(10), low(9),
		low(8), low(13),
		// Release of the channels of M1 then M2.
		low(10), low(9), low(8),
		low(11), low(12), low(13),
	)
	s, err := h.Stepper(M1, M2, 200, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []Port{M1, M2} {
		if h.Available(p) {
			t.Errorf("%s not allocated", p)
		}
	}
	if !h.Available(M3) || !h.Available(M4) {
		t.Error("unused ports allocated")
	}
	if err := s.SetSpeed(600); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(1, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	if s.Position() != 1 || s.State() != stepper.Braking {
		t.Errorf("position %d state %s", s.Position(), s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(1, stepper.Forward); !errors.Is(err, ErrClosed) {
		t.Errorf("expected %v, got %v", ErrClosed, err)
	}
	if !h.Available(M1) || !h.Available(M2) {
		t.Error("ports not freed by Close")
	}
	closePlayback(t, b)
}

func TestHaltThenBrake(t *testing.T) {
	step := []i2ctest.IO{
		low(11), high(12),
		low(9), high(10),
		high(8), high(13),
	}
	ops := append([]i2ctest.IO{}, step...)
	ops = append(ops, i2ctest.IO{Addr: 0x60, W: []uint8{0xfa, 0x00, 0x00, 0x00, 0x10}})
	// Brake after Halt writes both windings again.
	ops = append(ops, step...)
	h, b := newTestHat(t, ops...)
	s, err := h.Stepper(M1, M2, 200, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetSpeed(600); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(1, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	if err := h.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := s.Brake(); err != nil {
		t.Fatal(err)
	}
	if s.State() != stepper.Braking {
		t.Errorf("state %s, want %s", s.State(), stepper.Braking)
	}
	closePlayback(t, b)
}

func TestStepperPorts(t *testing.T) {
	h, b := newTestHat(t)
	for _, test := range []struct {
		name string
		a, b Port
		want error
	}{
		{"same port", M2, M2, ErrDuplicatePort},
		{"port 0", 0, M1, ErrInvalidPort},
		{"port 5", M1, 5, ErrInvalidPort},
	} {
		_, err := h.Stepper(test.a, test.b, 200, nil)
		if !errors.Is(err, test.want) || !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}
	for p := M1; p <= M4; p++ {
		if !h.Available(p) {
			t.Errorf("%s allocated after failures", p)
		}
	}
	closePlayback(t, b)
}

func TestStepperReleasesOnError(t *testing.T) {
	h, b := newTestHat(t,
		// M1 is released when M3 turns out to be busy.
		low(10), low(9), low(8),
		// Both ports are released when the scheduler rejects the motor.
		low(10), low(9), low(8),
		low(11), low(12), low(13),
	)
	if _, err := h.DCMotor(M3); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Stepper(M1, M3, 200, nil); !errors.Is(err, pca9685.ErrChannelBusy) {
		t.Fatalf("expected %v, got %v", pca9685.ErrChannelBusy, err)
	}
	if !h.Available(M1) {
		t.Error("M1 still allocated")
	}
	if _, err := h.Stepper(M1, M2, 0, nil); !errors.Is(err, stepper.ErrInvalidSetting) {
		t.Fatalf("expected %v, got %v", stepper.ErrInvalidSetting, err)
	}
	closePlayback(t, b)
}

func TestStepperStyle(t *testing.T) {
	h, b := newTestHat(t)
	s, err := h.Stepper(M3, M4, 200, &stepper.Opts{FinishOnFullStep: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Engine().Style(); got != stepper.Full {
		t.Errorf("initial style %s", got)
	}
	if err := s.SetStyle(stepper.Half); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStyle(stepper.Style{}); !errors.Is(err, stepper.ErrInvalidStyle) {
		t.Errorf("expected %v, got %v", stepper.ErrInvalidStyle, err)
	}
	if err := s.SetPowerFactor(2); !errors.Is(err, stepper.ErrInvalidSetting) {
		t.Errorf("expected %v, got %v", stepper.ErrInvalidSetting, err)
	}
	if got, want := s.String(), "Stepper{M3, M4, Half}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	closePlayback(t, b)
}

func TestPartialPortRelease(t *testing.T) {
	h, b := newTestHat(t,
		// IN1 of M2 is released, then its PWM channel.
		low(11), low(13),
	)
	if err := h.Dev().AcquireChannel(12); err != nil {
		t.Fatal(err)
	}
	if _, err := h.DCMotor(M2); !errors.Is(err, pca9685.ErrChannelBusy) {
		t.Fatalf("expected %v, got %v", pca9685.ErrChannelBusy, err)
	}
	if h.Dev().Acquired(11) || h.Dev().Acquired(13) || !h.Dev().Acquired(12) {
		t.Error("unexpected channel ownership")
	}
	closePlayback(t, b)
}

func TestDCMotor(t *testing.T) {
	h, b := newTestHat(t,
		// Half forward.
		low(3), high(4), led(2, 0, 2048),
		// Full reverse.
		low(4), high(3), high(2),
		// Coast.
		low(4), low(3), low(2),
		// Close.
		low(4), low(3), low(2),
	)
	m, err := h.DCMotor(M3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.DCMotor(M3); !errors.Is(err, pca9685.ErrChannelBusy) {
		t.Errorf("expected %v, got %v", pca9685.ErrChannelBusy, err)
	}
	for _, th := range []float64{0.5, -1} {
		if err := m.SetThrottle(th); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.SetThrottle(1.5); !errors.Is(err, ErrInvalidThrottle) {
		t.Errorf("expected %v, got %v", ErrInvalidThrottle, err)
	}
	if m.Throttle() != -1 {
		t.Errorf("Throttle() = %v", m.Throttle())
	}
	if err := m.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.SetThrottle(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected %v, got %v", ErrClosed, err)
	}
	if got, want := m.String(), "DCMotor{M3}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	closePlayback(t, b)
}

func TestHalt(t *testing.T) {
	h, b := newTestHat(t, i2ctest.IO{Addr: 0x60, W: []uint8{0xfa, 0x00, 0x00, 0x00, 0x10}})
	if err := h.Halt(); err != nil {
		t.Fatal(err)
	}
	if len(h.String()) == 0 {
		t.Error("empty string")
	}
	closePlayback(t, b)
}

func TestNewDeviceNotFound(t *testing.T) {
	b := &i2ctest.Playback{DontPanic: true}
	defer b.Close()
	if _, err := New(b, nil); !errors.Is(err, pca9685.ErrDeviceNotFound) {
		t.Fatalf("expected %v, got %v", pca9685.ErrDeviceNotFound, err)
	}
}
