// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/GermanBionicSystems/motorhat/pca9685"
	"github.com/GermanBionicSystems/motorhat/stepper"
	"periph.io/x/conn/v3/gpio"
)

// Port is a motor port of the HAT, M1 to M4.
type Port int

const (
	M1 Port = 1
	M2 Port = 2
	M3 Port = 3
	M4 Port = 4
)

func (p Port) String() string {
	return "M" + strconv.Itoa(int(p))
}

// portChannels is the PCA9685 wiring of one H-bridge.
type portChannels struct {
	pwm, in1, in2 int
}

var wiring = [...]portChannels{
	M1: {pwm: 8, in1: 10, in2: 9},
	M2: {pwm: 13, in1: 11, in2: 12},
	M3: {pwm: 2, in1: 4, in2: 3},
	M4: {pwm: 7, in1: 5, in2: 6},
}

func checkPort(p Port) error {
	if p < M1 || p > M4 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, int(p))
	}
	return nil
}

// bridge is one H-bridge. It implements stepper.Winding.
type bridge struct {
	dev      *pca9685.Dev
	port     Port
	pwm      int
	in1, in2 gpio.PinOut
}

// openBridge acquires the three channels of port p. On failure nothing
// stays acquired.
func openBridge(dev *pca9685.Dev, p Port) (*bridge, error) {
	if err := checkPort(p); err != nil {
		return nil, err
	}
	w := wiring[p]
	if err := dev.AcquireChannel(w.pwm); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	in1, err := dev.Channel(w.in1)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", p, err), dev.ReleaseChannel(w.pwm))
	}
	in2, err := dev.Channel(w.in2)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", p, err), in1.Halt(), dev.ReleaseChannel(w.pwm))
	}
	return &bridge{dev: dev, port: p, pwm: w.pwm, in1: in1, in2: in2}, nil
}

// SetPolarity lowers the active input before raising the other one.
func (b *bridge) SetPolarity(p stepper.Polarity) error {
	switch p {
	case stepper.Positive:
		if err := b.in2.Out(gpio.Low); err != nil {
			return err
		}
		return b.in1.Out(gpio.High)
	case stepper.Negative:
		if err := b.in1.Out(gpio.Low); err != nil {
			return err
		}
		return b.in2.Out(gpio.High)
	case stepper.Off:
		if err := b.in1.Out(gpio.Low); err != nil {
			return err
		}
		return b.in2.Out(gpio.Low)
	}
	return fmt.Errorf("%w: polarity %s", ErrConfiguration, p)
}

func (b *bridge) SetDuty(duty float64) error {
	return b.dev.SetDutyCycle(b.pwm, duty, false)
}

// close turns the bridge off and releases its channels. Every channel is
// released even when a write fails.
func (b *bridge) close() error {
	return errors.Join(b.in1.Halt(), b.in2.Halt(), b.dev.ReleaseChannel(b.pwm))
}

var _ stepper.Winding = &bridge{}
