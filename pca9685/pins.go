// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is an acquired channel exposed as a gpio.PinOut.
type Pin struct {
	dev    *Dev
	number int
	name   string
}

// Channel acquires ch and returns it as a gpio.PinOut. Halt releases the
// channel.
func (d *Dev) Channel(ch int) (*Pin, error) {
	if err := d.AcquireChannel(ch); err != nil {
		return nil, err
	}
	return &Pin{dev: d, number: ch, name: fmt.Sprintf("PCA9685_%d", ch)}, nil
}

func (p *Pin) Function() string {
	return "PWM"
}

// Halt turns the output fully off and releases the channel.
func (p *Pin) Halt() error {
	return p.dev.ReleaseChannel(p.number)
}

func (p *Pin) Name() string {
	return p.name
}

func (p *Pin) Number() int {
	return p.number
}

// Out sets the channel fully on or fully off.
func (p *Pin) Out(l gpio.Level) error {
	if l {
		return p.dev.SetDutyCycle(p.number, 1, false)
	}
	return p.dev.SetDutyCycle(p.number, 0, false)
}

// PWM sets the duty cycle of the channel. The chip has a single frequency
// for all of its channels; a non-zero f reprograms it for every channel.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	if duty < 0 || duty > gpio.DutyMax {
		return fmt.Errorf("%w: %s", ErrInvalidDuty, duty)
	}
	if f != 0 {
		if _, err := p.dev.SetFrequency(f); err != nil {
			return err
		}
	}
	return p.dev.SetDutyCycle(p.number, float64(duty)/float64(gpio.DutyMax), false)
}

func (p *Pin) String() string {
	return p.name
}

var _ gpio.PinOut = &Pin{}
