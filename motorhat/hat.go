// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/motorhat/pca9685"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// Opts holds the HAT configuration.
type Opts struct {
	// Addr is the I²C address selected by the address jumpers.
	Addr uint16
	// PWM configures the PCA9685. Its frequency sets the chopping rate of
	// every bridge.
	PWM pca9685.Opts
}

// DefaultOpts is the configuration of a HAT with no jumper soldered.
var DefaultOpts = Opts{
	Addr: pca9685.I2CAddr,
	PWM:  pca9685.DefaultOpts,
}

// Hat is a motor HAT. Motors are allocated from its ports; a port belongs
// to at most one motor at a time.
type Hat struct {
	dev *pca9685.Dev

	mu       sync.Mutex
	steppers map[*Stepper]struct{}
}

// New initializes the PCA9685 of the HAT. If opts is nil, DefaultOpts is
// used.
func New(bus i2c.Bus, opts *Opts) (*Hat, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev, err := pca9685.New(bus, opts.Addr, &opts.PWM)
	if err != nil {
		return nil, err
	}
	return NewFromDev(dev), nil
}

// NewFromDev returns a HAT driving an already initialized PCA9685.
func NewFromDev(dev *pca9685.Dev) *Hat {
	return &Hat{dev: dev, steppers: map[*Stepper]struct{}{}}
}

// Dev returns the PWM controller of the HAT.
func (h *Hat) Dev() *pca9685.Dev {
	return h.dev
}

// Available reports whether none of the channels of port p is allocated.
func (h *Hat) Available(p Port) bool {
	if checkPort(p) != nil {
		return false
	}
	w := wiring[p]
	return !h.dev.Acquired(w.pwm) && !h.dev.Acquired(w.in1) && !h.dev.Acquired(w.in2)
}

// Halt turns every output of the HAT off. Motors keep their ports; a
// stepper writes both windings in full on its next step or Brake.
//
// Halt implements conn.Resource.
func (h *Hat) Halt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.dev.Halt()
	for s := range h.steppers {
		s.Engine().Invalidate()
	}
	return err
}

func (h *Hat) register(s *Stepper) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steppers[s] = struct{}{}
}

func (h *Hat) unregister(s *Stepper) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.steppers, s)
}

func (h *Hat) String() string {
	return fmt.Sprintf("MotorHat{%s}", h.dev)
}

var _ conn.Resource = &Hat{}
