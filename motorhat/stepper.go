// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/motorhat/stepper"
)

// Stepper is a bipolar stepper motor wired to two ports, winding A on the
// first and winding B on the second. The embedded Scheduler paces it.
type Stepper struct {
	*stepper.Scheduler

	hat  *Hat
	a, b *bridge

	mu     sync.Mutex
	closed bool
}

// Stepper allocates ports a and b to a stepper motor with stepsPerRev full
// steps per revolution. The motor starts de-energized with the Full style
// selected. If opts is nil, stepper.DefaultOpts is used.
//
// On error no channel stays allocated.
func (h *Hat) Stepper(a, b Port, stepsPerRev int, opts *stepper.Opts) (*Stepper, error) {
	if err := checkPort(a); err != nil {
		return nil, err
	}
	if err := checkPort(b); err != nil {
		return nil, err
	}
	if a == b {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePort, a)
	}
	ba, err := openBridge(h.dev, a)
	if err != nil {
		return nil, err
	}
	bb, err := openBridge(h.dev, b)
	if err != nil {
		return nil, errors.Join(err, ba.close())
	}
	e := stepper.NewEngine(ba, bb)
	if err := e.SelectStyle(stepper.Full); err != nil {
		return nil, errors.Join(err, ba.close(), bb.close())
	}
	sch, err := stepper.NewScheduler(e, stepsPerRev, opts)
	if err != nil {
		return nil, errors.Join(err, ba.close(), bb.close())
	}
	s := &Stepper{Scheduler: sch, hat: h, a: ba, b: bb}
	h.register(s)
	return s, nil
}

// SetStyle changes the stepping style. The rotor keeps its electrical
// position. It fails with stepper.ErrAlreadyRunning during a run.
func (s *Stepper) SetStyle(style stepper.Style) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.SelectStyle(style)
}

// SetPowerFactor scales the winding current, from 0 to 1.
func (s *Stepper) SetPowerFactor(f float64) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.Engine().SetPowerFactor(f)
}

// Step moves the motor steps times and blocks until done. The windings stay
// energized afterwards.
func (s *Stepper) Step(steps int, dir stepper.Direction) error {
	if err := s.check(); err != nil {
		return err
	}
	r, err := s.StepFor(steps, dir)
	if err != nil {
		return err
	}
	return r.Wait()
}

// Position returns the signed number of steps taken since allocation.
func (s *Stepper) Position() int64 {
	return s.Engine().Position()
}

// Halt de-energizes the windings. The ports stay allocated.
//
// Halt implements conn.Resource.
func (s *Stepper) Halt() error {
	return s.Stop()
}

// Close stops the motor and frees its ports. Every channel is released even
// if a bus write fails.
func (s *Stepper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.hat.unregister(s)
	return errors.Join(s.Stop(), s.a.close(), s.b.close())
}

func (s *Stepper) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Stepper) String() string {
	return fmt.Sprintf("Stepper{%s, %s, %s}", s.a.port, s.b.port, s.Engine().Style())
}
