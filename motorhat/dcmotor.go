// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"fmt"
	"math"
	"sync"

	"github.com/GermanBionicSystems/motorhat/stepper"
	"periph.io/x/conn/v3"
)

// DCMotor is a brushed DC motor on one port.
type DCMotor struct {
	mu       sync.Mutex
	b        *bridge
	throttle float64
	closed   bool
}

// DCMotor allocates port p to a DC motor. The motor starts coasting.
func (h *Hat) DCMotor(p Port) (*DCMotor, error) {
	b, err := openBridge(h.dev, p)
	if err != nil {
		return nil, err
	}
	return &DCMotor{b: b}, nil
}

// SetThrottle sets speed and direction, from -1 (full reverse) to 1 (full
// forward). Zero lets the motor coast.
func (m *DCMotor) SetThrottle(t float64) error {
	if math.IsNaN(t) || t < -1 || t > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThrottle, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	p := stepper.Off
	switch {
	case t > 0:
		p = stepper.Positive
	case t < 0:
		p = stepper.Negative
	}
	if err := m.b.SetPolarity(p); err != nil {
		return err
	}
	if err := m.b.SetDuty(math.Abs(t)); err != nil {
		return err
	}
	m.throttle = t
	return nil
}

// Throttle returns the last throttle set.
func (m *DCMotor) Throttle() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throttle
}

// Halt lets the motor coast.
//
// Halt implements conn.Resource.
func (m *DCMotor) Halt() error {
	return m.SetThrottle(0)
}

// Close stops the motor and frees its port.
func (m *DCMotor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.throttle = 0
	return m.b.close()
}

func (m *DCMotor) String() string {
	return fmt.Sprintf("DCMotor{%s}", m.b.port)
}

var _ conn.Resource = &DCMotor{}
