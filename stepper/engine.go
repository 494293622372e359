// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"fmt"
	"math"
	"sync"
)

// Polarity is the direction of the current through a winding.
type Polarity int8

const (
	Off      Polarity = 0
	Positive Polarity = 1
	Negative Polarity = -1
)

func (p Polarity) String() string {
	switch p {
	case Off:
		return "Off"
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	}
	return fmt.Sprintf("Polarity(%d)", int8(p))
}

// Winding drives one coil of the motor, typically through an H-bridge.
//
// SetPolarity must de-energize the current direction before energizing the
// opposite one.
type Winding interface {
	SetPolarity(p Polarity) error
	SetDuty(duty float64) error
}

// coil is the last state successfully written to a winding.
type coil struct {
	w         Winding
	duty      float64
	pol       Polarity
	dutyKnown bool
	polKnown  bool
}

func (c *coil) setPolarity(p Polarity) error {
	if c.polKnown && c.pol == p {
		return nil
	}
	c.polKnown = false
	if err := c.w.SetPolarity(p); err != nil {
		return err
	}
	c.pol = p
	c.polKnown = true
	return nil
}

func (c *coil) setDuty(duty float64) error {
	if c.dutyKnown && c.duty == duty {
		return nil
	}
	c.dutyKnown = false
	if err := c.w.SetDuty(duty); err != nil {
		return err
	}
	c.duty = duty
	c.dutyKnown = true
	return nil
}

// Engine maintains the step position of one motor and programs its two
// windings.
//
// An Engine is Idle until SelectStyle is called. It is safe for concurrent
// use.
type Engine struct {
	mu       sync.Mutex
	a, b     coil
	style    Style
	table    []CoilVector
	index    int
	position int64
	power    float64
}

// NewEngine returns an idle engine driving windings a and b.
func NewEngine(a, b Winding) *Engine {
	return &Engine{a: coil{w: a}, b: coil{w: b}, power: 1}
}

// SelectStyle rebuilds the step table. The rotor keeps its electrical
// phase: the new index is the entry of the new table closest to the current
// one. No winding is written until the next step or Energize.
func (e *Engine) SelectStyle(s Style) error {
	t, err := Table(s)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table != nil {
		e.index = s.index(e.style.phase(e.index))
	}
	e.style = s
	e.table = t
	return nil
}

// Style returns the selected style, the zero Style when idle.
func (e *Engine) Style() Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

// SetPowerFactor scales the coil currents of the following steps. f must be
// in [0, 1].
func (e *Engine) SetPowerFactor(f float64) error {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return fmt.Errorf("%w: power factor %v", ErrInvalidSetting, f)
	}
	e.mu.Lock()
	e.power = f
	e.mu.Unlock()
	return nil
}

// PowerFactor returns the current power factor.
func (e *Engine) PowerFactor() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.power
}

// NextStep moves one table entry in direction dir and programs the windings
// for the new entry. Only the duty cycles and polarities that differ from
// the last written values are written.
func (e *Engine) NextStep(dir Direction) (CoilVector, error) {
	if !dir.valid() {
		return CoilVector{}, fmt.Errorf("%w: direction %d", ErrInvalidSetting, dir)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table == nil {
		return CoilVector{}, ErrNoStyle
	}
	e.index = mod(e.index+int(dir), len(e.table))
	e.position += int64(dir)
	v := e.table[e.index]
	return v, e.apply(v)
}

// Energize programs the windings for the current entry without moving.
func (e *Engine) Energize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table == nil {
		return ErrNoStyle
	}
	return e.apply(e.table[e.index])
}

// Invalidate forgets the values last written to the windings, so the next
// step, Energize or Release writes both windings in full. Call it when the
// outputs were changed by other means.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.a.polKnown, e.a.dutyKnown = false, false
	e.b.polKnown, e.b.dutyKnown = false, false
}

// Release de-energizes both windings. The step position is kept.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.b.setPolarity(Off); err != nil {
		return err
	}
	if err := e.a.setPolarity(Off); err != nil {
		return err
	}
	if err := e.a.setDuty(0); err != nil {
		return err
	}
	return e.b.setDuty(0)
}

// apply writes v: polarities first, coil B before coil A, then duty cycles.
func (e *Engine) apply(v CoilVector) error {
	dA, pA := e.drive(v.A)
	dB, pB := e.drive(v.B)
	if err := e.b.setPolarity(pB); err != nil {
		return err
	}
	if err := e.a.setPolarity(pA); err != nil {
		return err
	}
	if err := e.a.setDuty(dA); err != nil {
		return err
	}
	return e.b.setDuty(dB)
}

func (e *Engine) drive(current float64) (float64, Polarity) {
	switch {
	case current > 0:
		return current * e.power, Positive
	case current < 0:
		return -current * e.power, Negative
	}
	return 0, Off
}

// Index returns the current entry of the step table.
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Position returns the signed number of steps taken since the engine was
// created.
func (e *Engine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Vector returns the coil vector of the current entry.
func (e *Engine) Vector() CoilVector {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table == nil {
		return CoilVector{}
	}
	return e.table[e.index]
}

// AtFullStep reports whether the rotor sits on a full step position.
func (e *Engine) AtFullStep() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index%e.style.StepsPerFullStep() == 0
}
