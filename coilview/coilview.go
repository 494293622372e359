// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package coilview emulates the two windings of a stepper motor on the
// terminal using ANSI color codes.
//
// Useful to check a stepping sequence without a motor attached.
package coilview

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/GermanBionicSystems/motorhat/stepper"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
)

// Opts represents the options available for the emulator.
type Opts struct {
	// Writer receives the rendering. Defaults to the console.
	Writer io.Writer
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Width is the number of blocks of a coil at full current. Defaults to
	// 16.
	Width int
}

var (
	positive = color.NRGBA{0x20, 0xe0, 0x20, 0xff}
	negative = color.NRGBA{0xe0, 0x20, 0x20, 0xff}
	unlit    = color.NRGBA{0x20, 0x20, 0x20, 0xff}
)

type coil struct {
	pol  stepper.Polarity
	duty float64
}

// Dev renders the current of coils A and B as colored bars, green for
// positive current and red for negative current.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	palette ansi256.Palette
	width   int
	coils   [2]coil
	buf     bytes.Buffer
}

// New returns a Dev that displays at the console. opts may be nil.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	width := opts.Width
	if width <= 0 {
		width = 16
	}
	return &Dev{w: w, palette: *p, width: width}
}

// A returns winding A.
func (d *Dev) A() stepper.Winding {
	return &winding{d: d, i: 0}
}

// B returns winding B.
func (d *Dev) B() stepper.Winding {
	return &winding{d: d, i: 1}
}

// Currents returns the signed current of both coils, as last written.
func (d *Dev) Currents() stepper.CoilVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return stepper.CoilVector{A: d.coils[0].current(), B: d.coils[1].current()}
}

func (c coil) current() float64 {
	return float64(c.pol) * c.duty
}

func (d *Dev) String() string {
	return "CoilView"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and ends the line.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, "\n\033[0m")
	return err
}

func (d *Dev) set(i int, f func(c *coil)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(&d.coils[i])
	return d.refresh()
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i, c := range d.coils {
		_, _ = d.buf.WriteString([]string{"A ", " B "}[i])
		lit := int(math.Round(c.duty * float64(d.width)))
		col := unlit
		switch c.pol {
		case stepper.Positive:
			col = positive
		case stepper.Negative:
			col = negative
		}
		for j := 0; j < d.width; j++ {
			if j < lit && col != unlit {
				_, _ = d.buf.WriteString(d.palette.Block(col))
			} else {
				_, _ = d.buf.WriteString(d.palette.Block(unlit))
			}
		}
		_, _ = d.buf.WriteString("\033[0m")
	}
	_, _ = d.buf.WriteString(" ")
	_, err := d.buf.WriteTo(d.w)
	return err
}

type winding struct {
	d *Dev
	i int
}

func (w *winding) SetPolarity(p stepper.Polarity) error {
	return w.d.set(w.i, func(c *coil) { c.pol = p })
}

func (w *winding) SetDuty(duty float64) error {
	if math.IsNaN(duty) || duty < 0 || duty > 1 {
		return fmt.Errorf("coilview: duty %v out of range", duty)
	}
	return w.d.set(w.i, func(c *coil) { c.duty = duty })
}

var _ conn.Resource = &Dev{}
var _ stepper.Winding = &winding{}
