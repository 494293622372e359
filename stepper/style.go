// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Direction is the rotation direction of a step.
type Direction int8

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "Forward"
	case Backward:
		return "Backward"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

func (d Direction) valid() bool {
	return d == Forward || d == Backward
}

// CoilVector is the signed current of both windings for one step, each in
// [-1, 1].
type CoilVector struct {
	A, B float64
}

type styleKind uint8

const (
	kindNone styleKind = iota
	kindFull
	kindHalf
	kindWave
	kindMicrostep
)

// Style is a coil energizing pattern. The zero value selects nothing.
type Style struct {
	kind       styleKind
	microsteps int
}

var (
	// Full energizes both windings at every step: highest torque.
	Full = Style{kind: kindFull}
	// Half alternates between one and two energized windings.
	Half = Style{kind: kindHalf}
	// Wave energizes one winding at a time: lowest torque and current.
	Wave = Style{kind: kindWave}
)

// MaxMicrosteps is the largest number of microsteps per full step.
const MaxMicrosteps = 256

// Microstep returns the style with n microsteps per full step. n must be a
// power of two in [2, MaxMicrosteps].
func Microstep(n int) (Style, error) {
	if n < 2 || n > MaxMicrosteps || n&(n-1) != 0 {
		return Style{}, fmt.Errorf("%w: %d microsteps", ErrInvalidStyle, n)
	}
	return Style{kind: kindMicrostep, microsteps: n}, nil
}

// ParseStyle parses "full", "half", "wave" or "microstepN".
func ParseStyle(s string) (Style, error) {
	switch l := strings.ToLower(s); {
	case l == "full":
		return Full, nil
	case l == "half":
		return Half, nil
	case l == "wave":
		return Wave, nil
	case strings.HasPrefix(l, "microstep"):
		n, err := strconv.Atoi(strings.TrimPrefix(l, "microstep"))
		if err != nil {
			return Style{}, fmt.Errorf("%w: %q", ErrInvalidStyle, s)
		}
		return Microstep(n)
	}
	return Style{}, fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}

// Valid reports whether s selects a step table.
func (s Style) Valid() bool {
	switch s.kind {
	case kindFull, kindHalf, kindWave:
		return true
	case kindMicrostep:
		return s.microsteps >= 2
	}
	return false
}

// Microsteps returns the number of microsteps per full step, or 0 for the
// other styles.
func (s Style) Microsteps() int {
	return s.microsteps
}

// StepsPerFullStep returns how many table entries make one full step.
func (s Style) StepsPerFullStep() int {
	switch s.kind {
	case kindHalf:
		return 2
	case kindMicrostep:
		return s.microsteps
	}
	return 1
}

// Len returns the number of entries of the step table.
func (s Style) Len() int {
	switch s.kind {
	case kindFull, kindWave:
		return 4
	case kindHalf:
		return 8
	case kindMicrostep:
		return 4 * s.microsteps
	}
	return 0
}

func (s Style) String() string {
	switch s.kind {
	case kindFull:
		return "Full"
	case kindHalf:
		return "Half"
	case kindWave:
		return "Wave"
	case kindMicrostep:
		return "Microstep" + strconv.Itoa(s.microsteps)
	}
	return "None"
}

var waveTable = [4]CoilVector{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

var fullTable = [4]CoilVector{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}

// Table returns a new copy of the step table of s.
func Table(s Style) ([]CoilVector, error) {
	switch s.kind {
	case kindWave:
		return append([]CoilVector(nil), waveTable[:]...), nil
	case kindFull:
		return append([]CoilVector(nil), fullTable[:]...), nil
	case kindHalf:
		t := make([]CoilVector, 0, 8)
		for i := range waveTable {
			t = append(t, waveTable[i], fullTable[i])
		}
		return t, nil
	case kindMicrostep:
		if s.Valid() {
			return microstepTable(s.microsteps), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidStyle, s)
}

func microstepTable(n int) []CoilVector {
	t := make([]CoilVector, 4*n)
	for i := range t {
		angle := math.Pi / 2 * float64(i) / float64(n)
		t[i] = CoilVector{A: snap(math.Sin(angle)), B: snap(math.Cos(angle))}
	}
	return t
}

// snap removes the rounding residue of sin and cos at multiples of π/2 so
// that a de-energized winding reads exactly 0.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}

// phase returns the position of entry i within the electrical cycle, in
// [0, 1). Full entries sit halfway between Wave entries.
func (s Style) phase(i int) float64 {
	n := s.Len()
	if s.kind == kindFull {
		return (float64(i) + 0.5) / float64(n)
	}
	return float64(i) / float64(n)
}

// index returns the entry of s closest to phase p.
func (s Style) index(p float64) int {
	n := s.Len()
	x := p * float64(n)
	if s.kind == kindFull {
		x -= 0.5
	}
	return mod(int(math.Round(x)), n)
}

func mod(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
