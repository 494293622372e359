// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stepper computes coil currents for two-phase stepper motors and
// paces them at a target speed.
//
// An Engine owns the step position of one motor. Each call to NextStep
// advances the position by one entry of the step table of the selected Style
// and programs the two windings, writing only the values that changed.
//
// A Scheduler calls NextStep at a fixed interval derived from a speed in
// RPM. The pacing loop runs on its own goroutine locked to an OS thread and
// spins on the monotonic clock, since sub-millisecond step intervals are
// below the resolution of time.Sleep on most hosts.
//
// # Step tables
//
// The coil vector (A, B) rotates clockwise through the electrical cycle:
//
//	Wave         (0,1) (1,0) (0,-1) (-1,0)
//	Full         (1,1) (1,-1) (-1,-1) (-1,1)
//	Half         Wave and Full interleaved
//	Microstep-N  (sin(π/2·i/N), cos(π/2·i/N)) for i in [0, 4N)
package stepper
