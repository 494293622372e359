// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Continuous is the step count of a run that only ends on cancellation.
const Continuous = -1

// RunState is the state of a motor driven by a Scheduler.
type RunState int32

const (
	// Stopped: no run is active and the windings are de-energized.
	Stopped RunState = iota
	// Running: a run is stepping the motor.
	Running
	// Braking: no run is active and the windings hold the rotor.
	Braking
)

func (s RunState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	case Braking:
		return "Braking"
	}
	return fmt.Sprintf("RunState(%d)", int32(s))
}

// Opts holds the scheduling options.
type Opts struct {
	// FinishOnFullStep keeps stepping after a cancellation until the rotor
	// sits on a full step.
	// A run with a fixed step count still ends at its count.
	FinishOnFullStep bool
}

// DefaultOpts stops on the first step boundary after a cancellation.
var DefaultOpts = Opts{}

// Scheduler paces an Engine at a fixed speed.
type Scheduler struct {
	engine      *Engine
	stepsPerRev int
	opts        Opts

	// rpm holds the float64 bits of the speed; 0 when unset.
	rpm   atomic.Uint64
	state atomic.Int32

	mu  sync.Mutex
	run *Run
}

// NewScheduler returns a stopped scheduler for a motor with stepsPerRev full
// steps per revolution. If opts is nil, DefaultOpts is used.
func NewScheduler(e *Engine, stepsPerRev int, opts *Opts) (*Scheduler, error) {
	if stepsPerRev <= 0 {
		return nil, fmt.Errorf("%w: %d steps per revolution", ErrInvalidSetting, stepsPerRev)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	return &Scheduler{engine: e, stepsPerRev: stepsPerRev, opts: *opts}, nil
}

// Engine returns the engine driven by s.
func (s *Scheduler) Engine() *Engine {
	return s.engine
}

// SetSpeed sets the speed in revolutions per minute. A run in progress uses
// the new speed from its next step.
func (s *Scheduler) SetSpeed(rpm float64) error {
	if math.IsNaN(rpm) || math.IsInf(rpm, 0) || rpm <= 0 {
		return fmt.Errorf("%w: speed %v rpm", ErrInvalidSetting, rpm)
	}
	s.rpm.Store(math.Float64bits(rpm))
	return nil
}

// Speed returns the speed in revolutions per minute, 0 if unset.
func (s *Scheduler) Speed() float64 {
	return math.Float64frombits(s.rpm.Load())
}

// Interval returns the time between two steps at the current speed and
// style:
//
//	60 / rpm / (stepsPerRev * style.StepsPerFullStep())
//
// Intervals too long for a time.Duration are capped at the longest one.
func (s *Scheduler) Interval() time.Duration {
	rpm := s.Speed()
	if rpm == 0 {
		return 0
	}
	steps := float64(s.stepsPerRev * s.engine.Style().StepsPerFullStep())
	d := math.Round(float64(time.Minute) / rpm / steps)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// State returns the run state.
func (s *Scheduler) State() RunState {
	return RunState(s.state.Load())
}

// StepFor starts stepping the motor steps times, or until cancelled when
// steps is Continuous. It returns immediately; the returned Run reports the
// outcome.
//
// A step is one entry of the step table of the current style: a full step
// in Full and Wave, half of one in Half and 1/N of one in MicrostepN. With
// Microstep16, StepFor(200, dir) turns a 200 steps per revolution motor by
// 1/16 of a revolution.
//
// When the run completes the windings stay energized and the state becomes
// Braking.
func (s *Scheduler) StepFor(steps int, dir Direction) (*Run, error) {
	if steps < 0 && steps != Continuous {
		return nil, fmt.Errorf("%w: %d steps", ErrInvalidSetting, steps)
	}
	if !dir.valid() {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidSetting, dir)
	}
	if s.Speed() == 0 {
		return nil, ErrSpeedNotSet
	}
	if !s.engine.Style().Valid() {
		return nil, ErrNoStyle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil && !s.run.finished() {
		return nil, ErrAlreadyRunning
	}
	r := &Run{done: make(chan struct{})}
	s.run = r
	s.state.Store(int32(Running))
	go s.loop(r, steps, dir)
	return r, nil
}

// loop is the pacing loop. It owns its OS thread for the whole run.
func (s *Scheduler) loop(r *Run, steps int, dir Direction) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var err error
	deadline := time.Now()
	for n := 0; steps == Continuous || n < steps; n++ {
		interval := s.Interval()
		deadline = deadline.Add(interval)
		// After a stall, restart the cadence instead of bursting to catch up.
		if now := time.Now(); now.Sub(deadline) > interval {
			deadline = now
		}
		if !s.wait(r, deadline) {
			break
		}
		if _, err = s.engine.NextStep(dir); err != nil {
			log.Printf("stepper: run stopped after %d steps: %v", r.Steps(), err)
			break
		}
		r.steps.Add(1)
	}
	s.state.Store(int32(Braking))
	r.err = err
	close(r.done)
}

// wait spins until deadline. It returns false if the run was cancelled and
// must not take another step.
func (s *Scheduler) wait(r *Run, deadline time.Time) bool {
	for time.Now().Before(deadline) {
		if r.cancel.Load() && !s.mustFinish() {
			return false
		}
	}
	return !r.cancel.Load() || s.mustFinish()
}

func (s *Scheduler) mustFinish() bool {
	return s.opts.FinishOnFullStep && !s.engine.AtFullStep()
}

// SelectStyle changes the style of the engine. It fails with
// ErrAlreadyRunning during a run.
func (s *Scheduler) SelectStyle(style Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil && !s.run.finished() {
		return ErrAlreadyRunning
	}
	return s.engine.SelectStyle(style)
}

// Cancel asks the active run to stop and waits until its loop has exited,
// at most about one step interval. The windings stay energized.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// cancel stops the active run. The caller must hold mu, so no run can start
// until it is released.
func (s *Scheduler) cancel() {
	if r := s.run; r != nil {
		r.cancel.Store(true)
		<-r.done
	}
}

// Brake cancels the active run and holds the rotor at its current step.
func (s *Scheduler) Brake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if err := s.engine.Energize(); err != nil {
		return err
	}
	s.state.Store(int32(Braking))
	return nil
}

// Stop cancels the active run and de-energizes the windings.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if err := s.engine.Release(); err != nil {
		return err
	}
	s.state.Store(int32(Stopped))
	return nil
}

// Run is the handle of one StepFor call.
type Run struct {
	cancel atomic.Bool
	steps  atomic.Int64
	done   chan struct{}
	err    error
}

// Done is closed when the pacing loop has exited.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends and returns the bus error that ended it,
// if any. After an error the windings are left in whatever state the failed
// write produced; call Scheduler.Stop to de-energize them.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Steps returns the number of steps taken so far.
func (r *Run) Steps() int {
	return int(r.steps.Load())
}

func (r *Run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
