// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// motorhat turns a stepper motor connected to a motor HAT.
//
// Usage:
//
//	motorhat [options]
//
// Examples:
//
//	# One revolution of a 200 steps motor on M1/M2, half stepping at 30 rpm.
//	motorhat -style Half -rpm 30 -steps 400
//
//	# Turn backward until interrupted, holding the rotor on a full step.
//	motorhat -steps -1 -dir backward -style Microstep16 -finish-full
//
//	# Print the coil currents on the terminal instead of driving the HAT.
//	motorhat -dry-run -style Microstep8 -rpm 2 -steps 32
//
//	# Render the step table of a style as a PNG.
//	motorhat -plot microstep.png -style Microstep16
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GermanBionicSystems/motorhat/coilview"
	"github.com/GermanBionicSystems/motorhat/motorhat"
	"github.com/GermanBionicSystems/motorhat/pca9685"
	"github.com/GermanBionicSystems/motorhat/stepper"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// motor is the part of a stepper motor the command drives.
type motor interface {
	SetSpeed(rpm float64) error
	StepFor(steps int, dir stepper.Direction) (*stepper.Run, error)
	Stop() error
	Brake() error
}

func parseDirection(s string) (stepper.Direction, error) {
	switch s {
	case "forward", "fwd":
		return stepper.Forward, nil
	case "backward", "back":
		return stepper.Backward, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use")
	addr := flag.Uint("addr", uint(pca9685.I2CAddr), "I²C address of the HAT")
	freq := pca9685.DefaultOpts.Frequency
	flag.Var(&freq, "freq", "PWM frequency")
	portA := flag.Int("a", int(motorhat.M1), "port of winding A, 1 to 4")
	portB := flag.Int("b", int(motorhat.M2), "port of winding B, 1 to 4")
	spr := flag.Int("spr", 200, "full steps per revolution")
	styleName := flag.String("style", "Full", "Full, Half, Wave or MicrostepN")
	rpm := flag.Float64("rpm", 30, "speed in revolutions per minute")
	steps := flag.Int("steps", 200, "steps to take, -1 to run until interrupted")
	dirName := flag.String("dir", "forward", "forward or backward")
	power := flag.Float64("power", 1, "winding current factor, 0 to 1")
	finishFull := flag.Bool("finish-full", false, "stop on a full step when interrupted")
	release := flag.Bool("release", false, "de-energize the windings when done")
	dryRun := flag.Bool("dry-run", false, "show the coil currents instead of driving the HAT")
	plot := flag.String("plot", "", "write the step table as a PNG to this file and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	style, err := stepper.ParseStyle(*styleName)
	if err != nil {
		return err
	}
	dir, err := parseDirection(*dirName)
	if err != nil {
		return err
	}
	if *plot != "" {
		return writePlot(*plot, style)
	}
	opts := &stepper.Opts{FinishOnFullStep: *finishFull}

	var m motor
	var engine *stepper.Engine
	if *dryRun {
		var w io.Writer
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			w = io.Discard
		}
		view := coilview.New(&coilview.Opts{Writer: w})
		defer view.Halt()
		engine = stepper.NewEngine(view.A(), view.B())
		if err := engine.SelectStyle(style); err != nil {
			return err
		}
		sch, err := stepper.NewScheduler(engine, *spr, opts)
		if err != nil {
			return err
		}
		m = sch
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		bus, err := i2creg.Open(*busName)
		if err != nil {
			return err
		}
		defer bus.Close()
		hatOpts := motorhat.DefaultOpts
		hatOpts.Addr = uint16(*addr)
		hatOpts.PWM.Frequency = freq
		hat, err := motorhat.New(bus, &hatOpts)
		if err != nil {
			return err
		}
		s, err := hat.Stepper(motorhat.Port(*portA), motorhat.Port(*portB), *spr, opts)
		if err != nil {
			return err
		}
		// Without -release the windings keep holding the rotor after exit.
		defer func() {
			if *release {
				if err := s.Close(); err != nil {
					log.Printf("close: %v", err)
				}
			}
		}()
		if err := s.SetStyle(style); err != nil {
			return err
		}
		engine = s.Engine()
		m = s
	}
	if err := engine.SetPowerFactor(*power); err != nil {
		return err
	}
	if err := m.SetSpeed(*rpm); err != nil {
		return err
	}

	run, err := m.StepFor(*steps, dir)
	if err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-run.Done():
	case <-sig:
		log.Printf("interrupted after %d steps", run.Steps())
	}
	if *release {
		if err := m.Stop(); err != nil {
			return err
		}
	} else if err := m.Brake(); err != nil {
		return err
	}
	if err := run.Wait(); err != nil {
		return err
	}
	log.Printf("%d steps, position %d", run.Steps(), engine.Position())
	return nil
}

func writePlot(path string, style stepper.Style) error {
	table, err := stepper.Table(style)
	if err != nil {
		return err
	}
	img, err := coilview.Plot(table, 640, 320)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	log.SetFlags(0)
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "motorhat: %s.\n", err)
		os.Exit(1)
	}
}
