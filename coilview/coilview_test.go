// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package coilview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/motorhat/stepper"
	"github.com/maruel/ansi256"
)

func TestEngineOnConsole(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{Writer: &buf, Width: 4})
	e := stepper.NewEngine(d.A(), d.B())
	if err := e.SelectStyle(stepper.Full); err != nil {
		t.Fatal(err)
	}
	if _, err := e.NextStep(stepper.Forward); err != nil {
		t.Fatal(err)
	}
	if got, want := d.Currents(), (stepper.CoilVector{A: 1, B: -1}); got != want {
		t.Errorf("Currents() = %v, want %v", got, want)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\r\033[0m") {
		t.Errorf("unexpected output %q", out)
	}
	last := out[strings.LastIndex(out, "\r"):]
	green := ansi256.Default.Block(positive)
	red := ansi256.Default.Block(negative)
	if strings.Count(last, green) != 4 || strings.Count(last, red) != 4 {
		t.Errorf("last frame %q", last)
	}

	if err := e.SetPowerFactor(0.5); err != nil {
		t.Fatal(err)
	}
	if err := e.Energize(); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	last = out[strings.LastIndex(out, "\r"):]
	if strings.Count(last, green) != 2 || strings.Count(last, red) != 2 {
		t.Errorf("half power frame %q", last)
	}

	buf.Reset()
	if err := e.Release(); err != nil {
		t.Fatal(err)
	}
	if d.Currents() != (stepper.CoilVector{}) {
		t.Errorf("Currents() = %v after Release", d.Currents())
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\n\033[0m") {
		t.Errorf("Halt wrote %q", buf.String())
	}
}

func TestSetDutyRange(t *testing.T) {
	d := New(&Opts{Writer: &bytes.Buffer{}})
	if err := d.A().SetDuty(1.5); err == nil {
		t.Error("expected error")
	}
	if d.String() != "CoilView" {
		t.Error(d.String())
	}
}

func TestPlot(t *testing.T) {
	table, err := stepper.Table(stepper.Half)
	if err != nil {
		t.Fatal(err)
	}
	img, err := Plot(table, 320, 200)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Fatalf("bounds %v", b)
	}
	reds, blues := 0, 0
	for y := 0; y < 200; y++ {
		for x := 0; x < 320; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			switch {
			case r > 0xe000 && g < 0x4000 && b < 0x4000:
				reds++
			case b > 0xe000 && r < 0x4000 && g < 0x4000:
				blues++
			}
		}
	}
	if reds == 0 || blues == 0 {
		t.Errorf("%d red and %d blue pixels", reds, blues)
	}

	if _, err := Plot(nil, 320, 200); err == nil {
		t.Error("expected error for an empty table")
	}
	if _, err := Plot(table, 10, 10); err == nil {
		t.Error("expected error for a small image")
	}
}
