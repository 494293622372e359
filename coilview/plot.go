// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package coilview

import (
	"errors"
	"image"

	"github.com/GermanBionicSystems/motorhat/stepper"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const margin = 24

// Plot draws the coil currents of one electrical cycle of table, coil A in
// red and coil B in blue, as a w x h image.
func Plot(table []stepper.CoilVector, w, h int) (image.Image, error) {
	if len(table) == 0 {
		return nil, errors.New("coilview: empty step table")
	}
	if w <= 4*margin || h <= 4*margin {
		return nil, errors.New("coilview: image too small")
	}
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	left, right := float64(margin), float64(w-margin)
	top, bottom := float64(margin), float64(h-margin)
	mid := (top + bottom) / 2
	// x and y map a table entry and a current to image coordinates.
	x := func(i int) float64 { return left + (right-left)*float64(i)/float64(len(table)) }
	y := func(c float64) float64 { return mid - c*(mid-top) }

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawLine(left, mid, right, mid)
	dc.DrawLine(left, top, left, bottom)
	dc.Stroke()

	dc.SetLineWidth(3)
	for _, curve := range []struct {
		r, g, b float64
		current func(v stepper.CoilVector) float64
	}{
		{1, 0, 0, func(v stepper.CoilVector) float64 { return v.A }},
		{0, 0, 1, func(v stepper.CoilVector) float64 { return v.B }},
	} {
		dc.SetRGB(curve.r, curve.g, curve.b)
		dc.MoveTo(x(0), y(curve.current(table[0])))
		for i, v := range table {
			dc.LineTo(x(i), y(curve.current(v)))
			dc.LineTo(x(i+1), y(curve.current(v)))
		}
		dc.Stroke()
	}

	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 12}))
	dc.SetRGB(1, 0, 0)
	dc.DrawString("A", right-28, top-8)
	dc.SetRGB(0, 0, 1)
	dc.DrawString("B", right-12, top-8)
	return dc.Image(), nil
}
