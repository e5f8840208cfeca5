// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package plot renders a trace of magnetic field samples to a PNG image.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// Opts is the image layout. Zero values select the DefaultOpts values.
type Opts struct {
	Width  int
	Height int
	Title  string
}

// DefaultOpts is the default layout.
var DefaultOpts = Opts{
	Width:  800,
	Height: 400,
	Title:  "MLX90392",
}

const margin = 40

var (
	errNoSamples = errors.New("plot: no valid sample")

	// Trace colors, in X, Y, Z order.
	traceColors = [3]color.NRGBA{
		{R: 0xd0, G: 0x20, B: 0x20, A: 0xff},
		{R: 0x20, G: 0xa0, B: 0x20, A: 0xff},
		{R: 0x20, G: 0x50, B: 0xd0, A: 0xff},
	}
	axisNames = [3]string{"X", "Y", "Z"}
)

// render draws the X, Y and Z traces of samples in µT. Samples carrying an
// error are skipped. The Opts can be nil.
func render(samples []mlx90392.Measurement, opts *Opts) (image.Image, error) {
	dc, err := draw(samples, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders samples and encodes the image to w. Samples carrying an
// error are skipped. The Opts can be nil.
func WritePNG(w io.Writer, samples []mlx90392.Measurement, opts *Opts) error {
	dc, err := draw(samples, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG renders samples to the file at path.
func SavePNG(path string, samples []mlx90392.Measurement, opts *Opts) error {
	dc, err := draw(samples, opts)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}

func draw(samples []mlx90392.Measurement, opts *Opts) (*gg.Context, error) {
	o := DefaultOpts
	if opts != nil {
		if opts.Width > 0 {
			o.Width = opts.Width
		}
		if opts.Height > 0 {
			o.Height = opts.Height
		}
		if opts.Title != "" {
			o.Title = opts.Title
		}
	}
	var traces [3][]float64
	for _, s := range samples {
		if s.Err != nil {
			continue
		}
		traces[0] = append(traces[0], s.Field.X)
		traces[1] = append(traces[1], s.Field.Y)
		traces[2] = append(traces[2], s.Field.Z)
	}
	n := len(traces[0])
	if n == 0 {
		return nil, errNoSamples
	}
	lo, hi := bounds(traces)

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	left, right := float64(margin), float64(o.Width-margin/2)
	top, bottom := float64(margin), float64(o.Height-margin)
	xAt := func(i int) float64 {
		if n == 1 {
			return (left + right) / 2
		}
		return left + float64(i)*(right-left)/float64(n-1)
	}
	yAt := func(v float64) float64 {
		return bottom - (v-lo)/(hi-lo)*(bottom-top)
	}

	// Frame and zero line.
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawRectangle(left, top, right-left, bottom-top)
	dc.Stroke()
	if lo < 0 && hi > 0 {
		dc.SetRGB(0.8, 0.8, 0.8)
		dc.DrawLine(left, yAt(0), right, yAt(0))
		dc.Stroke()
	}

	dc.SetLineWidth(1.5)
	for a, tr := range traces {
		dc.SetColor(traceColors[a])
		for i, v := range tr {
			if i == 0 {
				dc.MoveTo(xAt(i), yAt(v))
			} else {
				dc.LineTo(xAt(i), yAt(v))
			}
		}
		if n == 1 {
			dc.DrawPoint(xAt(0), yAt(tr[0]), 2)
			dc.Fill()
		} else {
			dc.Stroke()
		}
	}

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%.1fµT", hi), left-4, top, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.1fµT", lo), left-4, bottom, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d samples", n), right, bottom+16, 1, 0)
	for a, name := range axisNames {
		dc.SetColor(traceColors[a])
		dc.DrawString(name, left+float64(a)*20, bottom+16)
	}

	dc.SetFontFace(titleFace())
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(o.Title, float64(o.Width)/2, float64(margin)/2, 0.5, 0.5)
	return dc, nil
}

// bounds returns the value range of all traces, never empty.
func bounds(traces [3][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, tr := range traces {
		for _, v := range tr {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

func titleFace() font.Face {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f, &truetype.Options{Size: 16})
}
