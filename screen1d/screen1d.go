// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen1d renders a magnetic field vector on a terminal line using
// ANSI color codes.
//
// Each axis gets a bar centered on zero that grows right for positive
// values and left for negative ones. The line is rewritten in place so a
// continuous stream of samples animates.
package screen1d

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// X is the width of one axis bar in cells. Default is 21.
	X int
	// FullScale is the field in µT drawn as a full bar. Default is 500.
	FullScale float64
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// DefaultOpts holds the default display options.
var DefaultOpts = Opts{
	X:         21,
	FullScale: 500,
}

// Axis colors, in X, Y, Z order.
var (
	axisColors = [3]color.NRGBA{
		{R: 0xe0, G: 0x30, B: 0x30, A: 0xff},
		{R: 0x30, G: 0xc0, B: 0x30, A: 0xff},
		{R: 0x30, G: 0x60, B: 0xe0, A: 0xff},
	}
	background = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	axisMark   = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Dev is a field vector display that outputs to the console.
type Dev struct {
	w       io.Writer
	l       int
	full    float64
	palette ansi256.Palette

	pixels []byte
	label  string
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console. The Opts can be nil.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	l := opts.X
	if l <= 0 {
		l = DefaultOpts.X
	}
	full := opts.FullScale
	if full <= 0 {
		full = DefaultOpts.FullScale
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		l:       l,
		full:    full,
		palette: *p,
		pixels:  make([]byte, 3*3*l),
	}
}

func (d *Dev) String() string {
	return "Screen1D"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and moves to the next line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Field draws f and prints its components after the bars.
func (d *Dev) Field(f mlx90392.Field) error {
	for i, v := range [3]float64{f.X, f.Y, f.Z} {
		d.bar(i, v)
	}
	d.label = fmt.Sprintf("%s |B|=%.1fµT", f, f.Magnitude())
	_, err := d.refresh()
	return err
}

// bar fills the segment of axis i.
func (d *Dev) bar(i int, v float64) {
	center := d.l / 2
	n := int(math.Round(math.Abs(v) / d.full * float64(center)))
	if n > center {
		n = center
	}
	lo, hi := center, center+n
	if v < 0 {
		lo, hi = center-n, center
	}
	for x := 0; x < d.l; x++ {
		c := background
		switch {
		case n > 0 && x >= lo && x <= hi:
			c = axisColors[i]
		case x == center:
			c = axisMark
		}
		d.set(i*d.l+x, c)
	}
}

func (d *Dev) set(x int, c color.NRGBA) {
	d.pixels[3*x] = c.R
	d.pixels[3*x+1] = c.G
	d.pixels[3*x+2] = c.B
}

// Write accepts a stream of raw RGB pixels and writes it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("screen1d: invalid RGB stream length")
	}
	copy(d.pixels, pixels)
	d.label = ""
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: 3 * d.l, Y: 1}}
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	deltaX := r.Min.X - srcR.Min.X
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		c := color.NRGBAModel.Convert(src.At(sX, srcR.Min.Y)).(color.NRGBA)
		d.set(sX+deltaX, c)
	}
	d.label = ""
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels)/3; i++ {
		if i != 0 && i%d.l == 0 {
			_, _ = d.buf.WriteString("\033[0m ")
		}
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, _ = d.buf.WriteString(d.label)
	// Clear leftovers of a longer previous label.
	_, _ = d.buf.WriteString("\033[K")
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
