// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segview renders the STK502 glass contents from the LCD data
// registers.
//
// A View decodes the six character cells straight out of a register file, so
// it can sit next to a stk502.Dev on an avrsim.MCU and show what the glass
// would display: as a string, as ANSI blocks on the terminal, as an image or
// over HTTP.
//
// Useful while the expansion board is in the mail.
package segview

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/sakeofmaking/avr169/atmega169"
	"github.com/sakeofmaking/avr169/mmio"
	"github.com/sakeofmaking/avr169/stk502"
)

// runeFor maps a segment pattern back to the character that produces it.
var runeFor = map[stk502.Pattern]rune{}

func init() {
	for r := '0'; r <= '9'; r++ {
		p, _ := stk502.SegmentsFor(r)
		runeFor[p] = r
	}
	runeFor[0] = ' '
}

// rasters holds a three by five cell for every character Text can produce,
// one row per byte, bit 2 the leftmost column.
var rasters = map[rune][5]uint8{
	' ': {},
	'0': {0b111, 0b101, 0b101, 0b101, 0b111},
	'1': {0b010, 0b110, 0b010, 0b010, 0b111},
	'2': {0b111, 0b001, 0b111, 0b100, 0b111},
	'3': {0b111, 0b001, 0b111, 0b001, 0b111},
	'4': {0b101, 0b101, 0b111, 0b001, 0b001},
	'5': {0b111, 0b100, 0b111, 0b001, 0b111},
	'6': {0b111, 0b100, 0b111, 0b101, 0b111},
	'7': {0b111, 0b001, 0b001, 0b001, 0b001},
	'8': {0b111, 0b101, 0b111, 0b101, 0b111},
	'9': {0b111, 0b101, 0b111, 0b001, 0b111},
	'?': {0b111, 0b001, 0b010, 0b000, 0b010},
}

var (
	segmentOn  = color.NRGBA{0x20, 0x28, 0x20, 255}
	segmentOff = color.NRGBA{0xB8, 0xCC, 0xB0, 255}
)

// Opts represents the options available for a View.
type Opts struct {
	Palette *ansi256.Palette
}

// View reads the glass back out of a register file.
type View struct {
	rf      mmio.RegisterFile
	w       io.Writer
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a View over rf that renders to the console. Pass nil opts for
// the default palette.
func New(rf mmio.RegisterFile, opts *Opts) *View {
	p := ansi256.Default
	if opts != nil && opts.Palette != nil {
		p = opts.Palette
	}
	return &View{
		rf:      rf,
		w:       colorable.NewColorableStdout(),
		palette: *p,
	}
}

func (v *View) String() string {
	return "SegView"
}

// cell decodes the character at the given glass position.
func (v *View) cell(pos int) (rune, error) {
	plane, high, err := stk502.PlaneFor(pos)
	if err != nil {
		return 0, err
	}
	var pat stk502.Pattern
	for row := 0; row < 4; row++ {
		reg, err := v.rf.ReadU8(atmega169.LCDDR0 + mmio.Addr(plane+5*row))
		if err != nil {
			return 0, err
		}
		n := reg & 0x0F
		if high {
			n = reg >> 4
		}
		pat |= stk502.Pattern(n) << (4 * uint(row))
	}
	r, ok := runeFor[pat]
	if !ok {
		// Segment soup no character produces.
		return '?', nil
	}
	return r, nil
}

// Text returns the six characters currently on the glass, leftmost first.
// Cells whose segments match no displayable character read as '?'.
func (v *View) Text() (string, error) {
	cells := make([]rune, 0, stk502.MaxPosition-stk502.MinPosition+1)
	for pos := stk502.MinPosition; pos <= stk502.MaxPosition; pos++ {
		r, err := v.cell(pos)
		if err != nil {
			return "", err
		}
		cells = append(cells, r)
	}
	return string(cells), nil
}

// Render draws the glass onto the console as colored blocks.
func (v *View) Render() error {
	text, err := v.Text()
	if err != nil {
		return err
	}
	// Minimize the writes per refresh.
	v.buf.Reset()
	_, _ = v.buf.WriteString("\033[0m")
	for row := 0; row < 5; row++ {
		for _, r := range text {
			raster := rasters[r]
			for col := 2; col >= 0; col-- {
				c := segmentOff
				if raster[row]&(1<<uint(col)) != 0 {
					c = segmentOn
				}
				_, _ = io.WriteString(&v.buf, v.palette.Block(c))
			}
			_, _ = io.WriteString(&v.buf, v.palette.Block(segmentOff))
		}
		_, _ = v.buf.WriteString("\033[0m\n")
	}
	_, err = v.buf.WriteTo(v.w)
	return err
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not left corrupted.
func (v *View) Halt() error {
	_, err := v.w.Write([]byte("\n\033[0m"))
	return err
}
