// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package segview

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	cellWidth  = 56
	cellHeight = 96
	margin     = 12
)

// ghost is the tint of unlit segments on the glass.
var ghost = color.NRGBA{0xAC, 0xC0, 0xA4, 255}

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func glassFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			faceErr = err
			return
		}
		face = truetype.NewFace(f, &truetype.Options{
			Size: 80,
		})
	})
	return face, faceErr
}

// Image renders the glass as a picture.
//
// Every cell gets a faint "8" underlay the way unlit segments show through on
// a real display, with the active character drawn on top.
func (v *View) Image() (image.Image, error) {
	text, err := v.Text()
	if err != nil {
		return nil, err
	}
	f, err := glassFace()
	if err != nil {
		return nil, err
	}
	w := 2*margin + len(text)*cellWidth
	h := 2*margin + cellHeight
	dc := gg.NewContext(w, h)
	dc.SetColor(segmentOff)
	dc.Clear()
	dc.SetFontFace(f)
	// Text is ASCII by construction, so byte offsets are cell indices.
	for i, r := range text {
		x := float64(margin+i*cellWidth) + float64(cellWidth)/2
		y := float64(margin) + float64(cellHeight)/2
		dc.SetColor(ghost)
		dc.DrawStringAnchored("8", x, y, 0.5, 0.5)
		if r == ' ' {
			continue
		}
		dc.SetColor(segmentOn)
		dc.DrawStringAnchored(string(r), x, y, 0.5, 0.5)
	}
	return dc.Image(), nil
}
