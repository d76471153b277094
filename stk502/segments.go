// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stk502

import "errors"

var (
	// ErrInvalidChar is returned for characters the glass cannot form.
	ErrInvalidChar = errors.New("stk502: character not displayable")
	// ErrInvalidPosition is returned for character positions outside
	// MinPosition through MaxPosition.
	ErrInvalidPosition = errors.New("stk502: position out of range")
)

// The glass exposes six character cells at datasheet positions 2 through 7,
// position 2 being the leftmost.
const (
	MinPosition = 2
	MaxPosition = 7
)

// Pattern describes the lit segments of one character cell, one nibble per
// display data plane. The lowest nibble goes to the lowest numbered data
// register of the cell, the highest nibble to the highest.
type Pattern uint16

// Nibble returns the four segment bits for plane row 0 through 3.
func (p Pattern) Nibble(row int) uint8 {
	return uint8(p>>(4*uint(row))) & 0x0F
}

// numberSegments holds the segment pattern for each digit.
var numberSegments = [10]Pattern{
	0x1551, // 0
	0x0110, // 1
	0x1E11, // 2
	0x1B11, // 3
	0x0B50, // 4
	0x1B41, // 5
	0x1F40, // 6
	0x0111, // 7
	0x1F51, // 8
	0x0B51, // 9
}

// SegmentsFor returns the segment pattern for r. Only the decimal digits and
// the space character have a representation on the glass.
func SegmentsFor(r rune) (Pattern, error) {
	switch {
	case r >= '0' && r <= '9':
		return numberSegments[r-'0'], nil
	case r == ' ':
		return 0, nil
	}
	return 0, ErrInvalidChar
}

// PlaneFor maps a character position on the glass to its display data plane.
// plane is the offset of the cell's lowest data register from the start of
// the bank and high selects the upper nibble within each register. Two
// neighboring positions share the registers of one plane, one nibble each.
func PlaneFor(pos int) (plane int, high bool, err error) {
	if pos < MinPosition || pos > MaxPosition {
		return 0, false, ErrInvalidPosition
	}
	return pos/2 - 1, pos%2 == 1, nil
}
