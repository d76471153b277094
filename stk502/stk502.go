// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stk502 drives the segment LCD glass on the STK502 expansion board
// through the LCD controller of an ATmega169. It implements
// display.TextDisplay for the six digit cells of the glass.
//
// Writes are validated before any register is touched: a bad character or
// position leaves the display exactly as it was. Each cell update is four
// read-modify-write accesses that preserve the neighboring cell sharing the
// other nibble of the same registers.
//
// A Dev is not safe for concurrent use. The display data registers are
// shared read-modify-write state; give the controller one owner.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/doc2514.pdf
//
// https://ww1.microchip.com/downloads/en/AppNotes/doc2530.pdf
package stk502

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"

	"github.com/sakeofmaking/avr169/atmega169"
	"github.com/sakeofmaking/avr169/mmio"
)

var errClockDivide = errors.New("stk502: clock divide out of range")

func wrap(err error) error {
	return fmt.Errorf("stk502: %w", err)
}

// Duty is the fraction of the frame during which a backplane is driven,
// the LCDMUX field.
type Duty uint8

const (
	DutyStatic Duty = iota
	DutyHalf
	DutyThird
	DutyQuarter
)

// Prescaler divides the LCD clock ahead of the frame rate divider, the
// LCDPS field.
type Prescaler uint8

const (
	Prescale16 Prescaler = iota
	Prescale64
	Prescale128
	Prescale256
	Prescale512
	Prescale1024
	Prescale2048
	Prescale4096
)

func (p Prescaler) factor() int {
	if p == Prescale16 {
		return 16
	}
	return 32 << uint(p&7)
}

// PortMask selects how many of the segment pins are driven, the LCDPM
// field.
type PortMask uint8

// Segments25 drives all 25 segment pins, what the STK502 glass is wired
// for.
const Segments25 PortMask = 7

// DriveLevel sets the nominal LCD drive voltage, the LCDCC field.
type DriveLevel uint8

// Drive3V is the 3.0V level the STK502 glass is specified at.
const Drive3V DriveLevel = 8

// Potential returns the nominal drive voltage for the level: 2.6V plus 50mV
// per step.
func (l DriveLevel) Potential() physic.ElectricPotential {
	return 2600*physic.MilliVolt + physic.ElectricPotential(l&0x0F)*50*physic.MilliVolt
}

// Opts holds the controller configuration.
type Opts struct {
	// ExternalClock runs the controller from the TOSC watch crystal input
	// instead of the system clock.
	ExternalClock bool
	// LowPowerWaveform selects the low power drive waveform.
	LowPowerWaveform bool
	// HalfBias selects 1/2 bias; the default is 1/3.
	HalfBias bool
	Duty     Duty
	PortMask PortMask
	// Prescaler and ClockDivide set the frame rate together:
	// rate = clock / (8 * prescaler * divide). ClockDivide is 1 through 8;
	// zero means 1.
	Prescaler   Prescaler
	ClockDivide int
	Drive       DriveLevel
	// ClockFrequency is the LCD clock source frequency, used to report the
	// frame rate. It defaults to the 32.768kHz watch crystal.
	ClockFrequency physic.Frequency
}

// STK502 configures the controller for the glass shipped with the STK502:
// externally clocked, 1/3 bias, 1/4 duty, all 25 segment pins, a 64Hz frame
// rate off the 32.768kHz crystal and 3.0V drive.
var STK502 = Opts{
	ExternalClock:  true,
	Duty:           DutyQuarter,
	PortMask:       Segments25,
	Prescaler:      Prescale64,
	ClockDivide:    1,
	Drive:          Drive3V,
	ClockFrequency: 32768 * physic.Hertz,
}

// planeBanks are the display data registers the glass maps. They are
// blanked at init and on Halt.
var planeBanks = [...]int{0, 1, 2, 3, 5, 6, 7, 8, 10, 11, 12, 13, 15, 16, 17}

// Dev represents the STK502 LCD.
type Dev struct {
	rf     mmio.RegisterFile
	opts   *Opts
	divide int
	col    int
}

// New programs the controller per opts and blanks every cell. Pass nil opts
// for the STK502 configuration.
func New(rf mmio.RegisterFile, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &STK502
	}
	divide := opts.ClockDivide
	if divide == 0 {
		divide = 1
	}
	if divide < 1 || divide > 8 {
		return nil, errClockDivide
	}
	d := &Dev{rf: rf, opts: opts, divide: divide}

	cra := atmega169.LCDEN
	if opts.LowPowerWaveform {
		cra |= atmega169.LCDAB
	}
	crb := uint8(opts.Duty)<<4 | uint8(opts.PortMask&7)
	if opts.ExternalClock {
		crb |= atmega169.LCDCS
	}
	if opts.HalfBias {
		crb |= atmega169.LCD2B
	}
	frr := uint8(opts.Prescaler)<<4 | uint8(divide-1)
	ccr := uint8(opts.Drive) & 0x0F

	for _, reg := range []struct {
		a mmio.Addr
		v uint8
	}{
		{atmega169.LCDCRA, cra},
		{atmega169.LCDCRB, crb},
		{atmega169.LCDFRR, frr},
		{atmega169.LCDCCR, ccr},
	} {
		if err := rf.WriteU8(reg.a, reg.v); err != nil {
			return nil, wrap(err)
		}
	}
	if err := d.blank(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) blank() error {
	for _, bank := range planeBanks {
		if err := d.rf.WriteU8(atmega169.LCDDR0+mmio.Addr(bank), 0); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// WriteChar puts r on the glass at the given position. Both the character
// and the position are resolved before any register is written, so a failed
// call changes nothing. The neighboring cell sharing the plane registers is
// preserved.
func (d *Dev) WriteChar(r rune, pos int) error {
	plane, high, err := PlaneFor(pos)
	if err != nil {
		return err
	}
	pat, err := SegmentsFor(r)
	if err != nil {
		return err
	}
	mask, shift := uint8(0x0F), uint(0)
	if high {
		mask, shift = 0xF0, 4
	}
	for row := 0; row < 4; row++ {
		a := atmega169.LCDDR0 + mmio.Addr(plane+5*row)
		if err := mmio.WriteMasked(d.rf, a, mask, pat.Nibble(row)<<shift); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// FrameRate returns the nominal LCD frame rate for the programmed clocking,
// clock / (8 * prescaler * divide).
func (d *Dev) FrameRate() physic.Frequency {
	clock := d.opts.ClockFrequency
	if clock == 0 {
		clock = STK502.ClockFrequency
	}
	return clock / physic.Frequency(8*d.opts.Prescaler.factor()*d.divide)
}

// Enable/Disable auto scroll. Not supported by the glass.
func (d *Dev) AutoScroll(enabled bool) error {
	return wrap(display.ErrNotImplemented)
}

// Return the number of columns the display supports.
func (d *Dev) Cols() int {
	return MaxPosition - MinPosition + 1
}

// Clear the display and move the cursor home.
func (d *Dev) Clear() error {
	for pos := MinPosition; pos <= MaxPosition; pos++ {
		if err := d.WriteChar(' ', pos); err != nil {
			return err
		}
	}
	d.col = d.MinCol()
	return nil
}

// Set the cursor mode. The glass has no cursor.
func (d *Dev) Cursor(mode ...display.CursorMode) error {
	return wrap(display.ErrNotImplemented)
}

// Display turns the LCD output on or off. Off blanks the glass without
// losing the cell contents.
func (d *Dev) Display(on bool) error {
	if on {
		return mmio.ClearBits(d.rf, atmega169.LCDCRA, atmega169.LCDBL)
	}
	return mmio.SetBits(d.rf, atmega169.LCDCRA, atmega169.LCDBL)
}

// Halt blanks the glass and shuts the controller down. Implements
// conn.Resource.
func (d *Dev) Halt() error {
	if err := d.blank(); err != nil {
		return err
	}
	return mmio.ClearBits(d.rf, atmega169.LCDCRA, atmega169.LCDEN)
}

// Home moves the cursor to the leftmost cell.
func (d *Dev) Home() error {
	return d.MoveTo(d.MinRow(), d.MinCol())
}

// Return the min column position.
func (d *Dev) MinCol() int {
	return 0
}

// Return the min row position.
func (d *Dev) MinRow() int {
	return 0
}

// Move the cursor one cell forward or backward.
func (d *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		if d.col > d.MinCol() {
			d.col--
			return nil
		}
	case display.Forward:
		if d.col < d.Cols()-1 {
			d.col++
			return nil
		}
	default:
		return wrap(display.ErrNotImplemented)
	}
	return ErrInvalidPosition
}

// Move the cursor to an arbitrary column.
func (d *Dev) MoveTo(row, col int) error {
	if row != d.MinRow() || col < d.MinCol() || col >= d.Cols() {
		return ErrInvalidPosition
	}
	d.col = col
	return nil
}

// Return the number of rows the display supports.
func (d *Dev) Rows() int {
	return 1
}

func (d *Dev) String() string {
	return fmt.Sprintf("STK502 %dx%d segment LCD", d.Cols(), d.Rows())
}

// Write puts the given characters on the glass starting at the cursor. The
// whole write is validated before any register is touched: a length or
// character error leaves the glass unchanged with n zero. A register file
// error mid-write stops early and returns how many characters made it out.
func (d *Dev) Write(p []byte) (n int, err error) {
	if d.col+len(p) > d.Cols() {
		return 0, ErrInvalidPosition
	}
	for _, c := range p {
		if _, err := SegmentsFor(rune(c)); err != nil {
			return 0, err
		}
	}
	for _, c := range p {
		if err := d.WriteChar(rune(c), MinPosition+d.col); err != nil {
			return n, err
		}
		d.col++
		n++
	}
	return n, nil
}

// Write a string to the display.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

var _ display.TextDisplay = &Dev{}
var _ conn.Resource = &Dev{}
