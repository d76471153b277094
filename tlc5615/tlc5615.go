// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tlc5615 drives a Texas Instruments TLC5615 10-bit serial DAC
// through the SPI master of an ATmega169, the way the chip is wired on the
// STK502 lab board.
//
// The driver owns the MCU side of the link. It programs the SPI control
// registers, frames each sample the way the chip expects (four dummy bits,
// ten data bits, two sub-LSB bits) and toggles the chip select line around
// every two byte transfer. The converter latches the new code when chip
// select rises.
//
// A Dev is not safe for concurrent use. The SPI port has a single data
// register; give each port one owner.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/tlc5615.pdf
package tlc5615

import (
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/sakeofmaking/avr169/atmega169"
	"github.com/sakeofmaking/avr169/mmio"
)

const (
	// MaxSample is the largest value Write accepts. The low two bits are
	// sub-LSB padding and the top two fall into the dummy bits of the frame,
	// so the converter resolves the middle ten.
	MaxSample = 1<<12 - 1

	stepCount = 1 << 10 // 10-bit D/A
	maxCode   = stepCount - 1

	defaultTimeout = 100 * time.Millisecond
)

var (
	errSampleRange    = errors.New("tlc5615: sample out of range")
	errPotentialRange = errors.New("tlc5615: voltage out of range")
)

func wrap(err error) error {
	return fmt.Errorf("tlc5615: %w", err)
}

// ClockRate selects the SCK frequency as a fraction of the MCU clock. The
// low two bits are the SPR1:0 field and bit 2 is SPI2X. The zero value is
// FoscDiv4.
type ClockRate uint8

const (
	FoscDiv4   ClockRate = 0x00
	FoscDiv16  ClockRate = 0x01
	FoscDiv64  ClockRate = 0x02
	FoscDiv128 ClockRate = 0x03
	FoscDiv2   ClockRate = 0x04
	// FoscDiv8 keeps SCK within the converter's rating on an 8MHz part.
	FoscDiv8  ClockRate = 0x05
	FoscDiv32 ClockRate = 0x06
)

func (c ClockRate) spcr() uint8 {
	return uint8(c) & (atmega169.SPR1 | atmega169.SPR0)
}

func (c ClockRate) spsr() uint8 {
	if c&0x04 != 0 {
		return atmega169.SPI2X
	}
	return 0
}

// Opts holds the configuration options for the driver.
type Opts struct {
	// Clock sets the SPI shift clock rate. Every ClockRate value encodes a
	// valid rate, so a zero Clock selects Fosc/4 rather than the DefaultOpts
	// Fosc/8.
	Clock ClockRate
	// VRef is the reference voltage on the REFIN pin. Full scale output is
	// just below twice this value.
	VRef physic.ElectricPotential
	// TransferTimeout bounds the wait for each byte to finish shifting out.
	// Zero selects a generous default; a negative value waits forever, which
	// reproduces the classic busy loop on flaky hardware at the price of
	// hanging with it.
	TransferTimeout time.Duration
	// Verbose logs every written sample.
	Verbose bool
}

// DefaultOpts matches the STK502 lab wiring: Fosc/8 shift clock and the
// 2.048V reference fitted on the board.
var DefaultOpts = Opts{
	Clock: FoscDiv8,
	VRef:  2048 * physic.MilliVolt,
}

// Dev represents a TLC5615 on an ATmega169 SPI port.
type Dev struct {
	rf      mmio.RegisterFile
	cs      gpio.PinOut
	vref    physic.ElectricPotential
	timeout time.Duration
	verbose bool
}

// New initializes the SPI port as a master with the mode and bit order the
// converter expects, parks chip select high and drives the output to zero so
// it starts in a known state. Pass nil opts for DefaultOpts.
func New(rf mmio.RegisterFile, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		rf:      rf,
		cs:      cs,
		vref:    opts.VRef,
		timeout: opts.TransferTimeout,
		verbose: opts.Verbose,
	}
	if d.vref == 0 {
		d.vref = DefaultOpts.VRef
	}
	switch {
	case d.timeout == 0:
		d.timeout = defaultTimeout
	case d.timeout < 0:
		d.timeout = 0 // wait forever
	}

	// Master, MSB first, mode 0, SCK per opts.Clock.
	if err := rf.WriteU8(atmega169.SPCR, atmega169.SPE|atmega169.MSTR|opts.Clock.spcr()); err != nil {
		return nil, wrap(err)
	}
	// SPI2X is the only writable bit in the status register.
	if err := rf.WriteU8(atmega169.SPSR, opts.Clock.spsr()); err != nil {
		return nil, wrap(err)
	}
	// Deselect the converter until the first transfer.
	if err := cs.Out(gpio.High); err != nil {
		return nil, wrap(err)
	}
	if err := d.Write(0); err != nil {
		return nil, err
	}
	return d, nil
}

// Write sends one sample to the converter. sample may use the full 12-bit
// range; values above MaxSample are rejected.
//
// The frame is the sample shifted left by two, transmitted high byte first
// with chip select held low. Both bytes are always sent: a write collision
// reported by the port is logged and the transfer carries on, since the
// hardware keeps shifting the previous byte regardless.
func (d *Dev) Write(sample uint16) error {
	if sample > MaxSample {
		return errSampleRange
	}
	frame := sample << 2
	if err := d.cs.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	if err := d.send(uint8(frame >> 8)); err != nil {
		_ = d.cs.Out(gpio.High)
		return err
	}
	if err := d.send(uint8(frame)); err != nil {
		_ = d.cs.Out(gpio.High)
		return err
	}
	// The rising edge latches the new code.
	if err := d.cs.Out(gpio.High); err != nil {
		return wrap(err)
	}
	if d.verbose {
		log.Printf("tlc5615: wrote sample %d", sample)
	}
	return nil
}

// send checks for a write collision from the previous byte, loads b into the
// data register and waits for the transfer complete flag.
func (d *Dev) send(b uint8) error {
	status, err := d.rf.ReadU8(atmega169.SPSR)
	if err != nil {
		return wrap(err)
	}
	if status&atmega169.WCOL != 0 {
		log.Println("tlc5615: write collision detected")
	}
	if err := d.rf.WriteU8(atmega169.SPDR, b); err != nil {
		return wrap(err)
	}
	if err := mmio.WaitSet(d.rf, atmega169.SPSR, atmega169.SPIF, d.timeout); err != nil {
		return wrap(err)
	}
	return nil
}

// PotentialToSample converts v to the sample whose analog output is closest.
// The converter output is 2 * VRef * code / 1024 with code the sample's ten
// significant bits, so the returned sample is at most 1023.
func (d *Dev) PotentialToSample(v physic.ElectricPotential) (uint16, error) {
	if v < 0 || v > 2*d.vref {
		return 0, errPotentialRange
	}
	step := 2 * d.vref / stepCount
	sample := uint16(float64(v)/float64(step) + 0.5)
	if sample > maxCode {
		sample = maxCode
	}
	return sample, nil
}

// Halt drives the output to zero. Implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Write(0)
}

func (d *Dev) String() string {
	return fmt.Sprintf("TLC5615{%s}", d.cs)
}

var _ conn.Resource = &Dev{}
