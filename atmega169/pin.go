// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package atmega169

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/sakeofmaking/avr169/mmio"
)

// ErrNotImplemented is returned for pin capabilities the port hardware does
// not have.
var ErrNotImplemented = errors.New("atmega169: not implemented")

// Pin is a single port line driven through a PORTx register. It implements
// gpio.PinOut, so drivers that take a chip select or reset line can be
// handed an MCU port pin directly.
type Pin struct {
	rf   mmio.RegisterFile
	port mmio.Addr
	ddr  mmio.Addr
	n    int
	name string
	out  bool
}

// NewPin returns a Pin over the given PORTx/DDRx register pair. n is the bit
// number within the port. The data direction bit is programmed on the first
// Out call.
func NewPin(rf mmio.RegisterFile, port, ddr mmio.Addr, n int, name string) *Pin {
	return &Pin{rf: rf, port: port, ddr: ddr, n: n, name: name}
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns the name of the GPIO pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the bit number of the pin within its port.
func (p *Pin) Number() int {
	return p.n
}

// Deprecated: returns "Out"
func (p *Pin) Function() string {
	return "Out"
}

// Out drives the pin to the specified gpio.Level.
func (p *Pin) Out(l gpio.Level) error {
	mask := uint8(1) << p.n
	if !p.out {
		if err := mmio.SetBits(p.rf, p.ddr, mask); err != nil {
			return err
		}
		p.out = true
	}
	if l {
		return mmio.SetBits(p.rf, p.port, mask)
	}
	return mmio.ClearBits(p.rf, p.port, mask)
}

// Not implemented.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (p *Pin) String() string {
	return p.name
}

var _ gpio.PinOut = &Pin{}
