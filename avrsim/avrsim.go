// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package avrsim provides a behavioral stand in for the ATmega169 register
// file with a TLC5615 wired the way the STK502 lab board does it.
//
// The model covers just what the drivers in this module rely on: SPI data
// register writes complete immediately, the PB4 chip select line frames
// transfers, the DAC latches its code on the chip select rising edge and the
// LCD registers are plain storage. It is useful for demos and tests that
// want end to end behavior rather than a scripted access sequence.
package avrsim

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/sakeofmaking/avr169/atmega169"
	"github.com/sakeofmaking/avr169/mmio"
)

const csMask = uint8(1) << atmega169.PB4

// MCU implements mmio.RegisterFile over a 256 byte register image.
//
// An MCU is safe for concurrent use. Each register access locks
// individually, matching the one byte granularity of the bus it models.
type MCU struct {
	mu   sync.Mutex
	regs [256]uint8

	vref physic.ElectricPotential

	shift   []uint8 // bytes clocked out since chip select fell
	sent    []uint8 // every byte ever clocked out
	code    uint16  // code latched in the DAC
	collide bool
}

// New returns an MCU with every register zeroed and the DAC reference set to
// vref. A zero vref selects the 2.048V reference fitted on the lab board.
func New(vref physic.ElectricPotential) *MCU {
	if vref == 0 {
		vref = 2048 * physic.MilliVolt
	}
	return &MCU{vref: vref}
}

// ReadU8 implements mmio.RegisterFile. A pending write collision shows up in
// the SPI status register exactly once.
func (m *MCU) ReadU8(a mmio.Addr) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(a) >= len(m.regs) {
		return 0, fmt.Errorf("avrsim: address 0x%02X outside the register file", uint16(a))
	}
	v := m.regs[a]
	if a == atmega169.SPSR && m.collide {
		v |= atmega169.WCOL
		m.collide = false
	}
	return v, nil
}

// WriteU8 implements mmio.RegisterFile.
func (m *MCU) WriteU8(a mmio.Addr, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(a) >= len(m.regs) {
		return fmt.Errorf("avrsim: address 0x%02X outside the register file", uint16(a))
	}
	switch a {
	case atmega169.SPDR:
		m.regs[a] = v
		m.shift = append(m.shift, v)
		m.sent = append(m.sent, v)
		m.regs[atmega169.SPSR] |= atmega169.SPIF
	case atmega169.PORTB:
		was := m.regs[a]&csMask != 0
		m.regs[a] = v
		now := v&csMask != 0
		if was && !now {
			// Chip select fell: a new transfer begins.
			m.shift = m.shift[:0]
		}
		if !was && now && len(m.shift) >= 2 {
			// The rising edge latches the last sixteen bits. The converter
			// drops the two sub-LSB bits and keeps the ten above them.
			frame := uint16(m.shift[len(m.shift)-2])<<8 | uint16(m.shift[len(m.shift)-1])
			m.code = frame >> 2 & 0x3FF
		}
	default:
		m.regs[a] = v
	}
	return nil
}

// Code returns the ten bit code currently latched in the DAC.
func (m *MCU) Code() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

// Output returns the level on the DAC output pin, 2 * vref * code / 1024.
func (m *MCU) Output() physic.ElectricPotential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 2 * m.vref * physic.ElectricPotential(m.code) / 1024
}

// Transmitted returns a copy of every byte clocked out of the SPI data
// register, in order.
func (m *MCU) Transmitted() []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := make([]uint8, len(m.sent))
	copy(sent, m.sent)
	return sent
}

// InjectCollision makes the next SPI status read report a write collision,
// as if the data register had been loaded mid transfer.
func (m *MCU) InjectCollision() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collide = true
}

// ChipSelect returns the PB4 line the DAC chip select is wired to.
func (m *MCU) ChipSelect() *atmega169.Pin {
	return atmega169.NewPin(m, atmega169.PORTB, atmega169.DDRB, atmega169.PB4, "PB4")
}

func (m *MCU) String() string {
	return "ATmega169 simulator"
}

var _ mmio.RegisterFile = &MCU{}
