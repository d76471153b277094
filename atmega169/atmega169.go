// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package atmega169 holds the ATmega169 peripheral register map the drivers
// in this module touch, together with a gpio.PinOut implementation over the
// port registers.
//
// Addresses are data space addresses, the same numbers the datasheet prints
// in parentheses next to each I/O register.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/doc2514.pdf
package atmega169

import "github.com/sakeofmaking/avr169/mmio"

// Port B registers.
const (
	PINB  mmio.Addr = 0x23
	DDRB  mmio.Addr = 0x24
	PORTB mmio.Addr = 0x25
)

// Port B bit numbers.
const (
	PB0 = iota
	PB1
	PB2
	PB3
	PB4
	PB5
	PB6
	PB7
)

// SPI registers.
const (
	SPCR mmio.Addr = 0x4C
	SPSR mmio.Addr = 0x4D
	SPDR mmio.Addr = 0x4E
)

// SPCR bits.
const (
	SPIE uint8 = 1 << 7
	SPE  uint8 = 1 << 6
	DORD uint8 = 1 << 5
	MSTR uint8 = 1 << 4
	CPOL uint8 = 1 << 3
	CPHA uint8 = 1 << 2
	SPR1 uint8 = 1 << 1
	SPR0 uint8 = 1 << 0
)

// SPSR bits.
const (
	SPIF  uint8 = 1 << 7
	WCOL  uint8 = 1 << 6
	SPI2X uint8 = 1 << 0
)

// LCD controller registers.
const (
	LCDCRA mmio.Addr = 0xE4 // control and status A
	LCDCRB mmio.Addr = 0xE5 // control and status B
	LCDFRR mmio.Addr = 0xE6 // frame rate
	LCDCCR mmio.Addr = 0xE7 // contrast control
)

// LCDCRA bits.
const (
	LCDEN uint8 = 1 << 7
	LCDAB uint8 = 1 << 6
	LCDIF uint8 = 1 << 4
	LCDIE uint8 = 1 << 3
	LCDBL uint8 = 1 << 0
)

// LCDCRB bits.
const (
	LCDCS   uint8 = 1 << 7
	LCD2B   uint8 = 1 << 6
	LCDMUX1 uint8 = 1 << 5
	LCDMUX0 uint8 = 1 << 4
	LCDPM2  uint8 = 1 << 2
	LCDPM1  uint8 = 1 << 1
	LCDPM0  uint8 = 1 << 0
)

// LCD display data registers. The remaining eighteen follow LCDDR0
// contiguously, LCDDR0+1 through LCDDR0+18.
const (
	LCDDR0  mmio.Addr = 0xEC
	LCDDR18 mmio.Addr = 0xFE
)
