// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmio defines the byte wide register file the drivers in this module
// are written against, plus read-modify-write and busy wait helpers.
//
// A RegisterFile stands in for the MCU data space. On a target it maps to
// real peripheral registers; in tests it is an mmiotest double and in
// simulation an avrsim.MCU. Drivers never care which one they got.
package mmio

import (
	"errors"
	"fmt"
	"time"
)

// Addr is an address in the MCU data space.
type Addr uint16

// RegisterFile provides byte wide access to memory mapped peripheral
// registers.
type RegisterFile interface {
	ReadU8(a Addr) (uint8, error)
	WriteU8(a Addr, v uint8) error
}

// ErrTimeout is returned by WaitSet when the watched bits do not come up
// within the allotted time.
var ErrTimeout = errors.New("mmio: timeout waiting for register bits")

// SetBits sets the bits in mask, leaving the rest of the register alone.
func SetBits(rf RegisterFile, a Addr, mask uint8) error {
	v, err := rf.ReadU8(a)
	if err != nil {
		return err
	}
	return rf.WriteU8(a, v|mask)
}

// ClearBits clears the bits in mask, leaving the rest of the register alone.
func ClearBits(rf RegisterFile, a Addr, mask uint8) error {
	v, err := rf.ReadU8(a)
	if err != nil {
		return err
	}
	return rf.WriteU8(a, v&^mask)
}

// WriteMasked replaces the bits selected by mask with the corresponding bits
// of value. Bits outside mask keep their current contents.
func WriteMasked(rf RegisterFile, a Addr, mask, value uint8) error {
	v, err := rf.ReadU8(a)
	if err != nil {
		return err
	}
	return rf.WriteU8(a, (v&^mask)|(value&mask))
}

// WaitSet polls a until every bit in mask reads back as one. A timeout of
// zero or less waits forever, which is what the flags this module watches
// call for on real silicon. Otherwise ErrTimeout is returned once the
// deadline passes.
//
// The loop does not sleep between reads. The events it waits on complete
// within microseconds at the supported clock rates.
func WaitSet(rf RegisterFile, a Addr, mask uint8, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		v, err := rf.ReadU8(a)
		if err != nil {
			return err
		}
		if v&mask == mask {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w: address 0x%02X mask 0x%02X", ErrTimeout, uint16(a), mask)
		}
	}
}
