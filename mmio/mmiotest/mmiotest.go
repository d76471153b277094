// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmiotest implements register file test doubles.
//
// Playback verifies that a driver touches registers in an exact scripted
// order, Record captures whatever a driver does on top of plain byte
// storage.
package mmiotest

import (
	"fmt"
	"sync"

	"github.com/sakeofmaking/avr169/mmio"
)

// IO is one register access.
type IO struct {
	Addr mmio.Addr
	// W is true for a write access.
	W bool
	// Data is the value written, or the value handed back for a read.
	Data uint8
}

func errorf(dontPanic bool, format string, a ...interface{}) error {
	err := fmt.Errorf(format, a...)
	if !dontPanic {
		panic(err)
	}
	return err
}

// Playback implements mmio.RegisterFile and plays back a scripted access
// sequence.
//
// Every access is compared against the next expected operation; reads return
// the scripted data. A mismatch panics unless DontPanic is set.
type Playback struct {
	sync.Mutex
	Ops       []IO
	Count     int
	DontPanic bool
}

func (p *Playback) String() string {
	return "playback"
}

// Close verifies that every scripted access was consumed. It is context free
// and can be called at any point.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if p.Count != len(p.Ops) {
		return errorf(p.DontPanic, "mmiotest: expected %d accesses, got %d", len(p.Ops), p.Count)
	}
	return nil
}

// ReadU8 implements mmio.RegisterFile.
func (p *Playback) ReadU8(a mmio.Addr) (uint8, error) {
	p.Lock()
	defer p.Unlock()
	if p.Count >= len(p.Ops) {
		return 0, errorf(p.DontPanic, "mmiotest: unexpected read of 0x%02X", uint16(a))
	}
	op := p.Ops[p.Count]
	if op.W || op.Addr != a {
		return 0, errorf(p.DontPanic, "mmiotest: read of 0x%02X, expected %s", uint16(a), op)
	}
	p.Count++
	return op.Data, nil
}

// WriteU8 implements mmio.RegisterFile.
func (p *Playback) WriteU8(a mmio.Addr, v uint8) error {
	p.Lock()
	defer p.Unlock()
	if p.Count >= len(p.Ops) {
		return errorf(p.DontPanic, "mmiotest: unexpected write of 0x%02X to 0x%02X", v, uint16(a))
	}
	op := p.Ops[p.Count]
	if !op.W || op.Addr != a || op.Data != v {
		return errorf(p.DontPanic, "mmiotest: write of 0x%02X to 0x%02X, expected %s", v, uint16(a), op)
	}
	p.Count++
	return nil
}

func (io IO) String() string {
	dir := "read of"
	if io.W {
		dir = "write of"
	}
	return fmt.Sprintf("%s 0x%02X at 0x%02X", dir, io.Data, uint16(io.Addr))
}

// Record implements mmio.RegisterFile over plain byte storage and logs every
// access in Ops.
//
// Registers that were never written read as zero. The zero value is ready to
// use.
type Record struct {
	sync.Mutex
	// Regs holds the current register contents. It is created on first write.
	Regs map[mmio.Addr]uint8
	Ops  []IO
}

func (r *Record) String() string {
	return "record"
}

// ReadU8 implements mmio.RegisterFile.
func (r *Record) ReadU8(a mmio.Addr) (uint8, error) {
	r.Lock()
	defer r.Unlock()
	v := r.Regs[a]
	r.Ops = append(r.Ops, IO{Addr: a, Data: v})
	return v, nil
}

// WriteU8 implements mmio.RegisterFile.
func (r *Record) WriteU8(a mmio.Addr, v uint8) error {
	r.Lock()
	defer r.Unlock()
	if r.Regs == nil {
		r.Regs = map[mmio.Addr]uint8{}
	}
	r.Regs[a] = v
	r.Ops = append(r.Ops, IO{Addr: a, W: true, Data: v})
	return nil
}

var _ mmio.RegisterFile = &Playback{}
var _ mmio.RegisterFile = &Record{}
