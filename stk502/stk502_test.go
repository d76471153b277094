// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stk502

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"

	"github.com/sakeofmaking/avr169/atmega169"
	"github.com/sakeofmaking/avr169/mmio"
	"github.com/sakeofmaking/avr169/mmio/mmiotest"
)

func newForTest(t *testing.T) (*Dev, *mmiotest.Record) {
	t.Helper()
	rec := &mmiotest.Record{}
	d, err := New(rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, rec
}

// bank returns the register contents of LCDDR0+n.
func bank(rec *mmiotest.Record, n int) uint8 {
	return rec.Regs[atmega169.LCDDR0+mmio.Addr(n)]
}

func TestInit(t *testing.T) {
	_, rec := newForTest(t)

	want := map[mmio.Addr]uint8{
		// External clock, 1/3 bias, 1/4 duty, 25 segments, 64Hz, 3.0V.
		atmega169.LCDCRA: 0x80,
		atmega169.LCDCRB: 0xB7,
		atmega169.LCDFRR: 0x10,
		atmega169.LCDCCR: 0x08,
	}
	for _, bank := range planeBanks {
		want[atmega169.LCDDR0+mmio.Addr(bank)] = 0
	}
	if diff := cmp.Diff(rec.Regs, want); diff != "" {
		t.Errorf("register difference (-got +want):\n%s", diff)
	}
}

func TestInitBadDivide(t *testing.T) {
	if _, err := New(&mmiotest.Record{}, &Opts{ClockDivide: 9}); !errors.Is(err, errClockDivide) {
		t.Errorf("New() = %v, want errClockDivide", err)
	}
}

func TestWriteChar(t *testing.T) {
	d, rec := newForTest(t)

	if err := d.WriteChar('5', 5); err != nil {
		t.Fatal(err)
	}
	// Position 5 is the upper nibble of plane 1.
	got := []uint8{bank(rec, 1), bank(rec, 6), bank(rec, 11), bank(rec, 16)}
	if diff := cmp.Diff(got, []uint8{0x10, 0x40, 0xB0, 0x10}); diff != "" {
		t.Fatalf("'5' at position 5 difference (-got +want):\n%s", diff)
	}

	// Position 4 lands in the lower nibbles of the same registers without
	// disturbing its neighbor.
	if err := d.WriteChar('3', 4); err != nil {
		t.Fatal(err)
	}
	got = []uint8{bank(rec, 1), bank(rec, 6), bank(rec, 11), bank(rec, 16)}
	if diff := cmp.Diff(got, []uint8{0x11, 0x41, 0xBB, 0x11}); diff != "" {
		t.Fatalf("'3' at position 4 difference (-got +want):\n%s", diff)
	}
}

func TestWriteCharIdempotent(t *testing.T) {
	d, rec := newForTest(t)

	if err := d.WriteChar('8', 2); err != nil {
		t.Fatal(err)
	}
	first := []uint8{bank(rec, 0), bank(rec, 5), bank(rec, 10), bank(rec, 15)}
	if err := d.WriteChar('8', 2); err != nil {
		t.Fatal(err)
	}
	second := []uint8{bank(rec, 0), bank(rec, 5), bank(rec, 10), bank(rec, 15)}
	if diff := cmp.Diff(second, first); diff != "" {
		t.Errorf("rewriting the same character changed the registers:\n%s", diff)
	}
}

func TestWriteCharValidatesFirst(t *testing.T) {
	d, rec := newForTest(t)
	before := len(rec.Ops)

	if err := d.WriteChar('A', 5); !errors.Is(err, ErrInvalidChar) {
		t.Errorf("WriteChar('A', 5) = %v, want ErrInvalidChar", err)
	}
	if err := d.WriteChar('5', 8); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("WriteChar('5', 8) = %v, want ErrInvalidPosition", err)
	}
	// With both arguments bad the position is reported.
	if err := d.WriteChar('A', 8); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("WriteChar('A', 8) = %v, want ErrInvalidPosition", err)
	}
	if got := len(rec.Ops); got != before {
		t.Errorf("failed writes still touched registers: %d accesses", got-before)
	}
}

func TestWrite(t *testing.T) {
	d, rec := newForTest(t)

	n, err := d.WriteString("42")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("WriteString() = %d, want 2", n)
	}
	want := map[mmio.Addr]uint8{
		atmega169.LCDDR0:      0x10,
		atmega169.LCDDR0 + 5:  0x15,
		atmega169.LCDDR0 + 10: 0xEB,
		atmega169.LCDDR0 + 15: 0x10,
	}
	for a, w := range want {
		if got := rec.Regs[a]; got != w {
			t.Errorf("0x%02X = 0x%02X, want 0x%02X", uint16(a), got, w)
		}
	}
}

func TestWriteValidatesWhole(t *testing.T) {
	d, rec := newForTest(t)
	before := len(rec.Ops)

	n, err := d.Write([]byte("1A"))
	if !errors.Is(err, ErrInvalidChar) {
		t.Errorf("Write() = %v, want ErrInvalidChar", err)
	}
	if n != 0 {
		t.Errorf("Write() reported %d characters for a rejected write", n)
	}
	if got := len(rec.Ops); got != before {
		t.Error("a rejected write touched registers")
	}
}

func TestWriteOffTheEnd(t *testing.T) {
	d, _ := newForTest(t)

	if err := d.MoveTo(0, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Write([]byte("12")); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Write() = %v, want ErrInvalidPosition", err)
	}
	// The last cell alone still fits.
	if n, err := d.Write([]byte("1")); err != nil || n != 1 {
		t.Errorf("Write() = %d, %v, want 1, nil", n, err)
	}
}

// breakAfter forwards to the embedded Record until the countdown runs out,
// then fails every access.
type breakAfter struct {
	mmiotest.Record
	left int
}

var errBusGone = errors.New("bus gone")

func (b *breakAfter) ReadU8(a mmio.Addr) (uint8, error) {
	if b.left <= 0 {
		return 0, errBusGone
	}
	b.left--
	return b.Record.ReadU8(a)
}

func (b *breakAfter) WriteU8(a mmio.Addr, v uint8) error {
	if b.left <= 0 {
		return errBusGone
	}
	b.left--
	return b.Record.WriteU8(a, v)
}

func TestWritePartialOnBusError(t *testing.T) {
	rf := &breakAfter{left: 1 << 16}
	d, err := New(rf, nil)
	if err != nil {
		t.Fatal(err)
	}

	// One character costs four read-modify-writes; the second character's
	// first access fails.
	rf.left = 8
	n, err := d.Write([]byte("12"))
	if !errors.Is(err, errBusGone) {
		t.Fatalf("Write() = %v, want errBusGone", err)
	}
	if n != 1 {
		t.Errorf("Write() = %d, want the one character that made it out", n)
	}

	// The cursor sits after the written character: a repaired bus resumes
	// at position 3.
	rf.left = 1 << 16
	if n, err := d.Write([]byte("3")); err != nil || n != 1 {
		t.Fatalf("Write() after repair = %d, %v, want 1, nil", n, err)
	}
	got := []uint8{bank(&rf.Record, 0), bank(&rf.Record, 5), bank(&rf.Record, 10), bank(&rf.Record, 15)}
	if diff := cmp.Diff(got, []uint8{0x10, 0x11, 0xB1, 0x10}); diff != "" {
		t.Errorf("'1' then '3' difference (-got +want):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	d, rec := newForTest(t)

	if _, err := d.WriteString("123456"); err != nil {
		t.Fatal(err)
	}
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 1, 2, 5, 6, 7, 10, 11, 12, 15, 16, 17} {
		if got := bank(rec, n); got != 0 {
			t.Errorf("LCDDR%d = 0x%02X after Clear(), want 0", n, got)
		}
	}
	// Cursor is home again.
	if n, err := d.WriteString("123456"); err != nil || n != 6 {
		t.Errorf("WriteString() after Clear() = %d, %v, want 6, nil", n, err)
	}
}

func TestDisplay(t *testing.T) {
	d, rec := newForTest(t)

	if err := d.Display(false); err != nil {
		t.Fatal(err)
	}
	if rec.Regs[atmega169.LCDCRA]&atmega169.LCDBL == 0 {
		t.Error("Display(false) did not blank the glass")
	}
	if err := d.Display(true); err != nil {
		t.Fatal(err)
	}
	if rec.Regs[atmega169.LCDCRA] != 0x80 {
		t.Errorf("LCDCRA = 0x%02X after Display(true), want 0x80", rec.Regs[atmega169.LCDCRA])
	}
}

func TestHalt(t *testing.T) {
	d, rec := newForTest(t)

	if _, err := d.WriteString("888888"); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if rec.Regs[atmega169.LCDCRA]&atmega169.LCDEN != 0 {
		t.Error("controller still enabled after Halt()")
	}
	for _, n := range planeBanks {
		if got := bank(rec, n); got != 0 {
			t.Errorf("LCDDR%d = 0x%02X after Halt(), want 0", n, got)
		}
	}
}

func TestCursor(t *testing.T) {
	d, _ := newForTest(t)

	if err := d.MoveTo(0, 6); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("MoveTo(0, 6) = %v, want ErrInvalidPosition", err)
	}
	if err := d.MoveTo(1, 0); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("MoveTo(1, 0) = %v, want ErrInvalidPosition", err)
	}
	if err := d.Home(); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(display.Backward); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Move(Backward) at home = %v, want ErrInvalidPosition", err)
	}
	if err := d.Move(display.Forward); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(display.Up); !errors.Is(err, display.ErrNotImplemented) {
		t.Errorf("Move(Up) = %v, want ErrNotImplemented", err)
	}
	if err := d.AutoScroll(true); !errors.Is(err, display.ErrNotImplemented) {
		t.Errorf("AutoScroll() = %v, want ErrNotImplemented", err)
	}
	if err := d.Cursor(display.CursorBlink); !errors.Is(err, display.ErrNotImplemented) {
		t.Errorf("Cursor() = %v, want ErrNotImplemented", err)
	}
}

func TestFrameRate(t *testing.T) {
	d, _ := newForTest(t)
	if got := d.FrameRate(); got != 64*physic.Hertz {
		t.Errorf("FrameRate() = %s, want 64Hz", got)
	}

	rec := &mmiotest.Record{}
	slow, err := New(rec, &Opts{
		Prescaler:      Prescale16,
		ClockDivide:    8,
		ClockFrequency: 32768 * physic.Hertz,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := slow.FrameRate(); got != 32*physic.Hertz {
		t.Errorf("FrameRate() = %s, want 32Hz", got)
	}
}

func TestGeometry(t *testing.T) {
	d, _ := newForTest(t)
	if d.Cols() != 6 || d.Rows() != 1 || d.MinCol() != 0 || d.MinRow() != 0 {
		t.Errorf("geometry = %dx%d from (%d,%d), want 6x1 from (0,0)", d.Cols(), d.Rows(), d.MinCol(), d.MinRow())
	}
	if d.String() != "STK502 6x1 segment LCD" {
		t.Errorf("String() = %q", d.String())
	}
}
