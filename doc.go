// Copyright 2026 The avr169 Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package avr169 is a container for drivers of the peripherals hanging off an
// ATmega169, both the ones inside the MCU and the chips the STK502 starter
// kit wires to them.
package avr169
