// Copyright EPFL.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package resource models the configuration words of sweepable primitives: a
// LUT's 64-bit truth table and a block RAM's content and parity words.
package resource

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Init-word widths (UG573/UG574).
const (
	// LutBits is the truth-table width of a 6-input LUT.
	LutBits = 64
	// BramMemBits is the content width of an 18K block RAM.
	BramMemBits = 16384
	// BramParityBits is the parity width of an 18K block RAM.
	BramParityBits = 2048
)

// Lut is a 6-input LUT truth table.  Bit i holds the output for the input
// combination whose binary value (I5..I0) is i.
type Lut struct {
	init uint64
}

// NewLut returns a LUT with the given truth table.
func NewLut(init uint64) *Lut {
	return &Lut{init: init}
}

// OneHotLut returns a LUT with only the given truth-table bit set.
func OneHotLut(idx uint) (*Lut, error) {
	if idx >= LutBits {
		return nil, fmt.Errorf("invalid LUT bit index %d", idx)
	}
	// Done
	return &Lut{init: 1 << idx}, nil
}

// Bit returns truth-table bit idx.
func (p *Lut) Bit(idx uint) (uint8, error) {
	if idx >= LutBits {
		return 0, fmt.Errorf("invalid LUT bit index %d", idx)
	}
	// Done
	return uint8(p.init >> idx & 1), nil
}

// SetBit sets truth-table bit idx to the given value.
func (p *Lut) SetBit(idx uint, value uint8) error {
	if idx >= LutBits {
		return fmt.Errorf("invalid LUT bit index %d", idx)
	}

	if value == 0 {
		p.init &^= 1 << idx
	} else {
		p.init |= 1 << idx
	}
	// Done
	return nil
}

// Value returns the raw truth table.
func (p *Lut) Value() uint64 {
	return p.init
}

// Hex renders the truth table the way INIT properties are written, MSB on the
// left.
func (p *Lut) Hex() string {
	return fmt.Sprintf("%016x", p.init)
}

// Bin renders the truth table in binary, MSB on the left.
func (p *Lut) Bin() string {
	return fmt.Sprintf("%064b", p.init)
}

// Output evaluates the truth table for the given inputs (I0 is the least
// significant index bit).
func (p *Lut) Output(inputs [6]bool) bool {
	var idx uint

	for i, set := range inputs {
		if set {
			idx |= 1 << i
		}
	}

	bit, _ := p.Bit(idx)
	// Done
	return bit == 1
}

// InputUnused reports whether toggling input i can never change the output.
// The vendor placer prunes such inputs, which distorts one-hot sweeps that
// assume a fixed pin mapping.
func (p *Lut) InputUnused(input uint) bool {
	if input >= 6 {
		return true
	}
	// Compare the output with input i at 0 and 1 for all combinations of the
	// other inputs.
	for others := uint(0); others < 32; others++ {
		low := others&(1<<input-1) | (others &^ (1<<input - 1) << 1)
		high := low | 1<<input

		if p.init>>low&1 != p.init>>high&1 {
			return false
		}
	}
	// Done
	return true
}

// UnusedInputs returns the indices of all unused inputs.
func (p *Lut) UnusedInputs() []uint {
	var unused []uint

	for i := uint(0); i < 6; i++ {
		if p.InputUnused(i) {
			unused = append(unused, i)
		}
	}
	// Done
	return unused
}

// Bram is an 18K block RAM's initialization state: a 16384-bit content word
// and a 2048-bit parity word, both indexed LSB-first.
type Bram struct {
	mem    [BramMemBits / 8]byte
	parity [BramParityBits / 8]byte
}

// NewBram returns a zero-initialized block RAM.
func NewBram() *Bram {
	return &Bram{}
}

func readBit(buf []byte, idx uint) uint8 {
	return buf[idx/8] >> (idx % 8) & 1
}

func writeBit(buf []byte, idx uint, value uint8) {
	if value == 0 {
		buf[idx/8] &^= 1 << (idx % 8)
	} else {
		buf[idx/8] |= 1 << (idx % 8)
	}
}

// MemBit returns content bit idx.
func (p *Bram) MemBit(idx uint) (uint8, error) {
	if idx >= BramMemBits {
		return 0, fmt.Errorf("invalid BRAM content bit index %d", idx)
	}
	// Done
	return readBit(p.mem[:], idx), nil
}

// SetMemBit sets content bit idx.
func (p *Bram) SetMemBit(idx uint, value uint8) error {
	if idx >= BramMemBits {
		return fmt.Errorf("invalid BRAM content bit index %d", idx)
	}

	writeBit(p.mem[:], idx, value)
	// Done
	return nil
}

// ParityBit returns parity bit idx.
func (p *Bram) ParityBit(idx uint) (uint8, error) {
	if idx >= BramParityBits {
		return 0, fmt.Errorf("invalid BRAM parity bit index %d", idx)
	}
	// Done
	return readBit(p.parity[:], idx), nil
}

// SetParityBit sets parity bit idx.
func (p *Bram) SetParityBit(idx uint, value uint8) error {
	if idx >= BramParityBits {
		return fmt.Errorf("invalid BRAM parity bit index %d", idx)
	}

	writeBit(p.parity[:], idx, value)
	// Done
	return nil
}

func bufToHex(buf []byte) string {
	var sb strings.Builder
	// MSB on the left, so render from the highest byte down.
	for i := len(buf) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", buf[i])
	}
	// Done
	return sb.String()
}

// MemHex renders the content word in hex, MSB on the left.
func (p *Bram) MemHex() string {
	return bufToHex(p.mem[:])
}

// ParityHex renders the parity word in hex, MSB on the left.
func (p *Bram) ParityHex() string {
	return bufToHex(p.parity[:])
}

var verilogNumRegex = regexp.MustCompile(`^(\d+)'([bh])([0-9a-fA-F_]+)$`)

// ParseVerilogLiteral parses a sized Verilog literal such as "256'h0000...".
// The result is the value's bits LSB-first; the slice length covers exactly
// the declared width.
func ParseVerilogLiteral(s string) ([]byte, error) {
	m := verilogNumRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("unrecognized literal %q", s)
	}

	var width int

	fmt.Sscanf(m[1], "%d", &width)

	base := 16
	if m[2] == "b" {
		base = 2
	}

	value, ok := new(big.Int).SetString(strings.ReplaceAll(m[3], "_", ""), base)
	if !ok {
		return nil, fmt.Errorf("invalid digits in literal %q", s)
	}

	if value.BitLen() > width {
		return nil, fmt.Errorf("literal %q wider than its declared %d bits", s, width)
	}

	buf := make([]byte, (width+7)/8)
	value.FillBytes(buf)
	// big.Int fills big-endian; flip to LSB-first byte order.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	// Done
	return buf, nil
}
