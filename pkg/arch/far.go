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
package arch

import "fmt"

// BlockType is the FAR block-type field (UG570 table 9-20/9-21).  Values
// above BramContent are reserved and undocumented.
type BlockType uint8

const (
	// ClbIoClk addresses standard configuration columns (CLB, IO, clocking).
	ClbIoClk BlockType = 0
	// BramContent addresses block-RAM content frames.
	BramContent BlockType = 1
)

func (b BlockType) String() string {
	switch b {
	case ClbIoClk:
		return "CLB_IO_CLK"
	case BramContent:
		return "BRAM_CONTENT"
	default:
		return fmt.Sprintf("RSVD_%d", uint8(b))
	}
}

// FrameAddress is a decoded frame-address register value.  The concrete bit
// layout of the packed 32-bit form depends on the architecture Spec.
type FrameAddress struct {
	Reserved uint32
	Block    BlockType
	Row      uint32
	Column   uint32
	Minor    uint32
}

// Bits extracts the inclusive bit range [high:low] from a word.
func Bits(word uint32, high, low uint) uint32 {
	width := high - low + 1
	mask := uint32(1)<<width - 1
	// Done
	return (word >> low) & mask
}

// DecodeFrameAddress unpacks a raw FAR word according to the given layout.
func DecodeFrameAddress(word uint32, spec Spec) FrameAddress {
	return FrameAddress{
		Reserved: Bits(word, spec.reserved[0], spec.reserved[1]),
		Block:    BlockType(Bits(word, spec.blockType[0], spec.blockType[1])),
		Row:      Bits(word, spec.row[0], spec.row[1]),
		Column:   Bits(word, spec.column[0], spec.column[1]),
		Minor:    Bits(word, spec.minor[0], spec.minor[1]),
	}
}

// Encode packs the address back into its raw 32-bit form.
func (p FrameAddress) Encode(spec Spec) uint32 {
	var word uint32
	word |= p.Reserved << spec.reserved[1]
	word |= uint32(p.Block) << spec.blockType[1]
	word |= p.Row << spec.row[1]
	word |= p.Column << spec.column[1]
	word |= p.Minor << spec.minor[1]
	// Done
	return word
}

// Compare imposes the bitstream configuration order on frame addresses (block
// type, then row, column, minor).  Negative means p precedes other.
func (p FrameAddress) Compare(other FrameAddress) int {
	lhs := [4]uint32{uint32(p.Block), p.Row, p.Column, p.Minor}
	rhs := [4]uint32{uint32(other.Block), other.Row, other.Column, other.Minor}

	for i := range lhs {
		if lhs[i] != rhs[i] {
			if lhs[i] < rhs[i] {
				return -1
			}

			return 1
		}
	}
	// Done
	return 0
}

func (p FrameAddress) String() string {
	return fmt.Sprintf("BLOCK_TYPE = %s, ROW_ADDR = %3d, COL_ADDR = %3d, MINOR_ADDR = %3d",
		p.Block, p.Row, p.Column, p.Minor)
}
