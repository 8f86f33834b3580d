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
package bitstream

import (
	"fmt"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

// Frame is a single configuration frame extracted from the bitstream.
type Frame struct {
	// Byte offset of the frame's first word in the bitstream file.
	ByteOffset int
	Addr       arch.FrameAddress
	Words      []uint32
}

// Bit returns the value of the bit at the given offset within the frame.
// Offsets count from bit 0 of word 0, LSB-first within each word.
func (p *Frame) Bit(ofst uint) (uint8, error) {
	if ofst >= uint(len(p.Words))*32 {
		return 0, fmt.Errorf("frame offset %d out of range [0 .. %d)", ofst, len(p.Words)*32)
	}
	// Done
	return uint8(arch.Bits(p.Words[ofst/32], ofst%32, ofst%32)), nil
}

// IsZero reports whether every word of the frame is zero.
func (p *Frame) IsZero() bool {
	for _, w := range p.Words {
		if w != 0 {
			return false
		}
	}
	// Done
	return true
}

// Layout reports the frame-matrix dimensions of each SLR, normally backed by
// a device summary.  It drives the FAR auto-increment during extraction.
type Layout interface {
	// NumMinors returns the number of minor addresses of every column major in
	// the given row, for the given block type.  The slice is indexed by column
	// major.
	NumMinors(idcode uint32, block arch.BlockType, row uint32) []uint
	// NumRows returns the number of FAR rows in the SLR with the given IDCODE.
	NumRows(idcode uint32) uint
}

// FarIncrementer advances a frame address the way the configuration logic
// does when FDRI writes auto-increment FAR: minor first, then column major,
// row major, and finally block type.
type FarIncrementer struct {
	layout Layout
}

// NewFarIncrementer returns an incrementer over the given device layout.
func NewFarIncrementer(layout Layout) *FarIncrementer {
	return &FarIncrementer{layout: layout}
}

// Increment returns the frame address following far, wrapping back to zero
// after the last address.
func (p *FarIncrementer) Increment(idcode uint32, far arch.FrameAddress) (arch.FrameAddress, error) {
	minors := p.layout.NumMinors(idcode, far.Block, far.Row)
	if int(far.Column) >= len(minors) {
		return far, fmt.Errorf("column major %d out of range for row %d (%d columns)", far.Column, far.Row, len(minors))
	}

	next := far
	next.Minor++
	// Carry minor into column major.
	if next.Minor == uint32(minors[far.Column]) {
		next.Minor = 0
		next.Column++
	}
	// Carry column major into row major.
	if next.Column == uint32(len(minors)) {
		next.Column = 0
		next.Row++
	}
	// Carry row major into block type.
	if next.Row == uint32(p.layout.NumRows(idcode)) {
		next.Row = 0
		if next.Block == arch.ClbIoClk {
			next.Block = arch.BramContent
		} else {
			next.Block = arch.ClbIoClk
		}
	}
	// Done
	return next, nil
}

// IsLastFarOfRow reports whether far addresses the final frame of its row.
// The configuration data contains zero padding frames after such frames.
func (p *FarIncrementer) IsLastFarOfRow(idcode uint32, far arch.FrameAddress) (bool, error) {
	minors := p.layout.NumMinors(idcode, far.Block, far.Row)
	if int(far.Column) >= len(minors) {
		return false, fmt.Errorf("column major %d out of range for row %d (%d columns)", far.Column, far.Row, len(minors))
	}

	lastColumn := far.Column == uint32(len(minors)-1)
	lastMinor := far.Minor == uint32(minors[far.Column])-1
	// Done
	return lastColumn && lastMinor, nil
}

// FrameSet holds every configuration frame of a bitstream, grouped by SLR
// IDCODE and keyed by frame address.  Frames retain their bitstream order.
type FrameSet struct {
	idcodes []uint32
	slrs    map[uint32]*slrFrames
}

type slrFrames struct {
	order  []arch.FrameAddress
	byAddr map[arch.FrameAddress][]*Frame
}

// IDCodes returns the SLR IDCODEs in configuration order.
func (p *FrameSet) IDCodes() []uint32 {
	return p.idcodes
}

// Addresses returns the frame addresses of an SLR in bitstream order.
func (p *FrameSet) Addresses(idcode uint32) []arch.FrameAddress {
	slr := p.slrs[idcode]
	if slr == nil {
		return nil
	}
	// Done
	return slr.order
}

// Frames returns every frame written at the given address.  A full bitstream
// writes each address exactly once; partial bitstreams can rewrite.
func (p *FrameSet) Frames(idcode uint32, far arch.FrameAddress) []*Frame {
	slr := p.slrs[idcode]
	if slr == nil {
		return nil
	}
	// Done
	return slr.byAddr[far]
}

// NewFrameSet returns an empty frame set.
func NewFrameSet() *FrameSet {
	return &FrameSet{slrs: make(map[uint32]*slrFrames)}
}

// Insert appends a frame, preserving per-SLR insertion order.
func (p *FrameSet) Insert(idcode uint32, frame *Frame) {
	slr := p.slrs[idcode]
	if slr == nil {
		slr = &slrFrames{byAddr: make(map[arch.FrameAddress][]*Frame)}
		p.slrs[idcode] = slr
		p.idcodes = append(p.idcodes, idcode)
	}

	if _, ok := slr.byAddr[frame.Addr]; !ok {
		slr.order = append(slr.order, frame.Addr)
	}

	slr.byAddr[frame.Addr] = append(slr.byAddr[frame.Addr], frame)
}

// rawWrite is one write to FDRI: a base frame address plus one or more
// back-to-back frames.
type rawWrite struct {
	idcode   uint32
	far      arch.FrameAddress
	byteOfst int
	words    []uint32
}

// rawConfigWrites walks the packet stream collecting FDRI payloads together
// with the IDCODE and FAR in effect at the time of each write.
func (p *Bitstream) rawConfigWrites(spec arch.Spec) ([]rawWrite, error) {
	var (
		writes     []rawWrite
		idcode     uint32
		far        arch.FrameAddress
		haveIdcode bool
		haveFar    bool
	)

	for i := range p.Packets {
		pkt := &p.Packets[i]

		switch {
		case pkt.IsWrite(RegIDCODE) && len(pkt.Data) == 1:
			idcode = pkt.Data[0]
			haveIdcode = true
		case pkt.IsWrite(RegFAR) && len(pkt.Data) == 1:
			far = arch.DecodeFrameAddress(pkt.Data[0], spec)
			haveFar = true
		case pkt.IsWrite(RegFDRI) && len(pkt.Data) > 0:
			// Empty type-1 FDRI packets are placeholders for a following type-2
			// packet and are skipped by the length check above.
			if !haveIdcode || !haveFar {
				return nil, fmt.Errorf("FDRI write at byte ofst 0x%08x before IDCODE/FAR is set", pkt.ByteOffset)
			}

			if uint(len(pkt.Data))%spec.FrameWords() != 0 {
				return nil, fmt.Errorf("FDRI payload at byte ofst 0x%08x is %d words, not a multiple of the %d-word frame size",
					pkt.DataByteOffset(), len(pkt.Data), spec.FrameWords())
			}

			writes = append(writes, rawWrite{
				idcode:   idcode,
				far:      far,
				byteOfst: pkt.DataByteOffset(),
				words:    pkt.Data,
			})
		}
	}
	// Done
	return writes, nil
}

// Frames splits every FDRI write into individual configuration frames,
// assigning each its own frame address via FAR auto-increment and skipping
// the zero padding frames at the end of each row.
//
// Compressed and per-frame-CRC bitstreams are rejected: both break the
// auto-increment assumption the splitting relies on.
func (p *Bitstream) Frames(spec arch.Spec, layout Layout) (*FrameSet, error) {
	if p.IsCompressed() {
		return nil, fmt.Errorf("cannot extract frames from a compressed bitstream")
	}

	if p.IsPerFrameCRC(spec.FrameWords()) {
		return nil, fmt.Errorf("cannot extract frames from a bitstream with per-frame CRCs")
	}

	writes, err := p.rawConfigWrites(spec)
	if err != nil {
		return nil, err
	}

	inc := NewFarIncrementer(layout)
	set := NewFrameSet()
	frameWords := int(spec.FrameWords())

	for _, w := range writes {
		far := w.far
		numFrames := len(w.words) / frameWords

		for idx := 0; idx < numFrames; {
			frame := &Frame{
				ByteOffset: w.byteOfst + idx*frameWords*4,
				Addr:       far,
				Words:      w.words[idx*frameWords : (idx+1)*frameWords],
			}
			set.Insert(w.idcode, frame)
			idx++

			lastOfRow, err := inc.IsLastFarOfRow(w.idcode, far)
			if err != nil {
				return nil, err
			}

			if lastOfRow {
				// Skip the end-of-row padding frames, checking they really are empty.
				for pad := 0; pad < endOfRowPaddingFrames && idx < numFrames; pad++ {
					padding := w.words[idx*frameWords : (idx+1)*frameWords]
					for _, word := range padding {
						if word != 0 {
							return nil, fmt.Errorf("expected end-of-row padding frame at byte ofst 0x%08x to be all zeros",
								w.byteOfst+idx*frameWords*4)
						}
					}
					idx++
				}
			}

			if far, err = inc.Increment(w.idcode, far); err != nil {
				return nil, err
			}
		}
	}
	// Done
	return set, nil
}
