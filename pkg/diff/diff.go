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

// Package diff compares the frame matrices of two bitstreams of the same
// device and reports which configuration bits differ.  Comparing a baseline
// against a variant whose netlist toggles exactly one initialization bit
// reveals the frame address and offset controlling that bit.
package diff

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
)

// BitFlip is one configuration bit that differs between two bitstreams.
type BitFlip struct {
	// IDCode of the SLR holding the flipped bit.
	IDCode uint32
	// Addr of the frame holding the flipped bit.
	Addr arch.FrameAddress
	// Offset of the bit within the frame.
	Offset uint
	// Inverted is set when the baseline carries the bit high and the variant
	// low.  Some storage cells hold the complement of their logical value.
	Inverted bool
}

func (p BitFlip) String() string {
	s := fmt.Sprintf("{%v}[%d]", p.Addr, p.Offset)
	if p.Inverted {
		s = "!" + s
	}
	// Done
	return s
}

// StructuralMismatchError reports two bitstreams whose frame matrices cannot
// be compared bit-for-bit: different SLRs, different frame addresses or
// ordering, or rewritten frames.
type StructuralMismatchError struct {
	Reason string
}

func (p *StructuralMismatchError) Error() string {
	return fmt.Sprintf("bitstreams differ structurally: %s", p.Reason)
}

func structuralMismatch(format string, args ...any) error {
	return &StructuralMismatchError{Reason: fmt.Sprintf(format, args...)}
}

// ZeroFlipError reports a comparison that was expected to isolate one bit but
// found the bitstreams identical.  The usual cause is the toggled property
// being optimized away before bitstream generation.
type ZeroFlipError struct{}

func (p *ZeroFlipError) Error() string {
	return "bitstreams are identical, expected exactly one differing bit"
}

// AliasingError reports a comparison that was expected to isolate one bit but
// found several.  The flips are retained since aliasing is itself a finding:
// one logical property backed by several storage cells.
type AliasingError struct {
	Flips []BitFlip
}

func (p *AliasingError) Error() string {
	return fmt.Sprintf("expected exactly one differing bit, found %d", len(p.Flips))
}

// slrDelta is the outcome of comparing one SLR's frames.
type slrDelta struct {
	index int
	flips []BitFlip
	err   error
}

// Compare diffs two frame matrices and returns every differing bit, in frame
// order within each SLR.  The two bitstreams must describe the same device
// with the same frame layout; anything else yields a StructuralMismatchError.
// SLRs are compared concurrently.
func Compare(baseline *bitstream.FrameSet, variant *bitstream.FrameSet) ([]BitFlip, error) {
	lhs, rhs := baseline.IDCodes(), variant.IDCodes()
	if len(lhs) != len(rhs) {
		return nil, structuralMismatch("%d SLRs vs %d SLRs", len(lhs), len(rhs))
	}

	for i := range lhs {
		if lhs[i] != rhs[i] {
			return nil, structuralMismatch("SLR %d has IDCODE 0x%08x vs 0x%08x", i, lhs[i], rhs[i])
		}
	}
	// Fan out one comparison per SLR and merge the results back in SLR order.
	c := make(chan slrDelta, len(lhs))

	for i, idcode := range lhs {
		go func(index int, idcode uint32) {
			flips, err := compareSlr(baseline, variant, idcode)
			c <- slrDelta{index: index, flips: flips, err: err}
		}(i, idcode)
	}

	deltas := make([]slrDelta, len(lhs))

	for range lhs {
		delta := <-c
		deltas[delta.index] = delta
	}

	var flips []BitFlip

	for _, delta := range deltas {
		if delta.err != nil {
			return nil, delta.err
		}

		flips = append(flips, delta.flips...)
	}
	// Done
	return flips, nil
}

func compareSlr(baseline *bitstream.FrameSet, variant *bitstream.FrameSet, idcode uint32) ([]BitFlip, error) {
	lhs, rhs := baseline.Addresses(idcode), variant.Addresses(idcode)
	if len(lhs) != len(rhs) {
		return nil, structuralMismatch("SLR 0x%08x has %d frames vs %d frames", idcode, len(lhs), len(rhs))
	}

	var flips []BitFlip

	for i := range lhs {
		if lhs[i] != rhs[i] {
			return nil, structuralMismatch("SLR 0x%08x frame %d at {%v} vs {%v}", idcode, i, lhs[i], rhs[i])
		}

		lframes, rframes := baseline.Frames(idcode, lhs[i]), variant.Frames(idcode, rhs[i])
		if len(lframes) != 1 || len(rframes) != 1 {
			return nil, structuralMismatch("SLR 0x%08x writes frame {%v} more than once", idcode, lhs[i])
		}

		delta, err := compareFrame(idcode, lframes[0], rframes[0])
		if err != nil {
			return nil, err
		}

		flips = append(flips, delta...)
	}
	// Done
	return flips, nil
}

func compareFrame(idcode uint32, lhs *bitstream.Frame, rhs *bitstream.Frame) ([]BitFlip, error) {
	if len(lhs.Words) != len(rhs.Words) {
		return nil, structuralMismatch("frame {%v} has %d words vs %d words",
			lhs.Addr, len(lhs.Words), len(rhs.Words))
	}
	// Pack the word-wise XOR into a bitset whose bit indices match the frame
	// offset numbering, then walk its set bits.
	packed := make([]uint64, (len(lhs.Words)+1)/2)

	for i := range lhs.Words {
		packed[i/2] |= uint64(lhs.Words[i]^rhs.Words[i]) << (32 * (i % 2))
	}

	var flips []BitFlip

	delta := bitset.From(packed)

	for ofst, ok := delta.NextSet(0); ok; ofst, ok = delta.NextSet(ofst + 1) {
		bit, err := lhs.Bit(uint(ofst))
		if err != nil {
			return nil, err
		}

		flips = append(flips, BitFlip{
			IDCode:   idcode,
			Addr:     lhs.Addr,
			Offset:   uint(ofst),
			Inverted: bit == 1,
		})
	}
	// Done
	return flips, nil
}

// OneHot checks that a comparison isolated exactly one bit and returns it.
func OneHot(flips []BitFlip) (BitFlip, error) {
	switch len(flips) {
	case 0:
		return BitFlip{}, &ZeroFlipError{}
	case 1:
		return flips[0], nil
	default:
		return BitFlip{}, &AliasingError{Flips: flips}
	}
}

// SortFlips orders flips by SLR IDCODE, then frame address, then offset.
// Compare already emits frames in bitstream order; this is for merging flips
// gathered across independent comparisons.
func SortFlips(flips []BitFlip) {
	sort.Slice(flips, func(i, j int) bool {
		l, r := &flips[i], &flips[j]
		if l.IDCode != r.IDCode {
			return l.IDCode < r.IDCode
		}

		if c := l.Addr.Compare(r.Addr); c != 0 {
			return c < 0
		}
		// Done
		return l.Offset < r.Offset
	})
}
