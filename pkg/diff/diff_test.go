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

package diff

import (
	"errors"
	"testing"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
)

const test_IDCode uint32 = 0x04a58093

func build_Frame(spec arch.Spec, far uint32) *bitstream.Frame {
	words := make([]uint32, spec.FrameWords())
	// Deterministic nonzero fill so inversions are covered.
	for i := range words {
		words[i] = far ^ uint32(i)*0x9e3779b9
	}
	// Done
	return &bitstream.Frame{Addr: arch.DecodeFrameAddress(far, spec), Words: words}
}

func build_Set(spec arch.Spec, fars ...uint32) *bitstream.FrameSet {
	set := bitstream.NewFrameSet()

	for _, far := range fars {
		set.Insert(test_IDCode, build_Frame(spec, far))
	}
	// Done
	return set
}

func flip_Bit(frame *bitstream.Frame, ofst uint) {
	frame.Words[ofst/32] ^= 1 << (ofst % 32)
}

func check_OneFlip(t *testing.T, flips []BitFlip, spec arch.Spec, far uint32, ofst uint) {
	t.Helper()

	flip, err := OneHot(flips)
	if err != nil {
		t.Fatal(err)
	}

	if flip.Addr.Encode(spec) != far {
		t.Errorf("got frame address 0x%08x, expected 0x%08x", flip.Addr.Encode(spec), far)
	}

	if flip.Offset != ofst {
		t.Errorf("got offset %d, expected %d", flip.Offset, ofst)
	}
}

func Test_Diff_00(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	fars := []uint32{0x00000300, 0x00000307, 0x0000030c}

	baseline := build_Set(spec, fars...)
	variant := build_Set(spec, fars...)

	// Toggle one LUT init bit in the variant.
	target := variant.Frames(test_IDCode, arch.DecodeFrameAddress(0x00000307, spec))[0]
	was, _ := target.Bit(639)
	flip_Bit(target, 639)

	flips, err := Compare(baseline, variant)
	if err != nil {
		t.Fatal(err)
	}

	check_OneFlip(t, flips, spec, 0x00000307, 639)

	if flips[0].Inverted != (was == 1) {
		t.Errorf("got inverted %v with baseline bit %d", flips[0].Inverted, was)
	}

	if flips[0].IDCode != test_IDCode {
		t.Errorf("got IDCODE 0x%08x", flips[0].IDCode)
	}
}

func Test_Diff_01(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	fars := []uint32{0x00000307, 0x0000030c}

	baseline := build_Set(spec, fars...)
	variant := build_Set(spec, fars...)

	// A register init bit in another frame of the same column.
	flip_Bit(variant.Frames(test_IDCode, arch.DecodeFrameAddress(0x0000030c, spec))[0], 668)

	flips, err := Compare(baseline, variant)
	if err != nil {
		t.Fatal(err)
	}

	check_OneFlip(t, flips, spec, 0x0000030c, 668)
}

func Test_Diff_02(t *testing.T) {
	// Flips in a block RAM content frame stay distinct per offset.
	spec := arch.SpecOf(arch.UltraScalePlus)
	fars := []uint32{0x01000200, 0x01000201}

	baseline := build_Set(spec, fars...)
	variant := build_Set(spec, fars...)

	flip_Bit(variant.Frames(test_IDCode, arch.DecodeFrameAddress(0x01000200, spec))[0], 100)
	flip_Bit(variant.Frames(test_IDCode, arch.DecodeFrameAddress(0x01000200, spec))[0], 2900)

	flips, err := Compare(baseline, variant)
	if err != nil {
		t.Fatal(err)
	}

	if len(flips) != 2 {
		t.Fatalf("got %d flips", len(flips))
	}

	if flips[0].Offset != 100 || flips[1].Offset != 2900 {
		t.Errorf("got offsets %d, %d", flips[0].Offset, flips[1].Offset)
	}

	if flips[0].Addr.Block != arch.BramContent {
		t.Errorf("got block type %v", flips[0].Addr.Block)
	}

	var aliasing *AliasingError
	if _, err := OneHot(flips); !errors.As(err, &aliasing) {
		t.Fatalf("got %v", err)
	} else if len(aliasing.Flips) != 2 {
		t.Errorf("got %d aliased flips", len(aliasing.Flips))
	}
}

func Test_Diff_03(t *testing.T) {
	// Frame ordering differences are structural, not bit flips.
	spec := arch.SpecOf(arch.UltraScale)

	baseline := build_Set(spec, 0x00000300, 0x00000307)
	variant := build_Set(spec, 0x00000307, 0x00000300)

	var mismatch *StructuralMismatchError
	if _, err := Compare(baseline, variant); !errors.As(err, &mismatch) {
		t.Fatalf("got %v", err)
	}
}

func Test_Diff_04(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)

	baseline := build_Set(spec, 0x00000300)
	variant := build_Set(spec, 0x00000300)
	variant.Insert(0x04b37093, build_Frame(spec, 0x00000300))

	var mismatch *StructuralMismatchError
	if _, err := Compare(baseline, variant); !errors.As(err, &mismatch) {
		t.Fatalf("got %v", err)
	}
}

func Test_Diff_05(t *testing.T) {
	// A rewritten frame address cannot be attributed to either write.
	spec := arch.SpecOf(arch.UltraScale)

	baseline := build_Set(spec, 0x00000300)
	variant := build_Set(spec, 0x00000300, 0x00000300)

	var mismatch *StructuralMismatchError
	if _, err := Compare(baseline, variant); !errors.As(err, &mismatch) {
		t.Fatalf("got %v", err)
	}
}

func Test_Diff_06(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScalePlus)

	baseline := build_Set(spec, 0x00000200)
	variant := build_Set(spec, 0x00000200)

	flips, err := Compare(baseline, variant)
	if err != nil {
		t.Fatal(err)
	}

	if len(flips) != 0 {
		t.Fatalf("got %d flips", len(flips))
	}

	var zero *ZeroFlipError
	if _, err := OneHot(flips); !errors.As(err, &zero) {
		t.Fatalf("got %v", err)
	}
}

func Test_Diff_07(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	flips := []BitFlip{
		{IDCode: 2, Addr: arch.DecodeFrameAddress(0x00000300, spec), Offset: 1},
		{IDCode: 1, Addr: arch.DecodeFrameAddress(0x00000307, spec), Offset: 9},
		{IDCode: 1, Addr: arch.DecodeFrameAddress(0x00000307, spec), Offset: 2},
		{IDCode: 1, Addr: arch.DecodeFrameAddress(0x00000300, spec), Offset: 5},
	}

	SortFlips(flips)

	if flips[0].IDCode != 1 || flips[0].Offset != 5 {
		t.Errorf("got first flip %v", flips[0])
	}

	if flips[1].Offset != 2 || flips[2].Offset != 9 {
		t.Errorf("got middle flips %v, %v", flips[1], flips[2])
	}

	if flips[3].IDCode != 2 {
		t.Errorf("got last flip %v", flips[3])
	}
}
