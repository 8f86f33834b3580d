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

package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/loc"
	"github.com/epfl-vlsc/bitfiltrator/pkg/resource"
)

func build_DeviceSummary() *Device {
	return &Device{
		DeviceName: "xcku040",
		Part:       "xcku040-ffva1156-2-e",
		License:    "webpack",
		NumSlrs:    1,
		SLRs: map[string]*SLR{
			"SLR0": {
				Index:             0,
				ConfigOrder:       0,
				IDCode:            0x03822093,
				MinClockRegionRow: 0,
				MaxClockRegionRow: 4,
				MinFarRow:         0,
				MaxFarRow:         4,
				RowMajors: map[uint]*RowMajor{
					0: {
						ClbColMajors:         map[uint]uint32{0: 6, 1: 8},
						ClbTileTypes:         map[uint]string{0: "CLEL_L", 1: "CLEL_R"},
						BramContentColMajors: map[uint]uint32{0: 4},
						NumMinorsPerBramCol:  []uint{128},
						NumMinorsPerStdCol:   []uint{16, 58, 58, 16},
					},
					1: {
						ClbColMajors:        map[uint]uint32{0: 6, 1: 8},
						ClbTileTypes:        map[uint]string{0: "CLEL_L", 1: "CLEL_R"},
						NumMinorsPerBramCol: []uint{128},
						NumMinorsPerStdCol:  []uint{16, 58, 58, 16},
					},
				},
			},
		},
	}
}

func Test_Device_00(t *testing.T) {
	device := build_DeviceSummary()

	data, err := device.Marshal()
	require.NoError(t, err)

	parsed, err := ParseDevice(data)
	require.NoError(t, err)
	assert.Equal(t, device, parsed)

	// Deterministic output.
	again, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func Test_Device_01(t *testing.T) {
	device := build_DeviceSummary()

	name, slr, err := device.SLRByIDCode(0x03822093)
	require.NoError(t, err)
	assert.Equal(t, "SLR0", name)
	assert.Equal(t, uint(4), slr.MaxFarRow)

	_, _, err = device.SLRByIDCode(0xdeadbeef)
	assert.Error(t, err)
}

func Test_Device_02(t *testing.T) {
	device := build_DeviceSummary()

	assert.Equal(t, uint(5), device.NumRows(0x03822093))
	assert.Equal(t, []uint{16, 58, 58, 16}, device.NumMinors(0x03822093, arch.ClbIoClk, 0))
	assert.Equal(t, []uint{128}, device.NumMinors(0x03822093, arch.BramContent, 0))
	assert.Nil(t, device.NumMinors(0x03822093, arch.ClbIoClk, 9))
}

func Test_Device_03(t *testing.T) {
	_, err := ParseDevice([]byte(`{"part": "xcku040", "slrs": {}}`))
	assert.Error(t, err)

	_, err = ParseDevice([]byte(`not json`))
	assert.Error(t, err)
}

func Test_Builder_00(t *testing.T) {
	builder := NewBuilder("UltraScale")

	// Two slices in the same column agree on a register encoding.
	for _, site := range []string{"SLICE_X0Y13", "SLICE_X0Y14"} {
		builder.Observe(Observation{
			Kind: loc.Reg, TileType: "CLEL_L", YOfst: 13, Bel: "GFF2",
			Minor: 12, FrameOfst: 668, Site: site,
		})
	}
	// A full LUT sweep.
	for i := uint(0); i < resource.LutBits; i++ {
		builder.Observe(Observation{
			Kind: loc.Lut, TileType: "CLEL_L", YOfst: 13, Bel: "B6LUT", BitIndex: i,
			Minor: 7, FrameOfst: 639 + i, Site: "SLICE_X0Y13",
		})
	}

	summary, errs := builder.Build()
	require.Empty(t, errs)

	reg, err := summary.RegLoc("CLEL_L", 13, "GFF2")
	require.NoError(t, err)
	assert.Equal(t, BitLoc{Minor: 12, FrameOfst: 668}, reg)

	lut, err := summary.LutLoc("CLEL_L", 13, "B6LUT")
	require.NoError(t, err)
	assert.Len(t, lut.Minors, 64)
	assert.Equal(t, uint(639), lut.FrameOfsts[0])
	assert.Equal(t, uint(702), lut.FrameOfsts[63])
}

func Test_Builder_01(t *testing.T) {
	builder := NewBuilder("UltraScale")

	// The same instance reports two cells for one bit.
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "AFF", Minor: 12, FrameOfst: 1, Site: "SLICE_X0Y0"})
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "AFF", Minor: 12, FrameOfst: 2, Site: "SLICE_X0Y0"})

	_, errs := builder.Build()
	require.Len(t, errs, 1)
	assert.IsType(t, &AliasedBitError{}, errs[0])
}

func Test_Builder_02(t *testing.T) {
	builder := NewBuilder("UltraScale")

	// Two instances disagree on the encoding.
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "AFF", Minor: 12, FrameOfst: 1, Site: "SLICE_X0Y0"})
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "AFF", Minor: 12, FrameOfst: 2, Site: "SLICE_X0Y60"})

	_, errs := builder.Build()
	require.Len(t, errs, 1)

	cross, ok := errs[0].(*CrossInstanceError)
	require.True(t, ok)
	assert.Equal(t, [2]string{"SLICE_X0Y0", "SLICE_X0Y60"}, cross.Sites)
}

func Test_Builder_03(t *testing.T) {
	builder := NewBuilder("UltraScale")

	// A LUT sweep that lost 63 of its 64 variants.
	builder.Observe(Observation{Kind: loc.Lut, TileType: "CLEL_L", Bel: "A6LUT", BitIndex: 0, Minor: 7, FrameOfst: 0, Site: "SLICE_X0Y0"})

	_, errs := builder.Build()
	require.Len(t, errs, 1)

	incomplete, ok := errs[0].(*IncompleteEncodingError)
	require.True(t, ok)
	assert.Equal(t, uint(1), incomplete.Observed)
	assert.Equal(t, uint(resource.LutBits), incomplete.Expected)
}

func Test_Builder_04(t *testing.T) {
	builder := NewBuilder("UltraScale")

	// Two distinct registers resolving to the same storage cell.  The
	// encoding must stay injective, so neither binding survives.
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "AFF", Minor: 7, FrameOfst: 100, Site: "SLICE_X0Y0"})
	builder.Observe(Observation{Kind: loc.Reg, TileType: "CLEL_L", Bel: "BFF", Minor: 7, FrameOfst: 100, Site: "SLICE_X0Y0"})

	sum, errs := builder.Build()
	require.Len(t, errs, 1)

	collision, ok := errs[0].(*CollisionError)
	require.True(t, ok)
	assert.Equal(t, uint32(7), collision.Minor)
	assert.Equal(t, uint(100), collision.FrameOfst)
	require.Len(t, collision.Properties, 2)

	_, err := sum.RegLoc("CLEL_L", 0, "AFF")
	assert.Error(t, err)
	_, err = sum.RegLoc("CLEL_L", 0, "BFF")
	assert.Error(t, err)
}

func build_ArchSummary() *Arch {
	lutMinors := make([]uint32, resource.LutBits)
	lutOfsts := make([]uint, resource.LutBits)

	for i := range lutMinors {
		lutMinors[i] = 7
		lutOfsts[i] = 639 + uint(i)
	}

	return &Arch{
		Name: "UltraScale",
		Tiles: map[string]*TileEncoding{
			"CLEL_L": {
				Luts: map[uint]map[string]*MultiLoc{
					13: {"B6LUT": {Minors: lutMinors, FrameOfsts: lutOfsts}},
				},
				Regs: map[uint]map[string]*BitLoc{
					13: {"GFF2": {Minor: 12, FrameOfst: 668}},
				},
			},
		},
		BramMem: map[uint]*MultiLoc{
			2: {Minors: []uint32{0, 0}, FrameOfsts: []uint{100, 101}},
		},
		BramParity: map[uint]*MultiLoc{
			2: {Minors: []uint32{1, 1}, FrameOfsts: []uint{200, 201}},
		},
	}
}

func Test_Locator_00(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	locator := NewLocator(build_DeviceSummary(), build_ArchSummary(), spec)

	reg, err := locator.LocateReg("SLICE_X0Y13/GFF2")
	require.NoError(t, err)
	assert.Equal(t, "SLR0", reg.SLRName)
	assert.Equal(t, uint32(0x0000030c), reg.Addr.Encode(spec))
	assert.Equal(t, uint(668), reg.FrameOfst)
}

func Test_Locator_01(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	locator := NewLocator(build_DeviceSummary(), build_ArchSummary(), spec)

	lut, err := locator.LocateLut("SLICE_X0Y13/B6LUT")
	require.NoError(t, err)
	assert.Equal(t, "SLR0", lut.SLRName)
	assert.Len(t, lut.Addrs, 64)
	assert.Equal(t, uint32(0x00000307), lut.Addrs[0].Encode(spec))
	assert.Equal(t, uint(639), lut.FrameOfsts[0])
}

func Test_Locator_02(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	locator := NewLocator(build_DeviceSummary(), build_ArchSummary(), spec)

	mem, parity, err := locator.LocateBram("RAMB18_X0Y2")
	require.NoError(t, err)
	assert.Equal(t, "SLR0", mem.SLRName)
	require.Len(t, mem.Addrs, 2)
	require.Len(t, parity.Addrs, 2)

	// Content and parity resolve to the same column, different cells.
	assert.Equal(t, arch.BramContent, mem.Addrs[0].Block)
	assert.Equal(t, uint32(4), mem.Addrs[0].Column)
	assert.NotEqual(t, mem.FrameOfsts, parity.FrameOfsts)
}

func Test_Locator_03(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)
	locator := NewLocator(build_DeviceSummary(), build_ArchSummary(), spec)

	_, err := locator.LocateReg("SLICE_X0Y13/GFF")
	assert.Error(t, err) // no encoding for GFF, only GFF2

	_, err = locator.LocateReg("SLICE_X0Y999/AFF")
	assert.Error(t, err)

	_, err = locator.LocateLut("SLICE_X9Y13/B6LUT")
	assert.Error(t, err)

	_, _, err = locator.LocateBram("RAMB36_X0Y2")
	assert.Error(t, err)
}
