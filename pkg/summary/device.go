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

// Package summary holds the two persisted outcomes of reverse engineering a
// part: the device summary (the part's frame-address geography) and the
// architecture summary (the bit encodings of its tile types).  Both are JSON
// files emitted deterministically so that reruns diff cleanly.
package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

// HexUint32 marshals as a "0x"-prefixed hex string, the form IDCODEs are
// quoted in everywhere else.
type HexUint32 uint32

func (v HexUint32) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%08x", uint32(v)))
}

func (v *HexUint32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("malformed hex value %q: %w", s, err)
	}

	*v = HexUint32(parsed)
	// Done
	return nil
}

// RowMajor describes one FAR row of an SLR: which column majors hold which
// resource columns, and how many minors each major carries.  The col-major
// maps are keyed by the resource X coordinate (SLICE_X<x>, RAMB18_X<x>,
// DSP48E2_X<x>).  Rows hidden from the vendor tools carry only the minor
// counts.
type RowMajor struct {
	ClbColMajors         map[uint]uint32 `json:"clb_col_majors,omitempty"`
	ClbTileTypes         map[uint]string `json:"clb_tile_types,omitempty"`
	DspColMajors         map[uint]uint32 `json:"dsp_col_majors,omitempty"`
	BramContentColMajors map[uint]uint32 `json:"bram_content_col_majors,omitempty"`
	BramParityColMajors  map[uint]uint32 `json:"bram_parity_col_majors,omitempty"`
	BramRegColMajors     map[uint]uint32 `json:"bram_reg_col_majors,omitempty"`
	NumMinorsPerBramCol  []uint          `json:"num_minors_per_bram_content_col_major"`
	NumMinorsPerStdCol   []uint          `json:"num_minors_per_std_col_major"`
}

// SLR describes one super logic region of a device summary.
type SLR struct {
	Index             uint               `json:"slr_idx"`
	ConfigOrder       uint               `json:"config_order_idx"`
	IDCode            HexUint32          `json:"idcode"`
	MinClockRegionRow uint               `json:"min_clock_region_row_idx"`
	MaxClockRegionRow uint               `json:"max_clock_region_row_idx"`
	MinClockRegionCol uint               `json:"min_clock_region_col_idx"`
	MaxClockRegionCol uint               `json:"max_clock_region_col_idx"`
	MinFarRow         uint               `json:"min_far_row_idx"`
	MaxFarRow         uint               `json:"max_far_row_idx"`
	RowMajors         map[uint]*RowMajor `json:"row_majors"`
}

// Device is a part's frame-address geography: its SLRs, their IDCODEs and
// configuration order, and the column/minor structure of every FAR row.  It
// backs frame extraction as the bitstream.Layout of the part.
type Device struct {
	DeviceName string          `json:"device"`
	Part       string          `json:"part"`
	License    string          `json:"license"`
	NumBrams   uint            `json:"num_brams"`
	NumDsps    uint            `json:"num_dsps"`
	NumLuts    uint            `json:"num_luts"`
	NumRegs    uint            `json:"num_regs"`
	NumSlices  uint            `json:"num_slices"`
	NumSlrs    uint            `json:"num_slrs"`
	SLRs       map[string]*SLR `json:"slrs"`
}

// LoadDevice reads a device summary from a JSON file.
func LoadDevice(filename string) (*Device, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	// Done
	return ParseDevice(data)
}

// ParseDevice decodes a device summary from JSON text.
func ParseDevice(data []byte) (*Device, error) {
	var device Device

	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("malformed device summary: %w", err)
	}

	if len(device.SLRs) == 0 {
		return nil, fmt.Errorf("device summary for %s has no SLRs", device.Part)
	}
	// Done
	return &device, nil
}

// Marshal renders the summary as indented JSON.  Map keys serialize in
// sorted order, so the output is byte-stable across runs.
func (p *Device) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Save writes the summary to a JSON file.
func (p *Device) Save(filename string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	// Done
	return os.WriteFile(filename, append(data, '\n'), 0644)
}

// SLRNames returns the SLR names in configuration order.
func (p *Device) SLRNames() []string {
	names := make([]string, 0, len(p.SLRs))

	for name := range p.SLRs {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return p.SLRs[names[i]].ConfigOrder < p.SLRs[names[j]].ConfigOrder
	})
	// Done
	return names
}

// SLRByIDCode returns the SLR configured under the given IDCODE.
func (p *Device) SLRByIDCode(idcode uint32) (string, *SLR, error) {
	for name, slr := range p.SLRs {
		if uint32(slr.IDCode) == idcode {
			return name, slr, nil
		}
	}
	// Done
	return "", nil, fmt.Errorf("device %s has no SLR with IDCODE 0x%08x", p.Part, idcode)
}

// NumMinors returns the per-column-major minor counts of the given row, for
// the given block type.  This implements bitstream.Layout.
func (p *Device) NumMinors(idcode uint32, block arch.BlockType, row uint32) []uint {
	_, slr, err := p.SLRByIDCode(idcode)
	if err != nil {
		return nil
	}

	major := slr.RowMajors[uint(row)]
	if major == nil {
		return nil
	}

	if block == arch.BramContent {
		return major.NumMinorsPerBramCol
	}
	// Done
	return major.NumMinorsPerStdCol
}

// NumRows returns the number of FAR rows of the SLR configured under the
// given IDCODE.  This implements bitstream.Layout.
func (p *Device) NumRows(idcode uint32) uint {
	_, slr, err := p.SLRByIDCode(idcode)
	if err != nil {
		return 0
	}
	// Done
	return slr.MaxFarRow - slr.MinFarRow + 1
}
