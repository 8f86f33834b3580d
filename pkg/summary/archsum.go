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
	"encoding/json"
	"fmt"
	"os"
)

// BitLoc places a single-bit property inside its column: the minor address of
// the frame and the bit offset within that frame.  Inverted marks cells that
// store the complement of the logical value, as flip-flop INIT bits do.
type BitLoc struct {
	Minor     uint32 `json:"minor"`
	FrameOfst uint   `json:"frame_ofst"`
	Inverted  bool   `json:"inverted,omitempty"`
}

// MultiLoc places a multi-bit property.  Entry i of both slices locates
// logical bit i; the slices always have the same length.
type MultiLoc struct {
	Minors     []uint32 `json:"minor"`
	FrameOfsts []uint   `json:"frame_ofst"`
}

// TileEncoding maps the storage cells of one CLB tile type (CLEL_L, CLEL_R,
// CLEM, ...).  Encodings repeat per column, so positions are keyed by the
// BEL's Y offset within its column and the BEL name.
type TileEncoding struct {
	Luts map[uint]map[string]*MultiLoc `json:"lut_locs"`
	Regs map[uint]map[string]*BitLoc   `json:"reg_locs"`
}

// Arch is an architecture summary: the per-tile-type bit encodings shared by
// every device of the architecture.
type Arch struct {
	Name       string                   `json:"arch"`
	Tiles      map[string]*TileEncoding `json:"tiles"`
	BramMem    map[uint]*MultiLoc       `json:"bram_mem_locs"`
	BramParity map[uint]*MultiLoc       `json:"bram_parity_locs"`
}

// LoadArch reads an architecture summary from a JSON file.
func LoadArch(filename string) (*Arch, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var summary Arch

	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("malformed architecture summary: %w", err)
	}
	// Done
	return &summary, nil
}

// Marshal renders the summary as indented JSON, byte-stable across runs.
func (p *Arch) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Save writes the summary to a JSON file.
func (p *Arch) Save(filename string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	// Done
	return os.WriteFile(filename, append(data, '\n'), 0644)
}

// RegLoc returns the minor and frame offset of a register init bit.
func (p *Arch) RegLoc(tileType string, yOfst uint, bel string) (BitLoc, error) {
	tile := p.Tiles[tileType]
	if tile == nil {
		return BitLoc{}, fmt.Errorf("no encoding for tile type %s", tileType)
	}

	loc := tile.Regs[yOfst][bel]
	if loc == nil {
		return BitLoc{}, fmt.Errorf("no encoding for register %s at Y offset %d in tile type %s", bel, yOfst, tileType)
	}
	// Done
	return *loc, nil
}

// LutLoc returns the minors and frame offsets of a LUT's truth-table bits,
// ordered by init index.
func (p *Arch) LutLoc(tileType string, yOfst uint, bel string) (*MultiLoc, error) {
	tile := p.Tiles[tileType]
	if tile == nil {
		return nil, fmt.Errorf("no encoding for tile type %s", tileType)
	}

	loc := tile.Luts[yOfst][bel]
	if loc == nil {
		return nil, fmt.Errorf("no encoding for LUT %s at Y offset %d in tile type %s", bel, yOfst, tileType)
	}

	if len(loc.Minors) != len(loc.FrameOfsts) {
		return nil, fmt.Errorf("encoding for LUT %s has %d minors but %d frame offsets", bel, len(loc.Minors), len(loc.FrameOfsts))
	}
	// Done
	return loc, nil
}

// BramMemLoc returns the minors and frame offsets of a block RAM's content
// bits, ordered by init index.
func (p *Arch) BramMemLoc(yOfst uint) (*MultiLoc, error) {
	loc := p.BramMem[yOfst]
	if loc == nil {
		return nil, fmt.Errorf("no content encoding for block RAM at Y offset %d", yOfst)
	}
	// Done
	return loc, nil
}

// BramParityLoc returns the minors and frame offsets of a block RAM's parity
// bits, ordered by init index.
func (p *Arch) BramParityLoc(yOfst uint) (*MultiLoc, error) {
	loc := p.BramParity[yOfst]
	if loc == nil {
		return nil, fmt.Errorf("no parity encoding for block RAM at Y offset %d", yOfst)
	}
	// Done
	return loc, nil
}
