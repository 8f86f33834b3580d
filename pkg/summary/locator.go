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
	"fmt"
	"regexp"
	"strconv"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

var (
	clbBelRegex   = regexp.MustCompile(`^SLICE_X(\d+)Y(\d+)/([A-H](?:6LUT|FF2?))$`)
	bramSiteRegex = regexp.MustCompile(`^RAMB(\d+)_X(\d+)Y(\d+)$`)
)

// Locator resolves resource names to the frames and offsets holding their
// configuration, combining a device summary (where columns sit) with an
// architecture summary (how tiles encode).
type Locator struct {
	device *Device
	arch   *Arch
	spec   arch.Spec
}

// NewLocator returns a locator over the given summaries.
func NewLocator(device *Device, summary *Arch, spec arch.Spec) *Locator {
	return &Locator{device: device, arch: summary, spec: spec}
}

// RegLocation is the placement of a register init bit.  Inverted marks cells
// storing the complement of the logical value.
type RegLocation struct {
	SLRName   string
	Addr      arch.FrameAddress
	FrameOfst uint
	Inverted  bool
}

// MultiLocation is the placement of a multi-bit property: entry i of both
// slices locates logical bit i.
type MultiLocation struct {
	SLRName    string
	Addrs      []arch.FrameAddress
	FrameOfsts []uint
}

// LocateReg resolves a flip-flop name such as "SLICE_X0Y13/GFF2" to the
// frame and offset of its INIT bit.
func (p *Locator) LocateReg(name string) (RegLocation, error) {
	x, y, bel, err := parseClbBel(name)
	if err != nil {
		return RegLocation{}, err
	}

	slrName, rowMajor, err := p.placeRow(y, arch.ClbPerColumn)
	if err != nil {
		return RegLocation{}, fmt.Errorf("cannot place %s: %w", name, err)
	}

	colMajor, tileType, err := p.placeClbColumn(slrName, rowMajor, x)
	if err != nil {
		return RegLocation{}, fmt.Errorf("cannot place %s: %w", name, err)
	}

	loc, err := p.arch.RegLoc(tileType, y%arch.ClbPerColumn, bel)
	if err != nil {
		return RegLocation{}, err
	}
	// Done
	return RegLocation{
		SLRName: slrName,
		Addr: arch.FrameAddress{
			Block:  arch.ClbIoClk,
			Row:    rowMajor,
			Column: colMajor,
			Minor:  loc.Minor,
		},
		FrameOfst: loc.FrameOfst,
		Inverted:  loc.Inverted,
	}, nil
}

// LocateLut resolves a LUT name such as "SLICE_X0Y13/B6LUT" to the frames
// and offsets of its 64 truth-table bits.
func (p *Locator) LocateLut(name string) (MultiLocation, error) {
	x, y, bel, err := parseClbBel(name)
	if err != nil {
		return MultiLocation{}, err
	}

	slrName, rowMajor, err := p.placeRow(y, arch.ClbPerColumn)
	if err != nil {
		return MultiLocation{}, fmt.Errorf("cannot place %s: %w", name, err)
	}

	colMajor, tileType, err := p.placeClbColumn(slrName, rowMajor, x)
	if err != nil {
		return MultiLocation{}, fmt.Errorf("cannot place %s: %w", name, err)
	}

	loc, err := p.arch.LutLoc(tileType, y%arch.ClbPerColumn, bel)
	if err != nil {
		return MultiLocation{}, err
	}
	// Done
	return p.expand(slrName, arch.ClbIoClk, rowMajor, colMajor, loc), nil
}

// LocateBram resolves an 18K block RAM name such as "RAMB18_X1Y40" to the
// frames and offsets of its content and parity bits.
func (p *Locator) LocateBram(name string) (mem MultiLocation, parity MultiLocation, err error) {
	m := bramSiteRegex.FindStringSubmatch(name)
	if m == nil {
		return mem, parity, fmt.Errorf("malformed block RAM name %q", name)
	}

	if m[1] != "18" {
		return mem, parity, fmt.Errorf("only 18K block RAM encodings are known, got %q", name)
	}

	xv, _ := strconv.ParseUint(m[2], 10, 32)
	yv, _ := strconv.ParseUint(m[3], 10, 32)
	x, y := uint(xv), uint(yv)

	slrName, rowMajor, err := p.placeRow(y, arch.Bram18PerColumn)
	if err != nil {
		return mem, parity, fmt.Errorf("cannot place %s: %w", name, err)
	}

	slr := p.device.SLRs[slrName]

	major := slr.RowMajors[uint(rowMajor)]
	if major == nil {
		return mem, parity, fmt.Errorf("cannot place %s: SLR %s has no row major %d", name, slrName, rowMajor)
	}

	colMajor, ok := major.BramContentColMajors[x]
	if !ok {
		return mem, parity, fmt.Errorf("cannot place %s: no block RAM column at X%d", name, x)
	}

	yOfst := y % arch.Bram18PerColumn

	memLoc, err := p.arch.BramMemLoc(yOfst)
	if err != nil {
		return mem, parity, err
	}

	parityLoc, err := p.arch.BramParityLoc(yOfst)
	if err != nil {
		return mem, parity, err
	}
	// Done
	return p.expand(slrName, arch.BramContent, rowMajor, colMajor, memLoc),
		p.expand(slrName, arch.BramContent, rowMajor, colMajor, parityLoc), nil
}

func parseClbBel(name string) (x uint, y uint, bel string, err error) {
	m := clbBelRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, "", fmt.Errorf("malformed slice BEL name %q", name)
	}

	xv, _ := strconv.ParseUint(m[1], 10, 32)
	yv, _ := strconv.ParseUint(m[2], 10, 32)
	// Done
	return uint(xv), uint(yv), m[3], nil
}

// placeRow finds the SLR and relative row major containing a resource at the
// given Y coordinate, counting perColumn resources per clock-region row.
func (p *Locator) placeRow(y uint, perColumn uint) (string, uint32, error) {
	for _, slrName := range p.device.SLRNames() {
		slr := p.device.SLRs[slrName]
		minY := slr.MinClockRegionRow * perColumn
		maxY := (slr.MaxClockRegionRow+1)*perColumn - 1

		if minY <= y && y <= maxY {
			// Absolute clock-region rows span all SLRs; the FAR row restarts
			// at 0 in every SLR.
			return slrName, uint32(y/perColumn - slr.MinClockRegionRow), nil
		}
	}
	// Done
	return "", 0, fmt.Errorf("no SLR covers Y coordinate %d", y)
}

// placeClbColumn maps a slice X coordinate to its column major and tile type.
func (p *Locator) placeClbColumn(slrName string, rowMajor uint32, x uint) (uint32, string, error) {
	slr := p.device.SLRs[slrName]

	major := slr.RowMajors[uint(rowMajor)]
	if major == nil {
		return 0, "", fmt.Errorf("SLR %s has no row major %d", slrName, rowMajor)
	}

	colMajor, ok := major.ClbColMajors[x]
	if !ok {
		return 0, "", fmt.Errorf("no CLB column at X%d in SLR %s row %d", x, slrName, rowMajor)
	}

	tileType, ok := major.ClbTileTypes[x]
	if !ok {
		return 0, "", fmt.Errorf("no tile type for CLB column at X%d in SLR %s row %d", x, slrName, rowMajor)
	}
	// Done
	return colMajor, tileType, nil
}

func (p *Locator) expand(slrName string, block arch.BlockType, rowMajor uint32, colMajor uint32, loc *MultiLoc) MultiLocation {
	multi := MultiLocation{
		SLRName:    slrName,
		Addrs:      make([]arch.FrameAddress, len(loc.Minors)),
		FrameOfsts: make([]uint, len(loc.FrameOfsts)),
	}

	for i, minor := range loc.Minors {
		multi.Addrs[i] = arch.FrameAddress{
			Block:  block,
			Row:    rowMajor,
			Column: colMajor,
			Minor:  minor,
		}
		multi.FrameOfsts[i] = loc.FrameOfsts[i]
	}
	// Done
	return multi
}
