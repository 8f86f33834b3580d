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

import (
	"fmt"
	"regexp"
)

// Name identifies an FPGA architecture family.
type Name uint8

const (
	// UltraScale is the first-generation UltraScale family (xcku/xcvu parts).
	UltraScale Name = iota
	// UltraScalePlus is the UltraScale+ family (parts with a "p" suffix).
	UltraScalePlus
)

func (n Name) String() string {
	switch n {
	case UltraScale:
		return "ULTRASCALE"
	case UltraScalePlus:
		return "ULTRASCALE_PLUS"
	default:
		return fmt.Sprintf("ARCH_%d", n)
	}
}

// ParseName maps a vendor architecture string (e.g. "Kintex UltraScale+") to
// its family.  The "+" must be checked first as plain "ultrascale" matches
// both families.
func ParseName(s string) (Name, error) {
	if ultraScalePlusRegex.MatchString(s) {
		return UltraScalePlus, nil
	}

	if ultraScaleRegex.MatchString(s) {
		return UltraScale, nil
	}

	return 0, fmt.Errorf("unknown architecture %q", s)
}

var (
	ultraScalePlusRegex = regexp.MustCompile(`(?i)ultrascale\+`)
	ultraScaleRegex     = regexp.MustCompile(`(?i)ultrascale`)
)

// Resource geometry constants shared by both UltraScale families (UG574).
const (
	// ClbPerColumn is the number of CLBs stacked in one clock-region column.
	ClbPerColumn = 60
	// LutPerClb is the number of 6-input LUTs per CLB.
	LutPerClb = 8
	// RegPerClb is the number of flip-flops per CLB.
	RegPerClb = 16
	// DspPerColumn is the number of DSP slices per clock-region column.
	DspPerColumn = 24
	// Bram36PerColumn is the number of RAMB36 blocks per clock-region column.
	Bram36PerColumn = 12
	// Bram18PerColumn is the number of RAMB18 blocks per clock-region column.
	Bram18PerColumn = 24
)

// Spec describes the frame-address register layout and frame geometry of one
// architecture family (UG570 table 9-21).  Field positions are bit indices
// into the 32-bit FAR word, inclusive on both ends.
type Spec struct {
	name Name
	// [high, low] index pairs for each FAR field.
	reserved  [2]uint
	blockType [2]uint
	row       [2]uint
	column    [2]uint
	minor     [2]uint
	// Number of 32-bit words per configuration frame.
	frameWords uint
}

var ultraScaleSpec = Spec{
	name:       UltraScale,
	reserved:   [2]uint{31, 26},
	blockType:  [2]uint{25, 23},
	row:        [2]uint{22, 17},
	column:     [2]uint{16, 7},
	minor:      [2]uint{6, 0},
	frameWords: 123,
}

var ultraScalePlusSpec = Spec{
	name:       UltraScalePlus,
	reserved:   [2]uint{31, 27},
	blockType:  [2]uint{26, 24},
	row:        [2]uint{23, 18},
	column:     [2]uint{17, 8},
	minor:      [2]uint{7, 0},
	frameWords: 93,
}

// SpecOf returns the frame layout of the given architecture family.
func SpecOf(n Name) Spec {
	if n == UltraScalePlus {
		return ultraScalePlusSpec
	}
	// Done
	return ultraScaleSpec
}

// Name returns the family this spec describes.
func (p Spec) Name() Name {
	return p.name
}

// FrameWords returns the number of 32-bit words in one configuration frame.
func (p Spec) FrameWords() uint {
	return p.frameWords
}

// FrameBits returns the number of bits in one configuration frame.
func (p Spec) FrameBits() uint {
	return p.frameWords * 32
}
