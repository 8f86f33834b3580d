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

import "fmt"

// ReplicateLuts fills in the LUT encodings of every Y offset of a tile from
// the encodings observed at offset 0.  A sweep places its probe column at one
// CLB, so it only ever observes offset 0; register encodings cover the whole
// column, and a LUT sits at a fixed distance from the anchor register of its
// CLB.  Translating the offset-0 LUT encoding by the anchor's per-offset
// minor and frame-offset deltas reproduces it everywhere.
func (p *Arch) ReplicateLuts(tileType string, anchorBel string) error {
	tile, ok := p.Tiles[tileType]
	if !ok {
		return fmt.Errorf("no encodings for tile type %s", tileType)
	}

	base, ok := tile.Regs[0][anchorBel]
	if !ok {
		return fmt.Errorf("tile type %s has no %s encoding at offset 0", tileType, anchorBel)
	}

	luts, ok := tile.Luts[0]
	if !ok || len(luts) == 0 {
		return fmt.Errorf("tile type %s has no LUT encodings at offset 0", tileType)
	}

	for yOfst, regs := range tile.Regs {
		if yOfst == 0 {
			continue
		}

		anchor, ok := regs[anchorBel]
		if !ok {
			return fmt.Errorf("tile type %s has no %s encoding at offset %d", tileType, anchorBel, yOfst)
		}

		minorDiff := int(anchor.Minor) - int(base.Minor)
		ofstDiff := int(anchor.FrameOfst) - int(base.FrameOfst)

		translated := make(map[string]*MultiLoc, len(luts))

		for bel, src := range luts {
			dst := &MultiLoc{
				Minors:     make([]uint32, len(src.Minors)),
				FrameOfsts: make([]uint, len(src.FrameOfsts)),
			}

			for i := range src.Minors {
				dst.Minors[i] = uint32(int(src.Minors[i]) + minorDiff)
				dst.FrameOfsts[i] = uint(int(src.FrameOfsts[i]) + ofstDiff)
			}

			translated[bel] = dst
		}

		tile.Luts[yOfst] = translated
	}
	// Done
	return nil
}
