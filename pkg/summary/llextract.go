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

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/loc"
)

// ObserveLogicLocations feeds a logic-location dump of a single resource
// column into a builder.  The dump must cover exactly one column: every
// frame address may differ only in its minor, anything else means the
// generating design strayed outside the column.
//
// Positions are keyed by each block's Y offset from the lowest block in the
// dump, matching the per-column repetition of tile encodings.
func ObserveLogicLocations(builder *Builder, tileType string, bits []loc.Bit, spec arch.Spec) error {
	if len(bits) == 0 {
		return fmt.Errorf("logic-location dump holds no bit lines")
	}

	ref := arch.DecodeFrameAddress(bits[0].FrameAddr, spec)
	yMin := bits[0].BlockY

	for _, bit := range bits {
		far := arch.DecodeFrameAddress(bit.FrameAddr, spec)

		sameColumn := bit.SLRNumber == bits[0].SLRNumber &&
			far.Reserved == ref.Reserved &&
			far.Block == ref.Block &&
			far.Row == ref.Row &&
			far.Column == ref.Column

		if !sameColumn {
			return fmt.Errorf("%s strays outside the column of %s", bit.Block, bits[0].Block)
		}

		if bit.BlockY < yMin {
			yMin = bit.BlockY
		}
	}

	for _, bit := range bits {
		far := arch.DecodeFrameAddress(bit.FrameAddr, spec)

		obs := Observation{
			Kind:      bit.Kind,
			YOfst:     uint(bit.BlockY - yMin),
			BitIndex:  uint(bit.BitIndex),
			Minor:     far.Minor,
			FrameOfst: bit.FrameOfst,
			Site:      bit.Block,
		}

		switch bit.Kind {
		case loc.Reg, loc.BramReg:
			obs.Kind = loc.Reg
			obs.TileType = tileType
			obs.Bel = bit.Bel
		case loc.Lut, loc.Lutram:
			obs.TileType = tileType
			obs.Bel = bit.Bel + "6LUT"
		case loc.BramMem, loc.BramParity:
			// Block RAM encodings are uniform across tile types.
		default:
			return fmt.Errorf("cannot derive an encoding from %v lines", bit.Kind)
		}

		builder.Observe(obs)
	}
	// Done
	return nil
}
