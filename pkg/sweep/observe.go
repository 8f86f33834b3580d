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

package sweep

import (
	"fmt"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/diff"
	"github.com/epfl-vlsc/bitfiltrator/pkg/loc"
	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
)

// ObserveLuts feeds a LUT sweep's outcome into an encoding builder.  Every
// variant toggles exactly one truth-table bit, so its diff must be one-hot;
// anything else means the tool inserted or moved logic and the variant is
// reported rather than observed.  Variants that already failed during the
// campaign are skipped, their errors live in the outcome.
func ObserveLuts(builder *summary.Builder, outcome *Outcome, tileType string) []error {
	var errs []error

	for _, result := range outcome.Results {
		if result.Err != nil {
			continue
		}

		flip, err := diff.OneHot(result.Flips)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", VariantName(result.Variant.LutIndex, result.Variant.BitIndex), err))
			continue
		}

		if result.Variant.LutIndex >= arch.LutPerClb {
			errs = append(errs, fmt.Errorf("LUT index %d exceeds the CLB", result.Variant.LutIndex))
			continue
		}

		builder.Observe(summary.Observation{
			Kind:      loc.Lut,
			TileType:  tileType,
			YOfst:     0,
			Bel:       fmt.Sprintf("%c6LUT", 'A'+result.Variant.LutIndex),
			BitIndex:  result.Variant.BitIndex,
			Minor:     flip.Addr.Minor,
			FrameOfst: flip.Offset,
			Site:      fmt.Sprintf("lut_gen[%d]", result.Variant.LutIndex),
		})
	}
	// Done
	return errs
}
