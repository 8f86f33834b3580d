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
	"path/filepath"
	"strings"

	"github.com/epfl-vlsc/bitfiltrator/pkg/resource"
)

// Variant is one regeneration of the baseline design with a single
// truth-table bit set.
type Variant struct {
	// LutIndex is the swept LUT's position within its CLB.
	LutIndex uint
	// BitIndex is the truth-table bit the variant sets.
	BitIndex uint
	// BitstreamPath is the variant's compressed bitstream.
	BitstreamPath string
	// CheckpointPath is the variant's design checkpoint.
	CheckpointPath string
}

// VariantName renders the artifact base name of one variant.  The name
// embeds the cell instance and the full 64-bit equation (bit 0 rightmost),
// so artifacts sort and grep naturally.
func VariantName(lutIndex uint, bitIndex uint) string {
	var equation strings.Builder

	for i := int(resource.LutBits) - 1; i >= 0; i-- {
		if uint(i) == bitIndex {
			equation.WriteByte('1')
		} else {
			equation.WriteByte('0')
		}
	}
	// Done
	return fmt.Sprintf("lut_gen[%d].lut6_inst_b%s", lutIndex, equation.String())
}

// PlanLutSweep lists every variant of a LUT init sweep over the given LUT
// index range, inclusive.  Bitstreams are stored compressed; checkpoints are
// not.
func PlanLutSweep(dir string, lutIndexLow uint, lutIndexHigh uint) []Variant {
	var variants []Variant

	for lutIndex := lutIndexLow; lutIndex <= lutIndexHigh; lutIndex++ {
		for bitIndex := uint(0); bitIndex < resource.LutBits; bitIndex++ {
			name := VariantName(lutIndex, bitIndex)

			variants = append(variants, Variant{
				LutIndex:       lutIndex,
				BitIndex:       bitIndex,
				BitstreamPath:  filepath.Join(dir, name+".bit.gz"),
				CheckpointPath: filepath.Join(dir, name+".dcp"),
			})
		}
	}
	// Done
	return variants
}

// ArtifactPaths lists every artifact the sweep is expected to produce, in
// variant order.
func ArtifactPaths(variants []Variant) []string {
	paths := make([]string, 0, 2*len(variants))

	for _, variant := range variants {
		paths = append(paths, variant.BitstreamPath, variant.CheckpointPath)
	}
	// Done
	return paths
}
