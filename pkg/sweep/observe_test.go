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
	"errors"
	"testing"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/diff"
	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
)

func Test_ObserveLuts_00(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)

	outcome := &Outcome{
		Results: []Result{
			{
				Variant: Variant{LutIndex: 1, BitIndex: 0},
				Flips: []diff.BitFlip{
					{Addr: arch.DecodeFrameAddress(0x00000307, spec), Offset: 639},
				},
			},
			{
				Variant: Variant{LutIndex: 1, BitIndex: 1},
				Flips: []diff.BitFlip{
					{Addr: arch.DecodeFrameAddress(0x00000307, spec), Offset: 640},
				},
			},
			// Failed during the campaign, stays out of the encoding.
			{
				Variant: Variant{LutIndex: 1, BitIndex: 2},
				Err:     errors.New("decode failed"),
			},
		},
		Completed: 2,
		Failed:    1,
	}

	builder := summary.NewBuilder("test")
	if errs := ObserveLuts(builder, outcome, "CLEL_L"); len(errs) != 0 {
		t.Fatalf("got %v", errs)
	}

	sum, errs := builder.Build()
	// Bit 2 was never observed, so the 64-bit equation is incomplete.
	if len(errs) == 0 {
		t.Fatal("expected an incomplete encoding")
	}

	if _, err := sum.LutLoc("CLEL_L", 0, "B6LUT"); err == nil {
		t.Fatal("expected no encoding for partial observations")
	}
}

func Test_ObserveLuts_01(t *testing.T) {
	spec := arch.SpecOf(arch.UltraScale)

	outcome := &Outcome{
		Results: []Result{
			{
				Variant: Variant{LutIndex: 0, BitIndex: 5},
				Flips: []diff.BitFlip{
					{Addr: arch.DecodeFrameAddress(0x00000307, spec), Offset: 100},
					{Addr: arch.DecodeFrameAddress(0x00000308, spec), Offset: 100},
				},
			},
		},
		Completed: 1,
	}

	builder := summary.NewBuilder("test")
	errs := ObserveLuts(builder, outcome, "CLEL_L")

	if len(errs) != 1 {
		t.Fatalf("got %v", errs)
	}

	var aliased *diff.AliasingError
	if !errors.As(errs[0], &aliased) {
		t.Fatalf("got %v", errs[0])
	}

	if _, buildErrs := builder.Build(); len(buildErrs) != 0 {
		t.Fatalf("got %v", buildErrs)
	}
}
