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

package geom

import (
	"testing"
)

func build_Device() *Device {
	// Regions and sites deliberately out of canonical order.
	return &Device{
		Part: "xcu200",
		SLRs: []SLR{
			{
				Name:   "SLR1",
				Index:  1,
				IDCode: 0x04b37093,
				Regions: []ClockRegion{
					{Name: "X0Y5", X: 0, Y: 5, Columns: []Column{
						{Index: 0, Type: "CLB", Sites: []Site{
							{Name: "SLICE_X0Y300", Type: "SLICEL", X: 0, Y: 300},
						}},
					}},
				},
			},
			{
				Name:   "SLR0",
				Index:  0,
				IDCode: 0x04b37093,
				Regions: []ClockRegion{
					{Name: "X1Y0", X: 1, Y: 0, Columns: []Column{
						{Index: 7, Type: "BRAM", Sites: []Site{
							{Name: "RAMB18_X1Y2", Type: "RAMB18", X: 1, Y: 2},
							{Name: "RAMB18_X1Y0", Type: "RAMB18", X: 1, Y: 0},
						}},
					}},
					{Name: "X0Y0", X: 0, Y: 0, Columns: []Column{
						{Index: 3, Type: "CLB", Sites: []Site{
							{Name: "SLICE_X0Y13", Type: "SLICEL", X: 0, Y: 13},
							{Name: "SLICE_X0Y0", Type: "SLICEL", X: 0, Y: 0},
						}},
						{Index: 1, Type: "CLB", Sites: nil},
					}},
					{Name: "X0Y10", X: 0, Y: 10, Columns: nil},
				},
			},
		},
	}
}

func Test_Geom_00(t *testing.T) {
	x, y, err := ParseRegionName("X1Y12")
	if err != nil {
		t.Fatal(err)
	} else if x != 1 || y != 12 {
		t.Errorf("got X%dY%d", x, y)
	}

	if _, _, err := ParseRegionName("CLOCKREGION_X1Y12"); err == nil {
		t.Error("expected parse error")
	}
}

func Test_Geom_01(t *testing.T) {
	prefix, x, y, err := ParseSiteName("SLICE_X0Y13")
	if err != nil {
		t.Fatal(err)
	} else if prefix != "SLICE" || x != 0 || y != 13 {
		t.Errorf("got %s X%dY%d", prefix, x, y)
	}

	prefix, x, y, err = ParseSiteName("RAMB18_X1Y2")
	if err != nil {
		t.Fatal(err)
	} else if prefix != "RAMB18" || x != 1 || y != 2 {
		t.Errorf("got %s X%dY%d", prefix, x, y)
	}
}

func Test_Geom_02(t *testing.T) {
	device := build_Device()
	device.Normalize()

	var names []string

	device.Visit(func(_ *SLR, _ *ClockRegion, _ *Column, site *Site) {
		names = append(names, site.Name)
	})

	expected := []string{
		"SLICE_X0Y0", "SLICE_X0Y13",
		"RAMB18_X1Y0", "RAMB18_X1Y2",
		"SLICE_X0Y300",
	}

	if len(names) != len(expected) {
		t.Fatalf("got %v", names)
	}

	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("site %d: got %s, expected %s", i, names[i], expected[i])
		}
	}
}

func Test_Geom_03(t *testing.T) {
	device := build_Device()
	device.Normalize()

	loc, ok := device.FindSite("RAMB18_X1Y2")
	if !ok {
		t.Fatal("site not found")
	}

	if loc.SLR.Index != 0 || loc.Region.Name != "X1Y0" || loc.Column.Index != 7 {
		t.Errorf("got SLR%d %s column %d", loc.SLR.Index, loc.Region.Name, loc.Column.Index)
	}

	if _, ok := device.FindSite("SLICE_X99Y99"); ok {
		t.Error("expected absent site")
	}
}

func Test_Geom_04(t *testing.T) {
	device := build_Device()
	device.Normalize()

	// Two short columns: the BRAM column in SLR0 and the one-site CLB
	// column in SLR1.
	errs := device.ValidateCounts(map[string]uint{"CLB": 2, "BRAM": 3})
	if len(errs) != 2 {
		t.Fatalf("got %v", errs)
	}

	mismatch, ok := errs[0].(*CountMismatchError)
	if !ok {
		t.Fatalf("got %T", errs[0])
	}

	if mismatch.Column != "BRAM" || mismatch.Expected != 3 || mismatch.Actual != 2 {
		t.Errorf("got %v", mismatch)
	}

	mismatch, ok = errs[1].(*CountMismatchError)
	if !ok {
		t.Fatalf("got %T", errs[1])
	}

	if mismatch.Column != "CLB" || mismatch.Expected != 2 || mismatch.Actual != 1 {
		t.Errorf("got %v", mismatch)
	}
}
