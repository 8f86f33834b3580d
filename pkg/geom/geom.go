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

// Package geom models the physical layout of a device as reported by the
// vendor tools: super logic regions, their clock-region grid, and the sites
// within each fabric column.  The model is introspected once per device and
// then normalized into a canonical order, so that two snapshots of the same
// part always enumerate resources identically.
package geom

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Site is a placeable location (a slice, a block RAM, a DSP).
type Site struct {
	Name string `json:"name"`
	Type string `json:"type"`
	X    uint   `json:"x"`
	Y    uint   `json:"y"`
}

// Column is one fabric column of a clock region, holding the sites stacked
// within it.
type Column struct {
	Index uint   `json:"index"`
	Type  string `json:"type"`
	Sites []Site `json:"sites"`
}

// ClockRegion is one cell of an SLR's clock-region grid, named "X<x>Y<y>".
type ClockRegion struct {
	Name    string   `json:"name"`
	X       uint     `json:"x"`
	Y       uint     `json:"y"`
	Columns []Column `json:"columns"`
}

// IsEmpty reports whether the region holds no sites at all.  Some dies carry
// regions that exist in the grid but contain nothing configurable.
func (p *ClockRegion) IsEmpty() bool {
	for _, col := range p.Columns {
		if len(col.Sites) != 0 {
			return false
		}
	}
	// Done
	return true
}

// SLR is one super logic region of the device.
type SLR struct {
	Name    string        `json:"name"`
	Index   uint          `json:"index"`
	IDCode  uint32        `json:"idcode"`
	Regions []ClockRegion `json:"regions"`
}

// Device is the geometry of one part.
type Device struct {
	Part string `json:"part"`
	SLRs []SLR  `json:"slrs"`
}

var (
	regionNameRegex = regexp.MustCompile(`^X(\d+)Y(\d+)$`)
	siteNameRegex   = regexp.MustCompile(`^([A-Z0-9_]+?)_X(\d+)Y(\d+)$`)
)

// ParseRegionName extracts the grid coordinates from a clock-region name such
// as "X1Y2".
func ParseRegionName(name string) (x uint, y uint, err error) {
	m := regionNameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed clock region name %q", name)
	}

	xv, _ := strconv.ParseUint(m[1], 10, 32)
	yv, _ := strconv.ParseUint(m[2], 10, 32)
	// Done
	return uint(xv), uint(yv), nil
}

// ParseSiteName splits a site name such as "SLICE_X0Y13" into its type prefix
// and coordinates.
func ParseSiteName(name string) (prefix string, x uint, y uint, err error) {
	m := siteNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, fmt.Errorf("malformed site name %q", name)
	}

	xv, _ := strconv.ParseUint(m[2], 10, 32)
	yv, _ := strconv.ParseUint(m[3], 10, 32)
	// Done
	return m[1], uint(xv), uint(yv), nil
}

// Normalize sorts the device into its canonical enumeration order: SLRs by
// ascending index, clock regions row-major (Y then X, numerically rather than
// lexically), columns by ascending index, and sites bottom-up by Y.
// Introspection dumps arrive in whatever order the vendor tool emits, so
// every loaded geometry is normalized before use.
func (p *Device) Normalize() {
	sort.Slice(p.SLRs, func(i, j int) bool {
		return p.SLRs[i].Index < p.SLRs[j].Index
	})

	for s := range p.SLRs {
		slr := &p.SLRs[s]

		sort.Slice(slr.Regions, func(i, j int) bool {
			l, r := &slr.Regions[i], &slr.Regions[j]
			if l.Y != r.Y {
				return l.Y < r.Y
			}
			// Done
			return l.X < r.X
		})

		for r := range slr.Regions {
			region := &slr.Regions[r]

			sort.Slice(region.Columns, func(i, j int) bool {
				return region.Columns[i].Index < region.Columns[j].Index
			})

			for c := range region.Columns {
				sites := region.Columns[c].Sites

				sort.Slice(sites, func(i, j int) bool {
					if sites[i].Y != sites[j].Y {
						return sites[i].Y < sites[j].Y
					}
					// Done
					return sites[i].X < sites[j].X
				})
			}
		}
	}
}

// Visit walks every site in canonical order, skipping empty clock regions.
// The walk order is the enumeration order used everywhere else, so callers
// can rely on it being stable across runs.
func (p *Device) Visit(fn func(slr *SLR, region *ClockRegion, col *Column, site *Site)) {
	for s := range p.SLRs {
		slr := &p.SLRs[s]

		for r := range slr.Regions {
			region := &slr.Regions[r]
			if region.IsEmpty() {
				continue
			}

			for c := range region.Columns {
				col := &region.Columns[c]

				for i := range col.Sites {
					fn(slr, region, col, &col.Sites[i])
				}
			}
		}
	}
}

// Location identifies where a site sits in the device.
type Location struct {
	SLR    *SLR
	Region *ClockRegion
	Column *Column
	Site   *Site
}

// FindSite looks a site up by name.  An unknown name is not an error: parts
// of a family share a floorplan but not every part populates every site, so
// absence simply reports false.
func (p *Device) FindSite(name string) (Location, bool) {
	var (
		found Location
		ok    bool
	)

	p.Visit(func(slr *SLR, region *ClockRegion, col *Column, site *Site) {
		if !ok && site.Name == name {
			found = Location{SLR: slr, Region: region, Column: col, Site: site}
			ok = true
		}
	})
	// Done
	return found, ok
}

// CountMismatchError reports a device whose introspected site counts disagree
// with the family's published per-column counts.
type CountMismatchError struct {
	Column   string
	Expected uint
	Actual   uint
}

func (p *CountMismatchError) Error() string {
	return fmt.Sprintf("column type %s has %d sites, expected %d", p.Column, p.Actual, p.Expected)
}

// ValidateCounts checks every non-empty column against the expected site
// count for its type.  Column types absent from the expectation map are left
// unchecked.
func (p *Device) ValidateCounts(expected map[string]uint) []error {
	var errs []error

	for s := range p.SLRs {
		for r := range p.SLRs[s].Regions {
			for _, col := range p.SLRs[s].Regions[r].Columns {
				want, ok := expected[col.Type]
				if !ok || len(col.Sites) == 0 {
					continue
				}

				if uint(len(col.Sites)) != want {
					errs = append(errs, &CountMismatchError{
						Column:   col.Type,
						Expected: want,
						Actual:   uint(len(col.Sites)),
					})
				}
			}
		}
	}
	// Done
	return errs
}
