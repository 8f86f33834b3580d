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
	"sort"
	"strings"

	"github.com/epfl-vlsc/bitfiltrator/pkg/loc"
	"github.com/epfl-vlsc/bitfiltrator/pkg/resource"
)

// Observation attributes one isolated bit flip to a logical property bit of
// a resource: "bit BitIndex of Bel at YOfst in tile type TileType lives at
// (Minor, FrameOfst)".  Site names the instance that produced the flip so
// disagreements can be reported.
type Observation struct {
	Kind      loc.Kind
	TileType  string
	YOfst     uint
	Bel       string
	BitIndex  uint
	Minor     uint32
	FrameOfst uint
	Inverted  bool
	Site      string
}

// propertyKey identifies one logical property bit.
type propertyKey struct {
	kind     loc.Kind
	tileType string
	yOfst    uint
	bel      string
	bitIndex uint
}

// cell is one observed storage location of a property bit.
type cell struct {
	minor     uint32
	frameOfst uint
	inverted  bool
	site      string
}

// AliasedBitError reports a property bit observed at several storage
// locations within a single instance.
type AliasedBitError struct {
	Kind     loc.Kind
	Bel      string
	BitIndex uint
	Cells    uint
}

func (p *AliasedBitError) Error() string {
	return fmt.Sprintf("%v bit %d of %s maps to %d distinct cells", p.Kind, p.BitIndex, p.Bel, p.Cells)
}

// CrossInstanceError reports two instances of the same resource whose
// observations place a property bit at different storage locations.  Column
// encodings are assumed uniform, so this invalidates the whole encoding.
type CrossInstanceError struct {
	Kind     loc.Kind
	Bel      string
	BitIndex uint
	Sites    [2]string
}

func (p *CrossInstanceError) Error() string {
	return fmt.Sprintf("%v bit %d of %s disagrees between %s and %s", p.Kind, p.BitIndex, p.Bel, p.Sites[0], p.Sites[1])
}

// CollisionError reports distinct property bits that resolved to the same
// storage cell.  An encoding maps each frame bit to at most one property
// bit; a shared cell means neither binding can be trusted, so none of the
// claimants is committed.
type CollisionError struct {
	TileType   string
	Minor      uint32
	FrameOfst  uint
	Properties []string
}

func (p *CollisionError) Error() string {
	scope := p.TileType
	if scope == "" {
		scope = "the BRAM column"
	}
	// Done
	return fmt.Sprintf("cell (minor %d, ofst %d) of %s claimed by %s",
		p.Minor, p.FrameOfst, scope, strings.Join(p.Properties, " and "))
}

// IncompleteEncodingError reports a property whose sweep did not isolate
// every bit.
type IncompleteEncodingError struct {
	Kind     loc.Kind
	Bel      string
	YOfst    uint
	Observed uint
	Expected uint
}

func (p *IncompleteEncodingError) Error() string {
	return fmt.Sprintf("%v of %s at Y offset %d covers %d of %d bits", p.Kind, p.Bel, p.YOfst, p.Observed, p.Expected)
}

// Builder accumulates sweep observations and assembles them into an
// architecture summary.  Observations arrive over a channel so that
// concurrent sweep workers can feed a single accumulator.
type Builder struct {
	name string
	c    chan Observation
	done chan struct{}
	bits map[propertyKey][]cell
}

// NewBuilder returns a builder for the named architecture and starts its
// accumulator.
func NewBuilder(name string) *Builder {
	p := &Builder{
		name: name,
		c:    make(chan Observation, 256),
		done: make(chan struct{}),
		bits: make(map[propertyKey][]cell),
	}

	go p.accumulate()
	// Done
	return p
}

func (p *Builder) accumulate() {
	for obs := range p.c {
		// A LUT equation bit and a LUTRAM bit of the same BEL are the same
		// storage cell, observed through different probes.
		if obs.Kind == loc.Lutram {
			obs.Kind = loc.Lut
		}

		key := propertyKey{
			kind:     obs.Kind,
			tileType: obs.TileType,
			yOfst:    obs.YOfst,
			bel:      obs.Bel,
			bitIndex: obs.BitIndex,
		}

		p.bits[key] = append(p.bits[key], cell{
			minor:     obs.Minor,
			frameOfst: obs.FrameOfst,
			inverted:  obs.Inverted,
			site:      obs.Site,
		})
	}

	close(p.done)
}

// Observe records one observation.  Safe for concurrent use until Build is
// called.
func (p *Builder) Observe(obs Observation) {
	p.c <- obs
}

// Build drains the accumulator and assembles the architecture summary.
// Every instance of a resource must agree on its encoding, and every bit of
// a multi-bit property must have been observed; violations are returned
// alongside the summary, which retains only the clean encodings.
func (p *Builder) Build() (*Arch, []error) {
	close(p.c)
	<-p.done

	summary := &Arch{
		Name:       p.name,
		Tiles:      make(map[string]*TileEncoding),
		BramMem:    make(map[uint]*MultiLoc),
		BramParity: make(map[uint]*MultiLoc),
	}

	var errs []error

	resolved := make(map[propertyKey]cell)

	for key, cells := range p.bits {
		chosen, err := resolveCells(key, cells)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		resolved[key] = chosen
	}

	errs = append(errs, dropCollisions(resolved)...)
	errs = append(errs, p.assemble(summary, resolved)...)
	// Done
	return summary, errs
}

// resolveCells collapses the observations of one property bit into a single
// storage cell, flagging aliasing and cross-instance disagreement.
func resolveCells(key propertyKey, cells []cell) (cell, error) {
	perSite := make(map[string]map[cell]bool)

	for _, c := range cells {
		anon := c
		anon.site = ""

		if perSite[c.site] == nil {
			perSite[c.site] = make(map[cell]bool)
		}

		perSite[c.site][anon] = true
	}

	var (
		chosen   cell
		haveSite string
	)

	for site, anons := range perSite {
		if len(anons) > 1 {
			return cell{}, &AliasedBitError{
				Kind:     key.kind,
				Bel:      key.bel,
				BitIndex: key.bitIndex,
				Cells:    uint(len(anons)),
			}
		}

		var anon cell
		for c := range anons {
			anon = c
		}

		if haveSite == "" {
			chosen, haveSite = anon, site
		} else if anon != chosen {
			sites := [2]string{haveSite, site}
			sort.Strings(sites[:])

			return cell{}, &CrossInstanceError{
				Kind:     key.kind,
				Bel:      key.bel,
				BitIndex: key.bitIndex,
				Sites:    sites,
			}
		}
	}
	// Done
	return chosen, nil
}

// dropCollisions removes every property bit whose resolved cell is claimed
// by another property bit, one error per contested cell.
func dropCollisions(resolved map[propertyKey]cell) []error {
	type cellAddr struct {
		tileType  string
		minor     uint32
		frameOfst uint
	}

	claims := make(map[cellAddr][]propertyKey)

	for key, c := range resolved {
		addr := cellAddr{tileType: key.tileType, minor: c.minor, frameOfst: c.frameOfst}
		claims[addr] = append(claims[addr], key)
	}

	contested := make([]cellAddr, 0)

	for addr, keys := range claims {
		if len(keys) > 1 {
			contested = append(contested, addr)
		}
	}

	sort.Slice(contested, func(i, j int) bool {
		l, r := contested[i], contested[j]
		if l.tileType != r.tileType {
			return l.tileType < r.tileType
		}

		if l.minor != r.minor {
			return l.minor < r.minor
		}
		// Done
		return l.frameOfst < r.frameOfst
	})

	var errs []error

	for _, addr := range contested {
		keys := claims[addr]
		names := make([]string, 0, len(keys))

		for _, key := range keys {
			names = append(names, fmt.Sprintf("%v bit %d of %s at Y offset %d", key.kind, key.bitIndex, key.bel, key.yOfst))
			delete(resolved, key)
		}

		sort.Strings(names)

		errs = append(errs, &CollisionError{
			TileType:   addr.tileType,
			Minor:      addr.minor,
			FrameOfst:  addr.frameOfst,
			Properties: names,
		})
	}
	// Done
	return errs
}

// propertyWidth returns the number of logical bits a property of the given
// kind carries.
func propertyWidth(kind loc.Kind) uint {
	switch kind {
	case loc.Lut, loc.Lutram:
		return resource.LutBits
	case loc.BramMem:
		return resource.BramMemBits
	case loc.BramParity:
		return resource.BramParityBits
	default:
		return 1
	}
}

func (p *Builder) assemble(summary *Arch, resolved map[propertyKey]cell) []error {
	// Group resolved bits per property.
	type property struct {
		kind     loc.Kind
		tileType string
		yOfst    uint
		bel      string
	}

	perProperty := make(map[property]map[uint]cell)

	for key, c := range resolved {
		prop := property{kind: key.kind, tileType: key.tileType, yOfst: key.yOfst, bel: key.bel}

		if perProperty[prop] == nil {
			perProperty[prop] = make(map[uint]cell)
		}

		perProperty[prop][key.bitIndex] = c
	}
	// Deterministic assembly order keeps error reporting stable.
	props := make([]property, 0, len(perProperty))

	for prop := range perProperty {
		props = append(props, prop)
	}

	sort.Slice(props, func(i, j int) bool {
		l, r := props[i], props[j]
		if l.kind != r.kind {
			return l.kind < r.kind
		}

		if l.tileType != r.tileType {
			return l.tileType < r.tileType
		}

		if l.yOfst != r.yOfst {
			return l.yOfst < r.yOfst
		}
		// Done
		return l.bel < r.bel
	})

	var errs []error

	for _, prop := range props {
		bits := perProperty[prop]
		width := propertyWidth(prop.kind)

		if uint(len(bits)) != width {
			errs = append(errs, &IncompleteEncodingError{
				Kind:     prop.kind,
				Bel:      prop.bel,
				YOfst:    prop.yOfst,
				Observed: uint(len(bits)),
				Expected: width,
			})

			continue
		}

		switch prop.kind {
		case loc.Reg:
			c := bits[0]
			tile := summary.tile(prop.tileType)

			if tile.Regs[prop.yOfst] == nil {
				tile.Regs[prop.yOfst] = make(map[string]*BitLoc)
			}

			tile.Regs[prop.yOfst][prop.bel] = &BitLoc{Minor: c.minor, FrameOfst: c.frameOfst, Inverted: c.inverted}
		case loc.Lut, loc.Lutram:
			tile := summary.tile(prop.tileType)

			if tile.Luts[prop.yOfst] == nil {
				tile.Luts[prop.yOfst] = make(map[string]*MultiLoc)
			}

			tile.Luts[prop.yOfst][prop.bel] = multiLocOf(bits, width)
		case loc.BramMem:
			summary.BramMem[prop.yOfst] = multiLocOf(bits, width)
		case loc.BramParity:
			summary.BramParity[prop.yOfst] = multiLocOf(bits, width)
		}
	}
	// Done
	return errs
}

func (p *Arch) tile(tileType string) *TileEncoding {
	tile := p.Tiles[tileType]
	if tile == nil {
		tile = &TileEncoding{
			Luts: make(map[uint]map[string]*MultiLoc),
			Regs: make(map[uint]map[string]*BitLoc),
		}
		p.Tiles[tileType] = tile
	}
	// Done
	return tile
}

func multiLocOf(bits map[uint]cell, width uint) *MultiLoc {
	multi := &MultiLoc{
		Minors:     make([]uint32, width),
		FrameOfsts: make([]uint, width),
	}

	for i := uint(0); i < width; i++ {
		multi.Minors[i] = bits[i].minor
		multi.FrameOfsts[i] = bits[i].frameOfst
	}
	// Done
	return multi
}
