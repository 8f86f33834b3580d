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

// Package backend drives the vendor tools: it knows which parts exist, runs
// batch scripts against them, and loads the geometry dumps those scripts
// produce.
package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/geom"
)

// Entry is the catalog record of one part.
type Entry struct {
	Device string
	Arch   arch.Name
}

// Catalog maps every known part to its device and architecture.  The same
// device ships in several speed grades and packages, so a device usually has
// several parts.
type Catalog struct {
	parts map[string]Entry
}

// LoadCatalog reads a part catalog from a JSON file.  The file maps
// architecture display names to devices to part lists; architectures other
// than the two UltraScale families are ignored.
func LoadCatalog(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	// Done
	return ParseCatalog(data)
}

// ParseCatalog decodes a part catalog from JSON text.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]map[string][]string

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed part catalog: %w", err)
	}

	catalog := &Catalog{parts: make(map[string]Entry)}

	for archName, devices := range raw {
		name, err := arch.ParseName(archName)
		if err != nil {
			continue
		}

		for device, parts := range devices {
			for _, part := range parts {
				catalog.parts[part] = Entry{Device: device, Arch: name}
			}
		}
	}
	// Done
	return catalog, nil
}

// Lookup returns the device and architecture of a part.
func (p *Catalog) Lookup(part string) (Entry, error) {
	entry, ok := p.parts[part]
	if !ok {
		return Entry{}, fmt.Errorf("unknown part %q", part)
	}
	// Done
	return entry, nil
}

// Parts returns every known part, sorted.
func (p *Catalog) Parts() []string {
	parts := make([]string, 0, len(p.parts))

	for part := range p.parts {
		parts = append(parts, part)
	}

	sort.Strings(parts)
	// Done
	return parts
}

// Devices returns every known device, sorted.
func (p *Catalog) Devices() []string {
	seen := make(map[string]bool)

	for _, entry := range p.parts {
		seen[entry.Device] = true
	}

	devices := make([]string, 0, len(seen))

	for device := range seen {
		devices = append(devices, device)
	}

	sort.Strings(devices)
	// Done
	return devices
}

// PartsOf returns the parts of one device, sorted.
func (p *Catalog) PartsOf(device string) []string {
	var parts []string

	for part, entry := range p.parts {
		if entry.Device == device {
			parts = append(parts, part)
		}
	}

	sort.Strings(parts)
	// Done
	return parts
}

// RepresentativePart picks the part used to characterize a device.  All
// parts of a device share a bitstream layout, so the first in sorted order
// serves; the choice only has to be stable.
func (p *Catalog) RepresentativePart(device string) (string, error) {
	parts := p.PartsOf(device)
	if len(parts) == 0 {
		return "", fmt.Errorf("no parts known for device %q", device)
	}
	// Done
	return parts[0], nil
}

// Intersect keeps only the parts also present in the other catalog.  The
// vendor publishes a second catalog of parts usable without a paid license;
// intersecting against it restricts a campaign to license-free parts.
func (p *Catalog) Intersect(other *Catalog) *Catalog {
	kept := &Catalog{parts: make(map[string]Entry)}

	for part, entry := range p.parts {
		if _, ok := other.parts[part]; ok {
			kept.parts[part] = entry
		}
	}
	// Done
	return kept
}

// SmallestPart picks the part of a family with the fewest LUTs, breaking
// ties in sorted order.  Architecture sweeps run on the smallest part to
// keep tool runtimes down; the size of a part comes from its device summary,
// so the caller supplies the counts.
func (p *Catalog) SmallestPart(family arch.Name, numLuts map[string]uint) (string, error) {
	best := ""

	for _, part := range p.Parts() {
		if p.parts[part].Arch != family {
			continue
		}

		size, ok := numLuts[part]
		if !ok {
			return "", fmt.Errorf("no LUT count known for part %q", part)
		}

		if best == "" || size < numLuts[best] {
			best = part
		}
	}

	if best == "" {
		return "", fmt.Errorf("no parts known for architecture %v", family)
	}
	// Done
	return best, nil
}

// LoadGeometry reads a geometry introspection dump and normalizes it into
// canonical enumeration order.
func LoadGeometry(filename string) (*geom.Device, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var device geom.Device

	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("malformed geometry dump: %w", err)
	}

	device.Normalize()
	// Done
	return &device, nil
}
