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

// Package verify checks reverse-engineered encodings against ground truth: it
// reconstructs the initialization values of a design's resources from a
// decoded bitstream using the summaries, and compares them with the values
// the design declared.
package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
	"github.com/epfl-vlsc/bitfiltrator/pkg/resource"
	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
)

// BramInit is the declared initialization of one 18K block RAM.
type BramInit struct {
	Content string `json:"content"`
	Parity  string `json:"parity"`
}

// DesignInfo is the side file emitted alongside a generated design: every
// initialized resource and the value it was given, as sized Verilog literals.
type DesignInfo struct {
	Part  string              `json:"part"`
	Luts  map[string]string   `json:"luts,omitempty"`
	Regs  map[string]string   `json:"regs,omitempty"`
	Brams map[string]BramInit `json:"brams,omitempty"`
}

// LoadDesignInfo reads a design info file.
func LoadDesignInfo(filename string) (*DesignInfo, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var info DesignInfo

	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("malformed design info: %w", err)
	}
	// Done
	return &info, nil
}

// Save writes the design info to a JSON file.
func (p *DesignInfo) Save(filename string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	// Done
	return os.WriteFile(filename, append(data, '\n'), 0644)
}

// Mismatch is one bit whose reconstructed value disagrees with the design.
type Mismatch struct {
	Resource string
	Bit      uint
	Expected uint8
	Actual   uint8
}

func (p Mismatch) String() string {
	return fmt.Sprintf("%s bit %d: expected %d, decoded %d", p.Resource, p.Bit, p.Expected, p.Actual)
}

// MismatchError reports a verification that found disagreeing bits.
type MismatchError struct {
	Count uint
	First Mismatch
}

func (p *MismatchError) Error() string {
	return fmt.Sprintf("%d bits disagree with the design, first: %v", p.Count, p.First)
}

// Report is the outcome of verifying one design.
type Report struct {
	Checked    uint
	Mismatches []Mismatch
}

// Err returns nil for a clean report and a MismatchError otherwise.
func (p *Report) Err() error {
	if len(p.Mismatches) == 0 {
		return nil
	}
	// Done
	return &MismatchError{Count: uint(len(p.Mismatches)), First: p.Mismatches[0]}
}

// Verifier reconstructs resource values from a decoded frame matrix.
type Verifier struct {
	device  *summary.Device
	locator *summary.Locator
	frames  *bitstream.FrameSet
}

// New returns a verifier over the given summaries and frames.
func New(device *summary.Device, locator *summary.Locator, frames *bitstream.FrameSet) *Verifier {
	return &Verifier{device: device, locator: locator, frames: frames}
}

// Run verifies every resource the design declares.  Resources are visited in
// name order so reports are stable.
func (p *Verifier) Run(info *DesignInfo) (*Report, error) {
	report := &Report{}

	for _, name := range sortedKeys(info.Regs) {
		if err := p.checkReg(report, name, info.Regs[name]); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(info.Luts) {
		if err := p.checkLut(report, name, info.Luts[name]); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(info.Brams) {
		if err := p.checkBram(report, name, info.Brams[name]); err != nil {
			return nil, err
		}
	}
	// Done
	return report, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))

	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	// Done
	return keys
}

func (p *Verifier) checkReg(report *Report, name string, init string) error {
	expected, err := resource.ParseVerilogLiteral(init)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	loc, err := p.locator.LocateReg(name)
	if err != nil {
		return err
	}

	actual, err := p.readBit(loc.SLRName, loc.Addr, loc.FrameOfst)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	if loc.Inverted {
		actual ^= 1
	}

	report.check(name, 0, expected[0]&1, actual)
	// Done
	return nil
}

func (p *Verifier) checkLut(report *Report, name string, init string) error {
	expected, err := resource.ParseVerilogLiteral(init)
	if err != nil {
		return fmt.Errorf("LUT %s: %w", name, err)
	}

	if len(expected)*8 != resource.LutBits {
		return fmt.Errorf("LUT %s declares %d init bits, expected %d", name, len(expected)*8, resource.LutBits)
	}

	loc, err := p.locator.LocateLut(name)
	if err != nil {
		return err
	}
	// Done
	return p.checkMulti(report, name, loc, expected)
}

func (p *Verifier) checkBram(report *Report, name string, init BramInit) error {
	content, err := resource.ParseVerilogLiteral(init.Content)
	if err != nil {
		return fmt.Errorf("block RAM %s content: %w", name, err)
	}

	parity, err := resource.ParseVerilogLiteral(init.Parity)
	if err != nil {
		return fmt.Errorf("block RAM %s parity: %w", name, err)
	}

	memLoc, parityLoc, err := p.locator.LocateBram(name)
	if err != nil {
		return err
	}

	if err := p.checkMulti(report, name, memLoc, content); err != nil {
		return err
	}
	// Done
	return p.checkMulti(report, name+"/parity", parityLoc, parity)
}

func (p *Verifier) checkMulti(report *Report, name string, loc summary.MultiLocation, expected []byte) error {
	if len(loc.Addrs) != len(expected)*8 {
		return fmt.Errorf("%s declares %d bits but its encoding covers %d", name, len(expected)*8, len(loc.Addrs))
	}

	for i := range loc.Addrs {
		actual, err := p.readBit(loc.SLRName, loc.Addrs[i], loc.FrameOfsts[i])
		if err != nil {
			return fmt.Errorf("%s bit %d: %w", name, i, err)
		}

		report.check(name, uint(i), expected[i/8]>>(i%8)&1, actual)
	}
	// Done
	return nil
}

func (p *Verifier) readBit(slrName string, addr arch.FrameAddress, ofst uint) (uint8, error) {
	slr := p.device.SLRs[slrName]
	if slr == nil {
		return 0, fmt.Errorf("unknown SLR %s", slrName)
	}

	frames := p.frames.Frames(uint32(slr.IDCode), addr)
	if len(frames) != 1 {
		return 0, fmt.Errorf("bitstream holds %d frames at {%v} in SLR %s", len(frames), addr, slrName)
	}
	// Done
	return frames[0].Bit(ofst)
}

func (p *Report) check(resource string, bit uint, expected uint8, actual uint8) {
	p.Checked++

	if expected != actual {
		p.Mismatches = append(p.Mismatches, Mismatch{
			Resource: resource,
			Bit:      bit,
			Expected: expected,
			Actual:   actual,
		})
	}
}
