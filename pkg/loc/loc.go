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

// Package loc parses logic-location (.ll) side tables.  A logic-location file
// maps placed cells to (frame address, frame offset) pairs and is emitted by
// the CAD backend alongside a bitstream; the sweep engine also emits the same
// format for mappings it derives itself, marking those lines with a bit
// offset of -1.
package loc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies the resource a bit line refers to.
type Kind uint8

const (
	// Reg is a flip-flop init bit (Latch=XQ info).
	Reg Kind = iota
	// Lutram is a distributed-RAM LUT bit (Ram=X:nn or Rom=X:nn).
	Lutram
	// Lut is a LUT equation bit (custom Lut=X:nn lines, not emitted by the
	// vendor tool).
	Lut
	// BramReg is a block-RAM output register bit (Latch=DOxUnn).
	BramReg
	// BramMem is a block-RAM content bit (RAM=B:BITnn).
	BramMem
	// BramParity is a block-RAM parity bit (RAM=B:PARBITnn).
	BramParity
)

func (k Kind) String() string {
	switch k {
	case Reg:
		return "RegLoc"
	case Lutram:
		return "LutramLoc"
	case Lut:
		return "LutLoc"
	case BramReg:
		return "BramRegLoc"
	case BramMem:
		return "BramMemLoc"
	case BramParity:
		return "BramMemParityLoc"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Bit is one decoded "Bit" line.
type Bit struct {
	// Absolute bit offset in the bitstream, or -1 for derived lines.
	Offset int64
	// Raw frame address word.
	FrameAddr uint32
	// Bit offset within the frame.
	FrameOfst uint
	SLRName   string
	SLRNumber int
	// Full block name, e.g. "SLICE_X53Y0" or "RAMB36_X2Y0".
	Block  string
	BlockX int
	BlockY int
	Kind   Kind
	// BEL identity within the block: register name ("AFF", "BFF2"), LUT or
	// LUTRAM letter ("A".."H"), or BRAM latch name.
	Bel string
	// Bit index within the resource's init word, where applicable.
	BitIndex int
	// Connected net name, for register lines.
	Net string
}

// File is a parsed logic-location file.  Lines other than "Bit" lines are
// ignored.
type File struct {
	Bits []Bit
}

var (
	bitLineRegex = regexp.MustCompile(`^Bit\s+(-?\d+)\s+0x([0-9a-fA-F]+)\s+(\d+)\s+(\w+)\s+(\d+)\s+(.*)$`)
	blockRegex   = regexp.MustCompile(`^.*_X(\d+)Y(\d+)$`)
	latchRegex   = regexp.MustCompile(`^([A-H])Q(2?)$`)
	memRegex     = regexp.MustCompile(`^([A-H]):(\d+)$`)
	bramBitRegex = regexp.MustCompile(`^B:(PAR)?BIT(\d+)$`)
)

// Parse reads a logic-location file from r.
func Parse(r io.Reader) (*File, error) {
	var file File

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if !strings.HasPrefix(line, "Bit") {
			continue
		}

		bit, err := parseBitLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		file.Bits = append(file.Bits, bit)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// Done
	return &file, nil
}

// ParseFile reads a logic-location file from disk.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// Done
	return Parse(f)
}

func parseBitLine(line string) (Bit, error) {
	var bit Bit

	m := bitLineRegex.FindStringSubmatch(line)
	if m == nil {
		return bit, fmt.Errorf("unrecognized bit line %q", line)
	}

	offset, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return bit, err
	}

	frameAddr, err := strconv.ParseUint(m[2], 16, 32)
	if err != nil {
		return bit, err
	}

	frameOfst, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return bit, err
	}

	slrNumber, err := strconv.Atoi(m[5])
	if err != nil {
		return bit, err
	}

	bit.Offset = offset
	bit.FrameAddr = uint32(frameAddr)
	bit.FrameOfst = uint(frameOfst)
	bit.SLRName = m[4]
	bit.SLRNumber = slrNumber
	// The info region is a series of key=value pairs separated by whitespace.
	info := make(map[string]string)

	for _, pair := range strings.Fields(m[6]) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return bit, fmt.Errorf("malformed info pair %q", pair)
		}

		info[k] = v
	}

	block, ok := info["Block"]
	if !ok {
		return bit, fmt.Errorf("bit line without Block key: %q", line)
	}

	bm := blockRegex.FindStringSubmatch(block)
	if bm == nil {
		return bit, fmt.Errorf("unrecognized block name %q", block)
	}

	bit.Block = block
	bit.BlockX, _ = strconv.Atoi(bm[1])
	bit.BlockY, _ = strconv.Atoi(bm[2])

	switch {
	case strings.HasPrefix(block, "SLICE"):
		err = classifySlice(&bit, info)
	case strings.HasPrefix(block, "RAMB"):
		err = classifyBram(&bit, info)
	default:
		err = fmt.Errorf("unknown block type in %q", block)
	}

	if err != nil {
		return bit, err
	}
	// Done
	return bit, nil
}

func classifySlice(bit *Bit, info map[string]string) error {
	if latch, ok := info["Latch"]; ok {
		m := latchRegex.FindStringSubmatch(latch)
		if m == nil {
			return fmt.Errorf("unrecognized latch name %q", latch)
		}
		// The vendor tool names registers "<letter>FF<num>".
		bit.Kind = Reg
		bit.Bel = m[1] + "FF" + m[2]
		bit.Net = info["Net"]

		return nil
	}

	mem, ok := info["Ram"]
	kind := Lutram

	if !ok {
		mem, ok = info["Rom"]
	}

	if !ok {
		mem, ok = info["Lut"]
		kind = Lut
	}

	if !ok {
		return fmt.Errorf("slice bit is neither register, LUTRAM, nor LUT")
	}

	m := memRegex.FindStringSubmatch(mem)
	if m == nil {
		return fmt.Errorf("unrecognized memory id %q", mem)
	}

	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return err
	}

	bit.Kind = kind
	bit.Bel = m[1]
	bit.BitIndex = idx
	// Done
	return nil
}

func classifyBram(bit *Bit, info map[string]string) error {
	if ram, ok := info["RAM"]; ok {
		m := bramBitRegex.FindStringSubmatch(ram)
		if m == nil {
			return fmt.Errorf("unrecognized BRAM bit id %q", ram)
		}

		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return err
		}

		if m[1] == "PAR" {
			bit.Kind = BramParity
		} else {
			bit.Kind = BramMem
		}

		bit.BitIndex = idx

		return nil
	}

	if latch, ok := info["Latch"]; ok {
		bit.Kind = BramReg
		bit.Bel = latch
		bit.Net = info["Net"]

		return nil
	}
	// Done
	return fmt.Errorf("BRAM bit is neither content nor output register")
}

// FormatBit renders a bit back into its line form.  Derived lines (offset -1)
// use the Lut info key, matching what the sweep engine emits.
func FormatBit(bit Bit) string {
	var info string

	switch bit.Kind {
	case Reg:
		latch := strings.Replace(bit.Bel, "FF", "Q", 1)
		info = fmt.Sprintf("Block=%s Latch=%s Net=%s", bit.Block, latch, bit.Net)
	case Lut:
		info = fmt.Sprintf("Block=%s Lut=%s:%d", bit.Block, bit.Bel, bit.BitIndex)
	case Lutram:
		info = fmt.Sprintf("Block=%s Ram=%s:%d", bit.Block, bit.Bel, bit.BitIndex)
	case BramMem:
		info = fmt.Sprintf("Block=%s RAM=B:BIT%d", bit.Block, bit.BitIndex)
	case BramParity:
		info = fmt.Sprintf("Block=%s RAM=B:PARBIT%d", bit.Block, bit.BitIndex)
	default:
		info = fmt.Sprintf("Block=%s Latch=%s Net=%s", bit.Block, bit.Bel, bit.Net)
	}
	// Done
	return fmt.Sprintf("Bit %10d 0x%08x %4d %s %d %s",
		bit.Offset, bit.FrameAddr, bit.FrameOfst, bit.SLRName, bit.SLRNumber, info)
}
