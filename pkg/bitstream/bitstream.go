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
package bitstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
)

// Bitstream is a decoded .bit file: its text header plus every configuration
// packet found in the data section.  NOOP packets are dropped during decode
// as they are just noise.
type Bitstream struct {
	Header  Header
	Packets []Packet
}

// FromFile reads and decodes a bitstream file.  Files with a ".gz" suffix are
// decompressed in memory first.
func FromFile(path string) (*Bitstream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()

		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Done
	return FromBytes(data)
}

// FromBytes decodes a bitstream from its raw file contents.
func FromBytes(data []byte) (*Bitstream, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	packets, err := decodeAllPackets(data, hdr.DataOffset)
	if err != nil {
		return nil, err
	}

	log.Debugf("decoded %d packets from bitstream for part %s", len(packets), hdr.Part)
	// Done
	return &Bitstream{Header: hdr, Packets: packets}, nil
}

// IsCompressed reports whether the bitstream was generated with frame
// compression (BITSTREAM.GENERAL.COMPRESS).
func (p *Bitstream) IsCompressed() bool {
	return p.Header.Option("COMPRESS") == "TRUE"
}

// IsPartial reports whether this is a partial reconfiguration bitstream.
func (p *Bitstream) IsPartial() bool {
	return p.Header.Option("PARTIAL") == "TRUE"
}

// IsEncrypted reports whether the bitstream is encrypted
// (BITSTREAM.ENCRYPTION.ENCRYPT).  Encrypted bitstreams cannot be analysed.
func (p *Bitstream) IsEncrypted() bool {
	return p.Header.Option("ENCRYPT") == "YES"
}

// HasCRC reports whether any CRC register write exists.
func (p *Bitstream) HasCRC() bool {
	for i := range p.Packets {
		if p.Packets[i].IsWrite(RegCRC) {
			return true
		}
	}
	// Done
	return false
}

// IDCodes returns every IDCODE written in the bitstream, in order of first
// appearance.  Multi-SLR devices write one IDCODE per die.
func (p *Bitstream) IDCodes() []uint32 {
	var codes []uint32

	seen := make(map[uint32]bool)

	for i := range p.Packets {
		pkt := &p.Packets[i]
		if pkt.IsWrite(RegIDCODE) && len(pkt.Data) == 1 && !seen[pkt.Data[0]] {
			seen[pkt.Data[0]] = true
			codes = append(codes, pkt.Data[0])
		}
	}
	// Done
	return codes
}

// IsPerFrameCRC reports whether the bitstream writes every frame individually
// to FDRI with a CRC packet after each write.  Frame extraction does not
// support this mode since the FAR auto-increment behaviour across the
// interleaved CRC writes is not observable.
func (p *Bitstream) IsPerFrameCRC(frameWords uint) bool {
	crcSinceFDRI := false
	sawFDRI := false

	for i := range p.Packets {
		pkt := &p.Packets[i]

		switch {
		case pkt.IsWrite(RegFDRI) && len(pkt.Data) > 0:
			if uint(len(pkt.Data)) != frameWords {
				return false
			}
			// Every FDRI write after the first must have seen a CRC in between.
			if sawFDRI && !crcSinceFDRI {
				return false
			}

			sawFDRI = true
			crcSinceFDRI = false
		case pkt.IsWrite(RegCRC):
			crcSinceFDRI = true
		}
	}
	// The final FDRI write needs a trailing CRC too.
	return sawFDRI && crcSinceFDRI
}

// findSyncOffsets scans for the sync word at every byte alignment.  Not all
// hits are true region starts: the sync pattern can occur inside an FDRI
// payload, so callers must skip offsets that fall inside decoded packets.
func findSyncOffsets(data []byte) []int {
	var ofsts []int

	for i := 0; i+4 <= len(data); i++ {
		if binary.BigEndian.Uint32(data[i:]) == SyncWord {
			ofsts = append(ofsts, i)
		}
	}
	// Done
	return ofsts
}

func nextSyncOffset(ofsts []int, min int) (int, bool) {
	for _, ofst := range ofsts {
		if ofst >= min {
			return ofst, true
		}
	}
	// Done
	return 0, false
}

// wordsAt views data[ofst:] as big-endian 32-bit words, truncating any
// trailing partial word.
func wordsAt(data []byte, ofst int) []uint32 {
	n := (len(data) - ofst) / 4
	words := make([]uint32, n)

	for i := 0; i < n; i++ {
		words[i] = binary.BigEndian.Uint32(data[ofst+i*4:])
	}
	// Done
	return words
}

// decodeRegion decodes packets starting just after a sync word until a DESYNC
// command is seen.  Byte offsets in the returned packets are relative to the
// word array's base offset.
func decodeRegion(words []uint32, baseByteOfst int) ([]Packet, error) {
	var (
		packets     []Packet
		currentReg  Register
		haveReg     bool
		wordOfst    int
		desyncFound bool
	)

	for !desyncFound {
		if wordOfst >= len(words) {
			return nil, fmt.Errorf("ran past end of bitstream at byte ofst 0x%08x without finding DESYNC", baseByteOfst+wordOfst*4)
		}

		pkt, ok := decodePacket(words, wordOfst, baseByteOfst+wordOfst*4, currentReg, haveReg)
		if !ok {
			// Sync/dummy words and zero padding are skipped one word at a time.
			wordOfst++
			continue
		}

		if pkt.Type == Type1 {
			currentReg = pkt.Reg
			haveReg = true
		}

		if pkt.IsCommand(CmdDesync) {
			desyncFound = true
		}

		if !pkt.IsNoop() {
			packets = append(packets, pkt)
		}

		wordOfst += pkt.SizeWords()
	}
	// Done
	return packets, nil
}

// decodeAllPackets decodes every packet region in the bitstream data,
// including discontinuous regions separated by large gaps as found on
// multi-SLR devices.
func decodeAllPackets(data []byte, dataOfst int) ([]Packet, error) {
	syncOfsts := findSyncOffsets(data[dataOfst:])
	if len(syncOfsts) == 0 {
		return nil, fmt.Errorf("no sync word found in bitstream data")
	}

	for i := range syncOfsts {
		syncOfsts[i] += dataOfst
	}

	var packets []Packet

	current := syncOfsts[0]

	for {
		// The region starts at the sync word itself; everything from here on is
		// word-aligned.
		regionPackets, err := decodeRegion(wordsAt(data, current), current)
		if err != nil {
			return nil, err
		}

		packets = append(packets, regionPackets...)
		// Look for the next sync word after the DESYNC boundary, skipping any
		// sync patterns that occurred inside this region's payloads.
		boundary := &regionPackets[len(regionPackets)-1]
		after := boundary.ByteOffset + boundary.SizeBytes()

		next, ok := nextSyncOffset(syncOfsts, after)
		if !ok {
			break
		}

		current = next
	}
	// Done
	return packets, nil
}
