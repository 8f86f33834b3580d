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
	"fmt"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

// Configuration words with special meaning (UG570).
const (
	// SyncWord marks the start of a packet region.
	SyncWord uint32 = 0xaa995566
	// DummyWord pads the space between regions.
	DummyWord uint32 = 0xffffffff
	// At the end of a row there are two frames of zero padding before the
	// next row's data starts.
	endOfRowPaddingFrames = 2
)

// PacketType distinguishes the two packet header encodings (UG570 table
// 9-16/9-18).
type PacketType uint8

const (
	// Type1 packets carry a register address and a small word count.
	Type1 PacketType = 1
	// Type2 packets extend the previous type-1 packet with a large payload.
	Type2 PacketType = 2
)

// Opcode is the packet operation field (UG570 table 9-17).
type Opcode uint8

const (
	OpNoop Opcode = iota
	OpRead
	OpWrite
	OpReserved
)

// Register addresses the configuration logic registers (UG570 table 9-19).
// Addresses with no documented name are reserved.
type Register uint8

const (
	RegCRC     Register = 0
	RegFAR     Register = 1
	RegFDRI    Register = 2
	RegFDRO    Register = 3
	RegCMD     Register = 4
	RegCTL0    Register = 5
	RegMASK    Register = 6
	RegSTAT    Register = 7
	RegLOUT    Register = 8
	RegCOR0    Register = 9
	RegMFWR    Register = 10
	RegCBC     Register = 11
	RegIDCODE  Register = 12
	RegAXSS    Register = 13
	RegCOR1    Register = 14
	RegWBSTAR  Register = 16
	RegTIMER   Register = 17
	RegBOOTSTS Register = 22
	RegCTL1    Register = 24
	// RegSinkhole (reserved address 30) always precedes a bogus type-2
	// packet whose payload is immediately followed by dummy padding and a
	// fresh sync word.  The type-2 packet carries no valid data.
	RegSinkhole Register = 30
	RegBSPI     Register = 31
)

// Command enumerates writes to the CMD register (UG570 table 9-22).
type Command uint32

const (
	CmdNull       Command = 0
	CmdWCFG       Command = 1
	CmdMFW        Command = 2
	CmdDGHighLFrm Command = 3
	CmdRCFG       Command = 4
	CmdStart      Command = 5
	CmdURAM       Command = 6
	CmdRCRC       Command = 7
	CmdAGHigh     Command = 8
	CmdSwitch     Command = 9
	CmdGRestore   Command = 10
	CmdShutdown   Command = 11
	CmdDesync     Command = 13
	CmdIProg      Command = 15
	CmdCRCC       Command = 16
	CmdLTimer     Command = 17
	CmdBSPIRead   Command = 18
	CmdFallEdge   Command = 19
)

// Packet is one decoded configuration packet.  Type-2 packets inherit the
// register address of the type-1 packet that preceded them.
type Packet struct {
	// Byte offset of the packet header within the bitstream file.
	ByteOffset int
	Type       PacketType
	Op         Opcode
	Reg        Register
	// Payload words.  Empty for placeholder type-1 packets announcing a
	// type-2 payload.
	Data []uint32
}

// SizeWords returns the total packet size including its header word.
func (p *Packet) SizeWords() int {
	return 1 + len(p.Data)
}

// SizeBytes returns the total packet size in bytes.
func (p *Packet) SizeBytes() int {
	return p.SizeWords() * 4
}

// DataByteOffset returns the byte offset of the payload within the bitstream.
func (p *Packet) DataByteOffset() int {
	return p.ByteOffset + 4
}

// IsNoop reports whether this is a NOOP packet.
func (p *Packet) IsNoop() bool {
	return p.Op == OpNoop
}

// IsWrite reports whether this packet writes the given register.
func (p *Packet) IsWrite(reg Register) bool {
	return p.Op == OpWrite && p.Reg == reg
}

// IsCommand reports whether this packet writes the given command to CMD.
func (p *Packet) IsCommand(cmd Command) bool {
	return p.IsWrite(RegCMD) && len(p.Data) == 1 && Command(p.Data[0]) == cmd
}

func (p *Packet) String() string {
	return fmt.Sprintf("BYTE_OFST = 0x%08x, TYPE = %d, OP = %d, REG = %d, WORDS = %d",
		p.ByteOffset, p.Type, p.Op, p.Reg, len(p.Data))
}

// decodePacket attempts to decode one packet from words[ofst:].  prevReg is
// the register address of the last type-1 packet, inherited by type-2
// packets.  Decoding fails (ok == false) on sync/dummy words and on zero
// padding, in which case the caller should skip one word and retry.
func decodePacket(words []uint32, ofst int, byteOfst int, prevReg Register, havePrevReg bool) (Packet, bool) {
	header := words[ofst]

	if header == SyncWord || header == DummyWord || header == 0 {
		return Packet{}, false
	}

	ptype := PacketType(arch.Bits(header, 31, 29))
	op := Opcode(arch.Bits(header, 28, 27))

	var (
		reg       Register
		wordCount int
	)

	switch ptype {
	case Type1:
		reg = Register(arch.Bits(header, 26, 13))
		wordCount = int(arch.Bits(header, 10, 0))
	case Type2:
		// A type-2 packet without a preceding type-1 packet is not a packet.
		if !havePrevReg {
			return Packet{}, false
		}

		reg = prevReg
		wordCount = int(arch.Bits(header, 26, 0))
		// The type-2 write following a type-1 write to the sinkhole register
		// advertises a word count that extends into the next SLR's data.  It
		// has no payload.
		if op == OpWrite && reg == RegSinkhole {
			wordCount = 0
		}
	default:
		return Packet{}, false
	}

	if ofst+1+wordCount > len(words) {
		return Packet{}, false
	}

	pkt := Packet{
		ByteOffset: byteOfst,
		Type:       ptype,
		Op:         op,
		Reg:        reg,
		Data:       words[ofst+1 : ofst+1+wordCount],
	}
	// Done
	return pkt, true
}
