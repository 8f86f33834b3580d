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
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// The .bit container opens with a text header in length-value form for the
// first three fields, then tag-length-value for the rest.  Field 3 carries the
// design name plus ";"-separated key=value options, fields 4-6 carry part,
// date and time as NUL-terminated strings, and field 7's value is the raw
// configuration data itself.
var (
	headerField1Value = []byte{0x0f, 0xf0, 0x0f, 0xf0, 0x0f, 0xf0, 0x0f, 0xf0, 0x00}
	headerField2Value = []byte{0x61}
)

const (
	headerTagPart = 0x62
	headerTagDate = 0x63
	headerTagTime = 0x64
	headerTagData = 0x65
)

// Header holds the decoded text header of a bitstream file.
type Header struct {
	// Design name (first element of field 3).
	Design string
	// Key=value options from field 3 (COMPRESS, VERSION, ...).
	Options map[string]string
	// FPGA part name, e.g. "xcau10p-ffvb676-1-i".
	Part string
	// Generation date and time as emitted by the tool.
	Date string
	Time string
	// Byte offset of the configuration data within the file.
	DataOffset int
}

// Option returns the named header option, or "" if absent.
func (p *Header) Option(key string) string {
	return p.Options[key]
}

func readLengthValue(buf *bytes.Reader, lengthLen int) ([]byte, error) {
	var n uint32

	switch lengthLen {
	case 2:
		var n16 uint16
		if err := binary.Read(buf, binary.BigEndian, &n16); err != nil {
			return nil, err
		}

		n = uint32(n16)
	case 4:
		if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported length width %d", lengthLen)
	}
	// Read value bytes
	value := make([]byte, n)
	if _, err := buf.Read(value); err != nil {
		return nil, err
	}
	// Done
	return value, nil
}

func readTagged(buf *bytes.Reader, tag byte, lengthLen int) ([]byte, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}

	if b != tag {
		return nil, fmt.Errorf("unexpected header tag 0x%02x (expected 0x%02x)", b, tag)
	}
	// Done
	return readLengthValue(buf, lengthLen)
}

func stripNul(value []byte) (string, error) {
	if len(value) == 0 || value[len(value)-1] != 0 {
		return "", fmt.Errorf("expected NUL-terminated header string, got %q", value)
	}
	// Done
	return string(value[:len(value)-1]), nil
}

// parseHeader decodes the text header at the start of a bitstream file.
func parseHeader(data []byte) (Header, error) {
	var empty Header
	//
	buf := bytes.NewReader(data)
	// Field 1: fixed magic preamble.
	field1, err := readLengthValue(buf, 2)
	if err != nil {
		return empty, err
	}

	if !bytes.Equal(field1, headerField1Value) {
		return empty, fmt.Errorf("unexpected header preamble %x", field1)
	}
	// Field 2: the single letter "a".
	field2, err := readLengthValue(buf, 2)
	if err != nil {
		return empty, err
	}

	if !bytes.Equal(field2, headerField2Value) {
		return empty, fmt.Errorf("unexpected header key %x", field2)
	}
	// Field 3: design name and options.
	field3, err := readLengthValue(buf, 2)
	if err != nil {
		return empty, err
	}

	nameAndOptions, err := stripNul(field3)
	if err != nil {
		return empty, err
	}

	elements := strings.Split(nameAndOptions, ";")
	options := make(map[string]string)

	for _, element := range elements[1:] {
		k, v, ok := strings.Cut(element, "=")
		if !ok {
			return empty, fmt.Errorf("malformed header option %q", element)
		}

		options[k] = v
	}
	// Fields 4-6: part, date, time.
	part, err := readTagged(buf, headerTagPart, 2)
	if err != nil {
		return empty, err
	}

	date, err := readTagged(buf, headerTagDate, 2)
	if err != nil {
		return empty, err
	}

	timeOfDay, err := readTagged(buf, headerTagTime, 2)
	if err != nil {
		return empty, err
	}
	// Field 7: the tag and length precede the configuration data itself.
	if b, err := buf.ReadByte(); err != nil || b != headerTagData {
		return empty, fmt.Errorf("missing bitstream data field (tag 0x%02x, err %v)", b, err)
	}

	var dataLen uint32
	if err := binary.Read(buf, binary.BigEndian, &dataLen); err != nil {
		return empty, err
	}

	hdr := Header{
		Design:     elements[0],
		Options:    options,
		DataOffset: len(data) - buf.Len(),
	}

	if hdr.Part, err = stripNul(part); err != nil {
		return empty, err
	}

	if hdr.Date, err = stripNul(date); err != nil {
		return empty, err
	}

	if hdr.Time, err = stripNul(timeOfDay); err != nil {
		return empty, err
	}
	// Done
	return hdr, nil
}
