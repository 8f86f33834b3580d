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
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] bitstream_file",
	Short: "decode a bitstream and print its contents.",
	Long: `Decode a bitstream file and print its header, its configuration
	packets, or its configuration frames.  Printing frames requires a
	device summary to resolve frame addresses.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		packets := getFlag(cmd, "packets")
		frames := getFlag(cmd, "frames")
		// Decode the bitstream
		bs := readBitstreamFile(args[0])
		// Print header
		fmt.Printf("design:     %s\n", bs.Header.Design)
		fmt.Printf("part:       %s\n", bs.Header.Part)
		fmt.Printf("generated:  %s %s\n", bs.Header.Date, bs.Header.Time)
		fmt.Printf("compressed: %t\n", bs.IsCompressed())
		fmt.Printf("partial:    %t\n", bs.IsPartial())
		fmt.Printf("crc:        %t\n", bs.HasCRC())

		for _, idcode := range bs.IDCodes() {
			fmt.Printf("idcode:     0x%08x\n", idcode)
		}
		// Print packets (if requested)
		if packets {
			for i := range bs.Packets {
				p := &bs.Packets[i]
				fmt.Printf("0x%08x: %v\n", p.DataByteOffset(), p)
			}
		}
		// Print frames (if requested)
		if frames {
			spec := getFamily(cmd)
			device := readDeviceSummary(getString(cmd, "device"))
			set := extractFrames(bs, spec, device)

			for _, idcode := range set.IDCodes() {
				addrs := set.Addresses(idcode)
				fmt.Printf("idcode 0x%08x: %d frames\n", idcode, len(addrs))

				for _, addr := range addrs {
					for _, frame := range set.Frames(idcode, addr) {
						fmt.Printf("  %v @ byte 0x%08x\n", addr, frame.ByteOffset)
					}
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("packets", false, "Print every configuration packet")
	parseCmd.Flags().Bool("frames", false, "Print every configuration frame (requires --device)")
	parseCmd.Flags().String("device", "", "Device summary file")
	parseCmd.Flags().String("family", "ultrascale", "Architecture family (ultrascale, ultrascale+)")
}
