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

	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
	"github.com/epfl-vlsc/bitfiltrator/pkg/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] bitstream_file design_info_file",
	Short: "check a design's initial values against its bitstream.",
	Long: `Locate every LUT equation, register init and block RAM content of
	a design inside its bitstream and check the stored bits against the
	design's declared initial values.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		spec := getFamily(cmd)
		device := readDeviceSummary(getString(cmd, "device"))
		archsum := readArchSummary(getString(cmd, "arch"))
		// Decode the bitstream
		frames := extractFrames(readBitstreamFile(args[0]), spec, device)
		// Load the design
		info, err := verify.LoadDesignInfo(args[1])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		// Verify
		locator := summary.NewLocator(device, archsum, spec)
		verifier := verify.New(device, locator, frames)

		report, err := verifier.Run(info)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		for _, mismatch := range report.Mismatches {
			fmt.Printf("%v\n", mismatch)
		}

		fmt.Printf("%d bits checked, %d mismatches\n", report.Checked, len(report.Mismatches))

		if report.Err() != nil {
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("device", "", "Device summary file")
	verifyCmd.Flags().String("arch", "", "Architecture summary file")
	verifyCmd.Flags().String("family", "ultrascale", "Architecture family (ultrascale, ultrascale+)")
}
