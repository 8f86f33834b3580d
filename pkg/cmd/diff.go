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

	"github.com/epfl-vlsc/bitfiltrator/pkg/diff"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var diffCmd = &cobra.Command{
	Use:   "diff [flags] baseline_file variant_file",
	Short: "compare two bitstreams of the same design frame by frame.",
	Long: `Compare two bitstreams of the same device frame by frame and
	print every configuration bit that differs.  Both bitstreams must
	write the same frame addresses; structural differences abort the
	comparison.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		oneHot := getFlag(cmd, "one-hot")
		spec := getFamily(cmd)
		device := readDeviceSummary(getString(cmd, "device"))
		// Decode both bitstreams
		baseline := extractFrames(readBitstreamFile(args[0]), spec, device)
		variant := extractFrames(readBitstreamFile(args[1]), spec, device)
		// Compare
		flips, err := diff.Compare(baseline, variant)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		// Check for a single isolated bit (if requested)
		if oneHot {
			flip, err := diff.OneHot(flips)
			if err != nil {
				fmt.Println(err)
				os.Exit(2)
			}

			fmt.Printf("%v\n", flip)
			return
		}
		// On a terminal, cap the listing at one screen and tally the rest.
		limit := len(flips)

		if term.IsTerminal(0) {
			if _, height, err := term.GetSize(0); err == nil && len(flips) > height-2 {
				limit = height - 2
			}
		}

		for i := 0; i < limit; i++ {
			fmt.Printf("%v\n", flips[i])
		}

		if limit < len(flips) {
			fmt.Printf("... and %d more\n", len(flips)-limit)
		}

		fmt.Printf("%d flipped bits\n", len(flips))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().Bool("one-hot", false, "Require exactly one flipped bit and print it")
	diffCmd.Flags().String("device", "", "Device summary file")
	diffCmd.Flags().String("family", "ultrascale", "Architecture family (ultrascale, ultrascale+)")
}
