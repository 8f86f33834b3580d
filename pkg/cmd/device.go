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

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/backend"
	"github.com/epfl-vlsc/bitfiltrator/pkg/geom"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device [flags] geometry_file",
	Short: "inspect an introspected device geometry.",
	Long: `Load a device geometry dump produced by the vendor tool
	introspection scripts, check its per-column site counts against the
	family's published values, and print its structure.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		check := getFlag(cmd, "check")
		sites := getFlag(cmd, "sites")
		// Load and normalize the geometry
		device, err := backend.LoadGeometry(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		fmt.Printf("part: %s\n", device.Part)

		for s := range device.SLRs {
			slr := &device.SLRs[s]
			regions := 0

			for r := range slr.Regions {
				if !slr.Regions[r].IsEmpty() {
					regions++
				}
			}

			fmt.Printf("%s: idcode 0x%08x, %d populated clock regions\n", slr.Name, slr.IDCode, regions)
		}
		// Print every site (if requested)
		if sites {
			device.Visit(func(slr *geom.SLR, region *geom.ClockRegion, col *geom.Column, site *geom.Site) {
				fmt.Printf("%s %s col %d: %s\n", slr.Name, region.Name, col.Index, site.Name)
			})
		}
		// Check column site counts (if requested)
		if check {
			errs := device.ValidateCounts(map[string]uint{
				"CLB":    arch.ClbPerColumn,
				"DSP":    arch.DspPerColumn,
				"BRAM":   arch.Bram36PerColumn,
				"BRAM18": arch.Bram18PerColumn,
			})

			for _, err := range errs {
				fmt.Println(err)
			}

			if len(errs) != 0 {
				os.Exit(2)
			}

			fmt.Println("site counts match the family")
		}
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.Flags().Bool("check", false, "Check per-column site counts against the family")
	deviceCmd.Flags().Bool("sites", false, "Print every site of the device")
}
