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

	"github.com/epfl-vlsc/bitfiltrator/pkg/backend"
	"github.com/spf13/cobra"
)

var partsCmd = &cobra.Command{
	Use:   "parts [flags] catalog_file",
	Short: "list the parts of a vendor part catalog.",
	Long: `List the UltraScale and UltraScale+ parts of a vendor part
	catalog, grouped by device.  Parts of other families are skipped
	during load.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		device := getString(cmd, "device")
		representative := getFlag(cmd, "representative")
		// Load the catalog
		catalog, err := backend.LoadCatalog(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		devices := catalog.Devices()
		if device != "" {
			devices = []string{device}
		}

		for _, dev := range devices {
			if representative {
				part, err := catalog.RepresentativePart(dev)
				if err != nil {
					fmt.Println(err)
					os.Exit(2)
				}

				fmt.Printf("%s: %s\n", dev, part)
				continue
			}

			for _, part := range catalog.PartsOf(dev) {
				fmt.Printf("%s: %s\n", dev, part)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(partsCmd)
	partsCmd.Flags().String("device", "", "List only the named device")
	partsCmd.Flags().Bool("representative", false, "Print one representative part per device")
}
