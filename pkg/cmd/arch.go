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
	"context"
	"fmt"
	"os"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
	"github.com/epfl-vlsc/bitfiltrator/pkg/loc"
	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
	"github.com/epfl-vlsc/bitfiltrator/pkg/sweep"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var archCmd = &cobra.Command{
	Use:   "arch [flags]",
	Short: "build an architecture summary from observations.",
	Long: `Build an architecture summary, the map from every configuration
	property of a tile to the frame minors and offsets that encode it.
	Observations come from logic-location dumps (--ll), from a LUT init
	sweep campaign (--config), or both.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		configureLogging(cmd)
		llFiles := getStringArray(cmd, "ll")
		config := getString(cmd, "config")
		tile := getString(cmd, "tile")
		output := getString(cmd, "output")
		spec := getFamily(cmd)

		if len(llFiles) == 0 && config == "" {
			fmt.Println("nothing to observe: give --ll files or a sweep --config")
			os.Exit(1)
		}

		builder := summary.NewBuilder(getString(cmd, "name"))
		// Observe logic-location dumps
		for _, filename := range llFiles {
			file, err := loc.ParseFile(filename)
			if err != nil {
				fmt.Println(err)
				os.Exit(2)
			}

			if err := summary.ObserveLogicLocations(builder, tile, file.Bits, spec); err != nil {
				fmt.Printf("%s: %v\n", filename, err)
				os.Exit(2)
			}

			log.Debugf("observed %d bits from %s", len(file.Bits), filename)
		}
		// Observe a LUT init sweep
		if config != "" {
			runLutSweep(cmd, builder, config, tile, spec)
		}
		// Assemble
		sum, errs := builder.Build()
		for _, err := range errs {
			fmt.Println(err)
		}

		if len(errs) != 0 {
			os.Exit(2)
		}
		// A sweep only probes one CLB; spread its LUT encodings over the
		// column using the register encodings as anchors.
		if config != "" && len(llFiles) != 0 {
			if err := sum.ReplicateLuts(tile, "AFF"); err != nil {
				fmt.Println(err)
				os.Exit(2)
			}
		}

		if err := sum.Save(output); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

// Run a LUT init sweep campaign over pre-generated bitstreams and feed its
// diffs into the builder.
func runLutSweep(cmd *cobra.Command, builder *summary.Builder, configPath string, tile string, spec arch.Spec) {
	config, err := sweep.LoadConfig(configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	device := readDeviceSummary(getString(cmd, "device"))
	baseline := getString(cmd, "baseline")
	variants := sweep.PlanLutSweep(config.WorkDir, config.LutIndexLow, config.LutIndexHigh)

	campaign := &sweep.Campaign{
		Parallelism: config.Parallelism,
		Decode: func(path string) (*bitstream.FrameSet, error) {
			bs, err := bitstream.FromFile(path)
			if err != nil {
				return nil, err
			}

			return bs.Frames(spec, device)
		},
	}

	outcome, err := campaign.Run(context.Background(), baseline, variants)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	if outcome.Partial() {
		log.Warnf("%d of %d variants failed", outcome.Failed, outcome.Failed+outcome.Completed)
	}

	for _, err := range sweep.ObserveLuts(builder, outcome, tile) {
		fmt.Println(err)
	}
}

func init() {
	rootCmd.AddCommand(archCmd)
	archCmd.Flags().StringArray("ll", nil, "Logic-location dump of a single resource column (repeatable)")
	archCmd.Flags().String("config", "", "Sweep campaign configuration file")
	archCmd.Flags().String("baseline", "", "Baseline bitstream of the sweep")
	archCmd.Flags().String("device", "", "Device summary file (required for --config)")
	archCmd.Flags().String("name", "ULTRASCALE", "Architecture name recorded in the summary")
	archCmd.Flags().String("tile", "CLEL_L", "Tile type the observations describe")
	archCmd.Flags().String("output", "arch_summary.json", "Output summary file")
	archCmd.Flags().String("family", "ultrascale", "Architecture family (ultrascale, ultrascale+)")
}
