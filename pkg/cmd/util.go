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
	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
	"github.com/epfl-vlsc/bitfiltrator/pkg/summary"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Get an expected flag, or panic if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected string flag, or panic if an error arises.
func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected string-array flag, or panic if an error arises.
func getStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Configure the log level from the persistent verbose flag.
func configureLogging(cmd *cobra.Command) {
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

// Parse the architecture family named by the family flag.
func getFamily(cmd *cobra.Command) arch.Spec {
	name, err := arch.ParseName(getString(cmd, "family"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return arch.SpecOf(name)
}

// Read a bitstream file, transparently decompressing ".gz" files.
func readBitstreamFile(filename string) *bitstream.Bitstream {
	bs, err := bitstream.FromFile(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	if bs.IsEncrypted() {
		fmt.Printf("%s: encrypted bitstreams cannot be analysed\n", filename)
		os.Exit(2)
	}

	return bs
}

// Read a device summary file.
func readDeviceSummary(filename string) *summary.Device {
	device, err := summary.LoadDevice(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return device
}

// Read an architecture summary file.
func readArchSummary(filename string) *summary.Arch {
	sum, err := summary.LoadArch(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return sum
}

// Extract the configuration frames of a bitstream using a device summary as
// the frame-address layout.
func extractFrames(bs *bitstream.Bitstream, spec arch.Spec, device *summary.Device) *bitstream.FrameSet {
	frames, err := bs.Frames(spec, device)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return frames
}
