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

// Package sweep plans and runs differential sweep campaigns: generate a
// baseline design, regenerate it with one initialization bit toggled at a
// time, and diff every variant bitstream against the baseline.
package sweep

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

// Class selects which resource kind a campaign sweeps.
type Class uint8

const (
	Luts Class = iota
	Lutrams
	Regs
	Brams
)

func (c Class) String() string {
	switch c {
	case Luts:
		return "luts"
	case Lutrams:
		return "lutrams"
	case Regs:
		return "regs"
	case Brams:
		return "brams"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// ParseClass parses a resource class name.
func ParseClass(s string) (Class, error) {
	for _, c := range []Class{Luts, Lutrams, Regs, Brams} {
		if s == c.String() {
			return c, nil
		}
	}
	// Done
	return 0, fmt.Errorf("unknown resource class %q", s)
}

// Config describes one sweep campaign.
type Config struct {
	// Part to characterize.
	Part string `yaml:"part"`
	// WorkDir receives generated designs, bitstreams and logs.
	WorkDir string `yaml:"work_dir"`
	// ScriptDir holds the generation scripts.
	ScriptDir string `yaml:"script_dir"`
	// Classes to sweep.  Empty means all.
	Classes []string `yaml:"classes,omitempty"`
	// Parallelism bounds concurrent tool invocations.  Zero means one per
	// CPU; the vendor tools are memory-hungry, so campaigns usually set this
	// well below the CPU count.
	Parallelism int `yaml:"parallelism,omitempty"`
	// LutIndexLow and LutIndexHigh bound the swept LUT positions within a
	// CLB, inclusive.
	LutIndexLow  uint `yaml:"lut_index_low"`
	LutIndexHigh uint `yaml:"lut_index_high"`
}

// LoadConfig reads a campaign configuration from a YAML file and validates
// it.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("malformed campaign config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	// Done
	return &config, nil
}

// Validate checks the configuration and fills defaults.
func (p *Config) Validate() error {
	if p.Part == "" {
		return fmt.Errorf("campaign config names no part")
	}

	if p.WorkDir == "" {
		return fmt.Errorf("campaign config names no work directory")
	}

	if p.Parallelism < 0 {
		return fmt.Errorf("negative parallelism %d", p.Parallelism)
	} else if p.Parallelism == 0 {
		p.Parallelism = runtime.NumCPU()
	}

	if len(p.Classes) == 0 {
		for _, c := range []Class{Luts, Lutrams, Regs, Brams} {
			p.Classes = append(p.Classes, c.String())
		}
	} else {
		for _, name := range p.Classes {
			if _, err := ParseClass(name); err != nil {
				return err
			}
		}
	}

	if p.LutIndexHigh == 0 && p.LutIndexLow == 0 {
		p.LutIndexHigh = arch.LutPerClb - 1
	}

	if p.LutIndexHigh >= arch.LutPerClb || p.LutIndexLow > p.LutIndexHigh {
		return fmt.Errorf("invalid LUT index range [%d .. %d]", p.LutIndexLow, p.LutIndexHigh)
	}
	// Done
	return nil
}
