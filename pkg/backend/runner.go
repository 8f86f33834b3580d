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

package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Script is one batch invocation of a vendor-tool script.
type Script struct {
	// Path of the script.  Tcl scripts run under vivado in batch mode, Python
	// scripts under python3.
	Path string
	// Args are passed through to the script.
	Args []string
	// ExpectedOutputs are the artifacts the script produces.  When all of
	// them already exist the invocation is skipped, so interrupted campaigns
	// resume where they left off.
	ExpectedOutputs []string
	// StdoutPath and StderrPath capture the tool's output when set.
	StdoutPath string
	StderrPath string
}

// Runner executes batch scripts.
type Runner struct {
	// WorkDir is where scripts run.  The tools scatter journal and log files
	// in their working directory, so this defaults to the system temp dir
	// rather than the caller's.
	WorkDir string
}

// NewRunner returns a runner executing in the system temp directory.
func NewRunner() *Runner {
	return &Runner{WorkDir: os.TempDir()}
}

func buildCommand(script Script) ([]string, error) {
	switch filepath.Ext(script.Path) {
	case ".tcl":
		cmd := []string{"vivado", "-mode", "batch", "-source", script.Path, "-notrace"}
		if len(script.Args) != 0 {
			cmd = append(append(cmd, "-tclargs"), script.Args...)
		}
		// Done
		return cmd, nil
	case ".py":
		return append([]string{"python3", script.Path}, script.Args...), nil
	default:
		return nil, fmt.Errorf("unknown script extension on %q", script.Path)
	}
}

func allExist(paths []string) bool {
	if len(paths) == 0 {
		return false
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	// Done
	return true
}

// Run executes one script unless its artifacts already exist, then reports
// whether every expected output is present.  Tool failures surface through
// missing outputs rather than exit codes: vivado batch runs exit zero even
// when a step inside them fails.
func (p *Runner) Run(ctx context.Context, script Script) (bool, error) {
	cmd, err := buildCommand(script)
	if err != nil {
		return false, err
	}

	if allExist(script.ExpectedOutputs) {
		log.Debugf("skipping %s, outputs already exist", script.Path)
		return true, nil
	}

	log.Debugf("running %s", strings.Join(cmd, " "))

	proc := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	proc.Dir = p.WorkDir

	stdout, err := proc.Output()

	var stderr []byte
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
		err = nil
	}

	if err != nil {
		return false, fmt.Errorf("cannot run %s: %w", script.Path, err)
	}

	if script.StdoutPath != "" {
		if err := os.WriteFile(script.StdoutPath, stdout, 0644); err != nil {
			return false, err
		}
	}

	if script.StderrPath != "" {
		if err := os.WriteFile(script.StderrPath, stderr, 0644); err != nil {
			return false, err
		}
	}
	// Outputs are checked individually so a failure inside a large batch is
	// attributable from the logs.
	ok := true

	for _, path := range script.ExpectedOutputs {
		if _, err := os.Stat(path); err != nil {
			log.Warnf("failed to generate %s (cmd %q)", path, strings.Join(cmd, " "))
			ok = false
		}
	}
	// Done
	return ok, nil
}
