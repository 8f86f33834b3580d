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

package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/epfl-vlsc/bitfiltrator/pkg/bitstream"
	"github.com/epfl-vlsc/bitfiltrator/pkg/diff"
)

// DecodeFunc turns a bitstream file into its frame matrix.
type DecodeFunc func(path string) (*bitstream.FrameSet, error)

// Result is the comparison outcome of one variant.
type Result struct {
	Variant Variant
	Flips   []diff.BitFlip
	Err     error
}

// Outcome is the outcome of one campaign run.  A run where some variants
// failed to decode or diff is partial rather than failed: the surviving
// results still feed the encoding builder, and rerunning the campaign only
// redoes the missing variants.
type Outcome struct {
	// RunID tags all artifacts and log lines of this run.
	RunID     string
	Results   []Result
	Completed uint
	Failed    uint
}

// Partial reports whether some variants produced no result.
func (p *Outcome) Partial() bool {
	return p.Failed != 0
}

// Campaign diffs variant bitstreams against a baseline.
type Campaign struct {
	// Parallelism bounds concurrent decodes.
	Parallelism int
	// Decode loads one bitstream's frames.
	Decode DecodeFunc
}

// Run decodes the baseline, then decodes and diffs every variant
// concurrently.  Per-variant failures are collected in the outcome; only
// the baseline failing or the context ending aborts the run.
func (p *Campaign) Run(ctx context.Context, baselinePath string, variants []Variant) (*Outcome, error) {
	if p.Decode == nil {
		return nil, fmt.Errorf("campaign has no decoder")
	}

	outcome := &Outcome{RunID: uuid.NewString()}

	log.Infof("run %s: comparing %d variants against %s", outcome.RunID, len(variants), baselinePath)

	baseline, err := p.Decode(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("cannot decode baseline %s: %w", baselinePath, err)
	}

	results := make(chan Result)
	accumulated := make(chan struct{})
	// Single accumulator so workers never contend on the outcome.
	go func() {
		for result := range results {
			if result.Err != nil {
				log.Warnf("run %s: variant %s: %v", outcome.RunID, result.Variant.BitstreamPath, result.Err)
				outcome.Failed++
			} else {
				outcome.Completed++
			}

			outcome.Results = append(outcome.Results, result)
		}

		close(accumulated)
	}()

	limit := p.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(limit)

	for _, variant := range variants {
		variant := variant

		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result := Result{Variant: variant}

			set, err := p.Decode(variant.BitstreamPath)
			if err != nil {
				result.Err = err
			} else {
				result.Flips, result.Err = diff.Compare(baseline, set)
			}

			select {
			case results <- result:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	err = grp.Wait()
	close(results)
	<-accumulated

	if err != nil {
		return nil, err
	}

	sort.Slice(outcome.Results, func(i, j int) bool {
		l, r := &outcome.Results[i].Variant, &outcome.Results[j].Variant
		if l.LutIndex != r.LutIndex {
			return l.LutIndex < r.LutIndex
		}
		// Done
		return l.BitIndex < r.BitIndex
	})

	log.Infof("run %s: %d completed, %d failed", outcome.RunID, outcome.Completed, outcome.Failed)
	// Done
	return outcome, nil
}
