// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Step is one unit of an aggregated build.
type Step interface {
	Label() string
	// Present reports whether the step can run. When it cannot, the string
	// says why.
	Present() (bool, string)
	Run(ctx context.Context, w io.Writer) error
}

// Reporter is implemented by steps that produce a result worth reporting,
// such as an artifact.
type Reporter interface {
	Report() any
}

const (
	StatusRan     = "ran"
	StatusSkipped = "skipped"
)

// StepResult records what happened to one step.
type StepResult struct {
	Label    string        `json:"label" yaml:"label"`
	Status   string        `json:"status" yaml:"status"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Detail   any           `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Aggregator runs steps in order, writing a section header before each one
// that runs and a skip notice for each one that is absent.
type Aggregator struct {
	Out   io.Writer
	Color bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Run executes steps sequentially. The first failing step aborts the run and
// its error is returned wrapped with the step label; results gathered up to
// that point are returned alongside it.
func (a *Aggregator) Run(ctx context.Context, steps []Step) ([]StepResult, error) {
	out := a.Out
	if out == nil {
		out = io.Discard
	}

	results := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		label := s.Label()
		if ok, reason := s.Present(); !ok {
			a.println(out, skipStyle, fmt.Sprintf("--- skipping %s: %s", label, reason))
			log.Debugf("step skipped: label=%s reason=%s", label, reason)
			results = append(results, StepResult{Label: label, Status: StatusSkipped, Reason: reason})
			continue
		}

		a.println(out, headerStyle, fmt.Sprintf("=== %s", label))
		start := time.Now()
		if err := s.Run(ctx, out); err != nil {
			return results, fmt.Errorf("%s: %w", label, err)
		}

		r := StepResult{Label: label, Status: StatusRan, Duration: time.Since(start).Round(time.Millisecond)}
		if rep, ok := s.(Reporter); ok {
			r.Detail = rep.Report()
		}
		log.Debugf("step done: label=%s duration=%s", label, r.Duration)
		results = append(results, r)
	}
	return results, nil
}

func (a *Aggregator) println(w io.Writer, style lipgloss.Style, s string) {
	if a.Color {
		s = style.Render(s)
	}
	fmt.Fprintln(w, s)
}
