// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/layer"
	"github.com/nemo-hyperpod/cfnpack/internal/packager"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
	"github.com/nemo-hyperpod/cfnpack/internal/util"
)

const DefaultScript = "build.sh"

// ScriptStep runs an executable build script from its own directory.
type ScriptStep struct {
	Dir    string
	Script string
	// Name overrides the label, which defaults to Dir.
	Name   string
	Runner shell.Runner
}

func (s *ScriptStep) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Dir
}

func (s *ScriptStep) Present() (bool, string) {
	if !util.IsDir(s.Dir) {
		return false, "directory not found"
	}
	if !util.IsExecutable(filepath.Join(s.Dir, s.Script)) {
		return false, fmt.Sprintf("no executable %s", s.Script)
	}
	return true, ""
}

func (s *ScriptStep) Run(ctx context.Context, w io.Writer) error {
	r := s.Runner
	if r == nil {
		r = &shell.Exec{}
	}
	return r.Run(ctx, shell.Cmd{
		Name:   "./" + s.Script,
		Dir:    s.Dir,
		Stdout: w,
		Stderr: w,
	})
}

// PackageStep packages one resource natively.
type PackageStep struct {
	Resource packager.Resource
	Options  packager.Options
	result   *packager.Result
}

func (s *PackageStep) Label() string { return s.Resource.Name }

func (s *PackageStep) Present() (bool, string) {
	if !util.IsDir(s.Resource.Dir) {
		return false, "directory not found"
	}
	return true, ""
}

func (s *PackageStep) Run(ctx context.Context, w io.Writer) error {
	opts := s.Options
	opts.Stdout, opts.Stderr = w, w
	res, err := packager.Package(ctx, s.Resource, opts)
	if err != nil {
		return err
	}
	s.result = res
	fmt.Fprintf(w, "wrote %s\n", res.Path)
	return nil
}

func (s *PackageStep) Report() any { return s.result }

// LayerStep builds the Lambda layer. It is always present.
type LayerStep struct {
	Strategy layer.Strategy
	Options  layer.Options
	result   *layer.Result
}

func (s *LayerStep) Label() string { return "layer (" + s.Strategy.Name() + ")" }

func (s *LayerStep) Present() (bool, string) { return true, "" }

func (s *LayerStep) Run(ctx context.Context, w io.Writer) error {
	res, err := layer.Build(ctx, s.Strategy, s.Options)
	if err != nil {
		return err
	}
	s.result = res
	fmt.Fprintf(w, "wrote %s\n", res.Path)
	return nil
}

func (s *LayerStep) Report() any { return s.result }

// ScriptEntry is one configured (dir, script) pair. Dir is relative to the
// project root.
type ScriptEntry struct {
	Dir    string `yaml:"dir"`
	Script string `yaml:"script"`
}

// DefaultScriptEntries is the fixed list run by "all": every resource's
// build script followed by the layer's.
func DefaultScriptEntries() []ScriptEntry {
	var entries []ScriptEntry
	for _, name := range packager.DefaultNames() {
		entries = append(entries, ScriptEntry{Dir: filepath.Join("resources", name), Script: DefaultScript})
	}
	return append(entries, ScriptEntry{Dir: filepath.Join("layers", "kubectl"), Script: DefaultScript})
}

// ScriptSteps builds the "all" step list rooted at rootDir from the
// aggregate.steps configuration, or the defaults when it is absent.
func ScriptSteps(rootDir string, runner shell.Runner) ([]Step, error) {
	entries := DefaultScriptEntries()
	var configured []ScriptEntry
	found, err := config.Decode("aggregate.steps", &configured)
	if err != nil {
		return nil, err
	}
	if found && len(configured) > 0 {
		entries = configured
	}

	steps := make([]Step, 0, len(entries))
	for i, e := range entries {
		if e.Dir == "" {
			return nil, fmt.Errorf("aggregate.steps[%d]: dir is required", i)
		}
		if e.Script == "" {
			e.Script = DefaultScript
		}
		dir := e.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(rootDir, dir)
		}
		steps = append(steps, &ScriptStep{Dir: dir, Script: e.Script, Name: e.Dir, Runner: runner})
	}
	return steps, nil
}
