// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemo-hyperpod/cfnpack/internal/archive"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
	"github.com/nemo-hyperpod/cfnpack/internal/util"
)

// ErrMissingInput reports a resource directory, manifest or source file that
// does not exist. Errors carrying it also match os.ErrNotExist.
var ErrMissingInput = errors.New("missing package input")

// Options control how resources are packaged. The zero value is not usable:
// ArtifactsDir is required.
type Options struct {
	ArtifactsDir string
	// Python is the interpreter used to create the isolated environment.
	Python string
	// PipArgs are appended to the dependency install command.
	PipArgs []string
	// TempDir is the parent of the scratch directory. Empty means os.TempDir.
	TempDir string
	Runner  shell.Runner
	Stdout  io.Writer
	Stderr  io.Writer
}

// Result describes a written artifact.
type Result struct {
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path" yaml:"path"`
	Size    int64  `json:"size" yaml:"size"`
	Entries int    `json:"entries" yaml:"entries"`
	Digest  string `json:"digest" yaml:"digest"`
}

func (o Options) withDefaults() Options {
	if o.Python == "" {
		o.Python = "python3"
	}
	if o.Runner == nil {
		o.Runner = &shell.Exec{}
	}
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}
	return o
}

// Validate checks that the resource's directory, manifest and source exist.
func Validate(r Resource) error {
	for _, p := range []string{r.Dir, filepath.Join(r.Dir, r.Manifest), filepath.Join(r.Dir, r.Source)} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMissingInput, p, err)
		}
	}
	return nil
}

// Package builds the artifact for r: an isolated Python environment installs
// the manifest's dependencies into a scratch package root, the source file is
// overlaid, tagged files are pruned and the tree is zipped into
// opts.ArtifactsDir/r.Artifact. The scratch directory is removed on every
// path out of this function.
func Package(ctx context.Context, r Resource, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	if opts.ArtifactsDir == "" {
		return nil, errors.New("artifacts directory not set")
	}
	if err := Validate(r); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(opts.TempDir, "cfnpack-"+r.Name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.WithError(err).Warnf("failed to remove scratch dir %s", scratch)
		}
	}()
	log.Debugf("packaging %s: scratch=%s", r.Name, scratch)

	venv := filepath.Join(scratch, "venv")
	pkgRoot := filepath.Join(scratch, "package")
	pip := filepath.Join(venv, "bin", "pip")

	run := func(name string, args ...string) error {
		return opts.Runner.Run(ctx, shell.Cmd{
			Name:   name,
			Args:   args,
			Dir:    r.Dir,
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		})
	}

	if err := run(opts.Python, "-m", "venv", venv); err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}

	if r.UpgradeInstaller {
		if err := run(pip, "install", "--upgrade", "pip"); err != nil {
			return nil, fmt.Errorf("failed to upgrade pip: %w", err)
		}
	}

	if err := os.MkdirAll(pkgRoot, 0o755); err != nil { //nolint:mnd
		return nil, err
	}

	if existing := filepath.Join(r.Dir, "package"); r.ReusePackageDir && util.IsDir(existing) {
		log.Debugf("seeding package root from %s", existing)
		if err := util.CopyTree(existing, pkgRoot); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", existing, err)
		}
	}

	args := append([]string{"install", "-r", filepath.Join(r.Dir, r.Manifest), "-t", pkgRoot}, opts.PipArgs...)
	if err := run(pip, args...); err != nil {
		return nil, fmt.Errorf("failed to install dependencies: %w", err)
	}

	if len(r.PruneTags) > 0 {
		n, err := Prune(pkgRoot, r.PruneTags)
		if err != nil {
			return nil, fmt.Errorf("failed to prune: %w", err)
		}
		log.Debugf("pruned %d entries tagged %v", n, r.PruneTags)
	}

	// The first-party source goes in last so pruning never touches it.
	if err := util.CopyFile(filepath.Join(r.Dir, r.Source), filepath.Join(pkgRoot, r.Source)); err != nil {
		return nil, fmt.Errorf("failed to copy source: %w", err)
	}

	dst := filepath.Join(opts.ArtifactsDir, r.Artifact)
	info, err := archive.WriteZip(pkgRoot, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return &Result{
		Name:    r.Name,
		Path:    info.Path,
		Size:    info.Size,
		Entries: info.Entries,
		Digest:  info.Digest,
	}, nil
}

// Prune removes every file or directory below root whose base name contains
// one of tags. Returns the number of entries removed.
func Prune(root string, tags []string) (int, error) {
	var doomed []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}
		for _, tag := range tags {
			if tag != "" && strings.Contains(d.Name(), tag) {
				doomed = append(doomed, p)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, p := range doomed {
		log.Tracef("pruning %s", p)
		if err := os.RemoveAll(p); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}
