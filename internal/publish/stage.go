// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
	"github.com/nemo-hyperpod/cfnpack/internal/util"
)

const (
	DefaultStagingDir = ".staging"
	DefaultSnapshot   = "1"
	VersionFile       = "VERSION"
)

// RevisionFunc returns the source revision recorded in the staging tree.
type RevisionFunc func(ctx context.Context, rootDir string) (string, error)

// GitRevision returns a RevisionFunc running "git rev-parse --short HEAD" in
// the root directory.
func GitRevision(r shell.Runner) RevisionFunc {
	if r == nil {
		r = &shell.Exec{}
	}
	return func(ctx context.Context, rootDir string) (string, error) {
		out, err := r.Output(ctx, shell.Cmd{Name: "git", Args: []string{"rev-parse", "--short", "HEAD"}, Dir: rootDir})
		if err != nil {
			return "", err
		}
		rev := strings.TrimSpace(string(out))
		if rev == "" {
			return "", errors.New("git returned an empty revision")
		}
		return rev, nil
	}
}

// StageInput describes the project tree to stage.
type StageInput struct {
	RootDir string
	// Dir is the staging directory, RootDir/.staging when empty.
	Dir string
	// Snapshot names the subdirectory holding the duplicate trees.
	Snapshot string
	Revision RevisionFunc
}

// Staging is a populated staging tree.
type Staging struct {
	Dir     string
	Version string
}

// stagedTree is one source tree copied into staging.
type stagedTree struct {
	name     string
	flat     bool
	required bool
}

var stagedTrees = []stagedTree{
	{name: "templates", flat: true, required: true},
	{name: "templates-slurm", flat: true},
	{name: "resources"},
}

// Stage rebuilds the staging tree from scratch: the flat template
// directories, the recursive resources tree, a VERSION file and a duplicate
// of the three trees under the snapshot directory. An empty templates
// directory is allowed but a missing one is an error, since syncing an empty
// staging tree would empty the bucket.
// A failed Stage removes whatever it left in the staging directory.
func Stage(ctx context.Context, in StageInput) (_ *Staging, err error) {
	if in.RootDir == "" {
		return nil, errors.New("root directory not set")
	}
	if in.Dir == "" {
		in.Dir = filepath.Join(in.RootDir, DefaultStagingDir)
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := os.RemoveAll(in.Dir); rerr != nil {
			log.WithError(rerr).Warnf("failed to remove staging dir %s", in.Dir)
		}
	}()
	if in.Snapshot == "" {
		in.Snapshot = DefaultSnapshot
	}
	if in.Revision == nil {
		in.Revision = GitRevision(nil)
	}

	rev, err := in.Revision(ctx, in.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision: %w", err)
	}

	if err := os.RemoveAll(in.Dir); err != nil {
		return nil, fmt.Errorf("failed to clear staging dir: %w", err)
	}
	if err := os.MkdirAll(in.Dir, 0o755); err != nil { //nolint:mnd
		return nil, err
	}

	for _, dest := range []string{in.Dir, filepath.Join(in.Dir, in.Snapshot)} {
		for _, t := range stagedTrees {
			src := filepath.Join(in.RootDir, t.name)
			if !util.IsDir(src) {
				if t.required {
					return nil, fmt.Errorf("%s: %w", src, os.ErrNotExist)
				}
				log.Warnf("skipping missing %s", src)
				continue
			}

			copyFn := util.CopyTree
			if t.flat {
				copyFn = util.CopyFlat
			}
			if err := copyFn(src, filepath.Join(dest, t.name)); err != nil {
				return nil, fmt.Errorf("failed to stage %s: %w", t.name, err)
			}
		}
	}

	if err := os.WriteFile(filepath.Join(in.Dir, VersionFile), []byte(rev+"\n"), 0o644); err != nil { //nolint:mnd
		return nil, err
	}

	log.Debugf("staged: dir=%s version=%s", in.Dir, rev)
	return &Staging{Dir: in.Dir, Version: rev}, nil
}
