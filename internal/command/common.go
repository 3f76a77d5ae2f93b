// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/meta"
	"github.com/nemo-hyperpod/cfnpack/internal/output"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
)

// DefaultArtifactsDir is where zip artifacts land, relative to RootDir. It
// sits under resources/ so that publish uploads the artifacts with the
// resource tree.
var DefaultArtifactsDir = filepath.Join("resources", "artifacts")

// Swapped by tests.
var (
	stdout io.Writer    = os.Stdout
	stderr io.Writer    = os.Stderr
	runner shell.Runner = &shell.Exec{}
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// ArtifactsDir resolves --artifacts against the project root.
func ArtifactsDir(cmd *cli.Command, m meta.Meta) string {
	dir := cmd.String("artifacts")
	if dir == "" {
		dir = DefaultArtifactsDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.RootDir, dir)
	}
	return filepath.Clean(dir)
}

// OutputOptions collects the rendering flags.
func OutputOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format: cmd.String("output"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
	}
}

// progress is where step output goes. Structured formats keep stdout clean
// for the report.
func progress(opts output.Options) io.Writer {
	if opts.Format == "json" || opts.Format == "yaml" {
		return stderr
	}
	return stdout
}
