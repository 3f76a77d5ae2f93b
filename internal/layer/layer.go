// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nemo-hyperpod/cfnpack/internal/archive"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

const DefaultArtifact = "kubectl-layer.zip"

// Strategy produces the layer zip at outZip. workDir is an empty scratch
// directory the strategy may use freely; it is removed by Build.
type Strategy interface {
	Name() string
	Build(ctx context.Context, workDir, outZip string) error
}

// Versions pins the tool versions bundled into the layer.
type Versions struct {
	Kubectl       string `yaml:"kubectl" json:"kubectl"`
	Authenticator string `yaml:"aws_iam_authenticator" json:"aws_iam_authenticator"`
	Helm          string `yaml:"helm" json:"helm"`
}

// DefaultVersions are the versions the CloudFormation templates were tested
// against.
var DefaultVersions = Versions{
	Kubectl:       "1.31.0",
	Authenticator: "0.6.29",
	Helm:          "3.16.2",
}

// Settings is the "layer" section of the configuration file.
type Settings struct {
	Strategy string   `yaml:"strategy"`
	Arch     string   `yaml:"arch"`
	Artifact string   `yaml:"artifact"`
	Context  string   `yaml:"context"`
	Image    string   `yaml:"image"`
	Versions Versions `yaml:"versions"`
}

// LoadSettings decodes the "layer" section over the defaults.
func LoadSettings() (Settings, error) {
	s := Settings{
		Strategy: "download",
		Arch:     "amd64",
		Artifact: DefaultArtifact,
		Context:  filepath.Join("layers", "kubectl"),
		Versions: DefaultVersions,
	}
	if _, err := config.Decode("layer", &s); err != nil {
		return s, err
	}
	arch, err := NormalizeArch(s.Arch)
	if err != nil {
		return s, err
	}
	s.Arch = arch
	return s, nil
}

// NormalizeArch maps machine names onto the Go/Docker architecture names the
// download URLs use.
func NormalizeArch(arch string) (string, error) {
	switch arch {
	case "", "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	}
	return "", fmt.Errorf("unsupported architecture: %s", arch)
}

// Options control where the layer artifact is placed.
type Options struct {
	ArtifactsDir string
	// Artifact is the file name, DefaultArtifact when empty.
	Artifact string
	// TempDir is the parent of the scratch directory. Empty means os.TempDir.
	TempDir string
}

// Result describes the placed layer artifact.
type Result struct {
	Name     string `json:"name" yaml:"name"`
	Strategy string `json:"strategy" yaml:"strategy"`
	Path     string `json:"path" yaml:"path"`
	Size     int64  `json:"size" yaml:"size"`
	Entries  int    `json:"entries" yaml:"entries"`
	Digest   string `json:"digest" yaml:"digest"`
}

// Build runs s in a fresh scratch directory and atomically places the zip it
// produces into the artifacts directory. The scratch directory is removed
// whether or not the strategy succeeds.
func Build(ctx context.Context, s Strategy, opts Options) (*Result, error) {
	if opts.ArtifactsDir == "" {
		return nil, errors.New("artifacts directory not set")
	}
	if opts.Artifact == "" {
		opts.Artifact = DefaultArtifact
	}

	scratch, err := os.MkdirTemp(opts.TempDir, "cfnpack-layer-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.WithError(err).Warnf("failed to remove scratch dir %s", scratch)
		}
	}()

	workDir := filepath.Join(scratch, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil { //nolint:mnd
		return nil, err
	}
	outZip := filepath.Join(scratch, opts.Artifact)

	log.Debugf("building layer: strategy=%s scratch=%s", s.Name(), scratch)
	if err := s.Build(ctx, workDir, outZip); err != nil {
		return nil, fmt.Errorf("%s layer build failed: %w", s.Name(), err)
	}

	info, err := archive.Place(outZip, filepath.Join(opts.ArtifactsDir, opts.Artifact))
	if err != nil {
		return nil, fmt.Errorf("failed to place layer artifact: %w", err)
	}

	return &Result{
		Name:     opts.Artifact,
		Strategy: s.Name(),
		Path:     info.Path,
		Size:     info.Size,
		Entries:  info.Entries,
		Digest:   info.Digest,
	}, nil
}
