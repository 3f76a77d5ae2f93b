// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/aggregate"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/layer"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/meta"
)

func layerCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "layer"

	s, err := layer.LoadSettings()
	if err != nil {
		return err
	}
	if v := cmd.String("strategy"); v != "" {
		s.Strategy = v
	}
	if v := cmd.String("arch"); v != "" {
		if s.Arch, err = layer.NormalizeArch(v); err != nil {
			return err
		}
	}

	strategy, err := newStrategy(s, m.RootDir, progress(OutputOptions(cmd)))
	if err != nil {
		return err
	}

	return runSteps(ctx, cmd, []aggregate.Step{
		&aggregate.LayerStep{
			Strategy: strategy,
			Options: layer.Options{
				ArtifactsDir: ArtifactsDir(cmd, m),
				Artifact:     s.Artifact,
			},
		},
	})
}

// newStrategy maps the configured strategy name onto an implementation.
func newStrategy(s layer.Settings, rootDir string, w io.Writer) (layer.Strategy, error) {
	switch s.Strategy {
	case "download":
		return layer.NewDownload(s.Versions, s.Arch), nil
	case "container":
		buildCtx := s.Context
		if !filepath.IsAbs(buildCtx) {
			buildCtx = filepath.Join(rootDir, buildCtx)
		}
		return &layer.Container{
			Context:  buildCtx,
			Image:    s.Image,
			Versions: s.Versions,
			Arch:     s.Arch,
			Runner:   runner,
			Stdout:   w,
			Stderr:   w,
		}, nil
	}
	return nil, fmt.Errorf("unknown layer strategy: %s", s.Strategy)
}

func layerCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "layer",
		Usage:     "build the kubectl Lambda layer",
		UsageText: "cfnpack layer [RootDir] [--strategy download|container] [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "how to build the layer (download|container)",
				Validator: func(value string) error {
					return FlagValidators(value, StrategyValidator)
				},
			},
			&cli.StringFlag{
				Name:  "arch",
				Usage: "target architecture (amd64|arm64)",
			},
		},
		Action: layerCommandAction,
		Meta:   meta,
	}).Build()
}
