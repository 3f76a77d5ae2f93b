// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/aggregate"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/meta"
)

func allCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "all"

	steps, err := aggregate.ScriptSteps(m.RootDir, runner)
	if err != nil {
		return err
	}

	return runSteps(ctx, cmd, steps)
}

func allCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "all",
		Usage:     "run every per-directory build script",
		UsageText: "cfnpack all [RootDir] [options]",
		Action:    allCommandAction,
		Meta:      meta,
	}).Build()
}
