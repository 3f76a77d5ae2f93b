// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/aggregate"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/meta"
	"github.com/nemo-hyperpod/cfnpack/internal/output"
	"github.com/nemo-hyperpod/cfnpack/internal/packager"
)

func packageCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "package"

	resources, err := packager.LoadResources(m.RootDir)
	if err != nil {
		return err
	}
	resources, err = packager.Select(resources, cmd.StringSlice("resource"))
	if err != nil {
		return err
	}

	pipArgs, err := config.GetStringSlice("pip_args", nil)
	if err != nil {
		return fmt.Errorf("invalid pip_args config: %w", err)
	}
	opts := packager.Options{
		ArtifactsDir: ArtifactsDir(cmd, m),
		Python:       cmd.String("python"),
		PipArgs:      pipArgs,
		Runner:       runner,
	}
	log.Debugf("packaging %d resources into %s", len(resources), opts.ArtifactsDir)

	steps := make([]aggregate.Step, 0, len(resources))
	for _, r := range resources {
		steps = append(steps, &aggregate.PackageStep{Resource: r, Options: opts})
	}

	return runSteps(ctx, cmd, steps)
}

// runSteps aggregates steps and reports what ran, including when a step
// fails part way through.
func runSteps(ctx context.Context, cmd *cli.Command, steps []aggregate.Step) error {
	oo := OutputOptions(cmd)
	agg := aggregate.Aggregator{Out: progress(oo), Color: oo.Color}

	results, err := agg.Run(ctx, steps)
	if rerr := output.Spit(stdout, results, []output.Dataset{StepsDataset(results)}, oo); rerr != nil {
		log.WithError(rerr).Warn("failed to render report")
	}
	return err
}

func packageCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "package",
		Usage:     "package Lambda resources into zip artifacts",
		UsageText: "cfnpack package [RootDir] [--resource NAME]... [options]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "resource",
				Aliases: []string{"r"},
				Usage:   "resource to package, repeatable. Defaults to all",
			},
			NameSpacedValueChainFlagFromConfigFile("package", meta.Config.Source, &cli.StringFlag{
				Name:  "python",
				Usage: "python interpreter used to build the environment",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CFNPACK_PYTHON"),
				),
				Value: "python3",
			}),
		},
		Action: packageCommandAction,
		Meta:   meta,
	}).Build()
}
