// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/aws"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/meta"
	"github.com/nemo-hyperpod/cfnpack/internal/output"
	"github.com/nemo-hyperpod/cfnpack/internal/publish"
)

// awsClients builds the S3 and STS clients for publish. Swapped by tests.
var awsClients = func(ctx context.Context, cmd *cli.Command) (publish.S3API, aws.IdentityAPI, error) {
	cfg, err := aws.LoadAWSConfig(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
		aws.WithRetryer(aws.StandardRetryer(cmd.Int("max-attempts"))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return aws.NewS3(cfg, aws.WithS3Endpoint(cmd.String("endpoint-url"))), aws.NewSTS(cfg), nil
}

func publishCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "publish"

	s3api, stsapi, err := awsClients(ctx, cmd)
	if err != nil {
		return err
	}

	exclude := cmd.StringSlice("exclude")
	if !cmd.IsSet("exclude") {
		if exclude, err = config.GetStringSlice("exclude", []string{publish.DefaultExclude}); err != nil {
			return fmt.Errorf("invalid exclude config: %w", err)
		}
	}

	oo := OutputOptions(cmd)
	p := &publish.Publisher{
		S3:           s3api,
		STS:          stsapi,
		Region:       cmd.String("region"),
		BucketPrefix: cmd.String("bucket-prefix"),
		Principal:    cmd.String("principal"),
		Exclude:      exclude,
		DryRun:       cmd.Bool("dry-run"),
		CheckPolicy:  cmd.Bool("check-policy"),
		Color:        oo.Color,
		Stage: publish.StageInput{
			RootDir:  m.RootDir,
			Snapshot: cmd.String("snapshot"),
			Revision: publish.GitRevision(runner),
		},
	}

	rep, err := p.Run(ctx)
	if err != nil {
		return err
	}

	return output.Spit(stdout, rep, PublishDatasets(rep), oo)
}

func publishCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "publish",
		Usage:     "stage templates and resources and sync them to the template bucket",
		UsageText: "cfnpack publish [RootDir] [options]",
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("publish", meta.Config.Source, &cli.StringFlag{
				Name:  "bucket-prefix",
				Usage: "bucket name prefix, completed with account and region",
				Value: publish.DefaultBucketPrefix,
			}),
			&cli.BoolFlag{
				Name:  "check-policy",
				Usage: "report drift between the bucket policy and the expected one",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "stage and plan the sync without changing the bucket",
				Value: false,
			},
			&cli.StringFlag{
				Name:   "endpoint-url",
				Hidden: true,
				Usage:  "S3-compatible endpoint used instead of AWS S3",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CFNPACK_S3_ENDPOINT"),
				),
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "key prefix left untouched by the sync, repeatable",
				Value: []string{publish.DefaultExclude},
			},
			&cli.IntFlag{
				Name:   "max-attempts",
				Hidden: true,
				Usage:  "maximum attempts per AWS request",
				Value:  5,
			},
			NameSpacedValueChainFlagFromConfigFile("publish", meta.Config.Source, &cli.StringFlag{
				Name:  "principal",
				Usage: "service principal granted access by the bucket policy",
				Value: publish.DefaultPrincipal,
			}),
			NewProfileFlag("publish", meta.Config.Source),
			NewRegionFlag("publish", meta.Config.Source),
			&cli.StringFlag{
				Name:        "snapshot",
				Usage:       "name of the duplicate snapshot tree",
				Value:       publish.DefaultSnapshot,
				HideDefault: true,
			},
		},
		Action: publishCommandAction,
		Meta:   meta,
	}).Build()
}
