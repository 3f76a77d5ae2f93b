// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/output"
)

// NewGlobalFlags returns the flags every build and publish command carries.
// params[0] is the command namespace and params[1] the config file; when both
// are present --artifacts may also be read from the config file.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	artifacts := &cli.StringFlag{
		Name:  "artifacts",
		Usage: "directory receiving the zip artifacts. Relative to RootDir",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("CFNPACK_ARTIFACTS"),
		),
	}
	if len(params) == 2 {
		artifacts = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], artifacts)
	}

	flags = []cli.Flag{
		artifacts,
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   output.ColorDefault(),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters applied to text output rows",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
		},
		&cli.BoolFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Value:   false,
		},
	}

	return
}

// NewRegionFlag constructs the --region flag. The environment wins over the
// config file, which wins over the default.
func NewRegionFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:  "region",
		Usage: "AWS region of the template bucket",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("AWS_REGION"),
		),
		Value: "us-east-1",
	}

	if len(params) == 2 {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NewProfileFlag constructs the --profile flag. When unset the SDK's default
// credential chain applies.
func NewProfileFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:  "profile",
		Usage: "AWS shared config profile",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("AWS_PROFILE"),
		),
	}

	if len(params) == 2 {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain. Without a config file the flag is
// returned unchanged.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	if path == "" {
		return flag
	}

	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
