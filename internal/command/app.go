// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/meta"
	"github.com/nemo-hyperpod/cfnpack/internal/util"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// Save the CWD at startup and then defer restoring it so we're tidy.
	sd, _ := os.Getwd()
	defer func() {
		if err := os.Chdir(sd); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore directory: %v\n", err)
		}
	}()

	// The arg[1] immediately following the binary (arg[0]) is the cfnpack
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	// See if the arg immediately following the command might be a directory.
	// This is determined by whether or not it begins with - or --. If it does,
	// it's a flag and the CWD is the project root. The completion command takes
	// a plain positional shell name instead.
	rootDir := sd
	if ns != "completion" && len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		wd, err := util.ParseRootDir(args[2])
		if err != nil {
			return nil, fmt.Errorf("failed to parse rootDir (%s): %w", args[2], err)
		}
		rootDir = wd
	}

	// A project-local cfnpack.yaml beats the standard locations unless
	// CFNPACK_CFG_FILE names one explicitly. A missing config file is fine.
	var cfgPath string
	if p := filepath.Join(rootDir, config.FileName); os.Getenv("CFNPACK_CFG_FILE") == "" && util.IsFile(p) {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.Config.Namespace = ns
	cfg.Namespace = ns
	log.Debugf("config loaded: source=%s namespace=%s", cfg.Source, ns)

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		RootDir:     rootDir,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "cfnpack",
		Usage: "CloudFormation artifact packager",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "cfnpack version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		allCommandBuilder(meta),
		layerCommandBuilder(meta),
		packageCommandBuilder(meta),
		publishCommandBuilder(meta),
		completionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
