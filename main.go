// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nemo-hyperpod/cfnpack/internal/cacheutil"
	"github.com/nemo-hyperpod/cfnpack/internal/command"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/version"
)

func main() {
	os.Exit(realMain())
}

// handleVersion checks for --version/-v and returns whether it was handled.
func handleVersion(args []string) bool {
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return true
		}
	}
	return false
}

// handleNakedCommand appends --help if no command is provided.
func handleNakedCommand(args []string) []string {
	if len(args) <= 1 {
		return append(args, "--help")
	}
	return args
}

// processCommandArgs handles command-specific argument processing.
func processCommandArgs(args []string) []string {
	if len(args) > 1 && args[1] == "completion" {
		// Short-circuit completion: pass args directly.
		return args
	}

	args = processSetOnly(args)
	log.Debugf("args after set processing: args=%v", args)

	return processRootDirArg(args)
}

// processRootDirArg makes sure args[2] is the project root, inserting the
// CWD when the command line does not name one. A named root that does not
// exist is left in place so InitApp can reject it.
func processRootDirArg(args []string) []string {
	if len(args) > 2 && !strings.HasPrefix(args[2], "-") {
		return args
	}
	rootDir, _ := os.Getwd()
	return append(args[:2:2], append([]string{rootDir}, args[2:]...)...)
}

// processSetOnly handles the @set logic for all commands, expanding set
// arguments from the config file at the @set position.
func processSetOnly(args []string) []string {
	// Look for an explicit @set argument starting from index 2.
	idx := 2
	if len(args) <= idx {
		return args
	}
	set := ""
	removeIdx := -1
	for i, a := range args[idx:] {
		if strings.HasPrefix(a, "@") {
			set = a[1:]
			removeIdx = idx + i
			break
		}
	}
	if removeIdx == -1 {
		return args
	}

	// Remove the @set argument.
	args = append(args[:removeIdx], args[removeIdx+1:]...)
	// Expand the set arguments at the removeIdx position.
	setArgs, err := config.GetStringSlice(args[1] + "." + set)
	if err != nil {
		log.Warnf("arg set %s not found in config", args[1]+"."+set)
	}
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		args = append(args[:removeIdx], append(parts, args[removeIdx:]...)...)
		removeIdx += len(parts)
	}
	return args
}

// purgeCache pre-creates the cache directory when caching is enabled and
// drops entries older than cache.clean hours.
func purgeCache() {
	if !cacheutil.Enabled() {
		return
	}
	if _, _, err := cacheutil.EnsureBaseDir(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("cache ensure err: err=%v", err)
		return
	}

	hours, _ := config.GetInt("cache.clean", 0)
	if err := cacheutil.Purge(hours); err != nil {
		log.WithError(err).Warn("cache purge failed")
	}
}

// initAndRunApp initializes the app and runs it, returning the exit code.
func initAndRunApp(ctx context.Context, args []string) int {
	purgeCache()

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app init err: err=%v", err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app run err: err=%v", err)
		return 2
	}

	return 0
}

func realMain() int {
	log.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args
	log.Debugf("args captured: args=%v", args)

	if handleVersion(args) {
		return 0
	}

	args = handleNakedCommand(args)

	// If --help appears anywhere, skip command processing and let the CLI handle it.
	helpFound := false
	for _, a := range args {
		if a == "--help" || a == "-h" {
			helpFound = true
			break
		}
	}

	if !helpFound {
		args = processCommandArgs(args)
	}

	return initAndRunApp(ctx, args)
}
