// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package shell runs the external tools cfnpack drives: python3/pip for
// function packages, docker for container layer builds, git for the staging
// revision, and the per-directory build scripts of the aggregator.
//
// Failures come back as *ExitError carrying the command line and exit status
// so callers can report which tool failed.
package shell
