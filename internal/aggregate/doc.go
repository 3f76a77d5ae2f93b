// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package aggregate runs an ordered list of build steps. Steps that are not
// present (a missing directory or build script) are announced and skipped;
// the first failing step stops the run.
package aggregate
