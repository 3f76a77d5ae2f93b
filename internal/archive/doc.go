// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package archive writes the reproducible zip files that Lambda consumes and
// extracts single binaries from release tarballs.
package archive
