// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package cacheutil keeps an opt-in on-disk cache of downloaded layer
// binaries, keyed by the SHA-256 of their URL.
package cacheutil
