// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package differ renders structural differences between JSON documents. The
// publisher uses it to show how a bucket's live policy has drifted from the
// one it would attach at creation.
package differ
