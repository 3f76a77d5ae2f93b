// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package aws contains AWS SDK configuration helpers and client constructors
// used by the publisher.
package aws
