// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package config provides loading and typed accessors for cfnpack's
// configuration. The configuration is a YAML document resolved in this order:
//   - the path in CFNPACK_CFG_FILE
//   - cfnpack.yaml in the working directory
//   - cfnpack.yaml in the user's configuration directory (os.UserConfigDir)
//
// A missing file is not an error for callers; every setting has a built-in
// default.
package config
