// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package packager builds the zip artifacts for the Python Lambda functions
// behind the CloudFormation custom resources.
//
// Every resource follows one shape, parameterised by Resource:
//
//	python3 -m venv <scratch>/venv
//	<scratch>/venv/bin/pip install --upgrade pip        (UpgradeInstaller)
//	cp -r <dir>/package <scratch>/package                (ReusePackageDir)
//	<scratch>/venv/bin/pip install -r <manifest> -t <scratch>/package
//	cp <dir>/<source> <scratch>/package/
//	rm -rf <scratch>/package/**/*<tag>*                  (PruneTags)
//	zip <artifacts>/<artifact> <scratch>/package/*
//
// The scratch directory lives under the system temp dir and is removed on
// success and on failure. Artifacts are reproducible: entries carry a fixed
// timestamp, so the same installed tree always yields the same bytes and the
// same h1: digest.
package packager
