// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package publish uploads the CloudFormation templates and resource bundles
// to the per-account template bucket.
//
// A run stages templates/, templates-slurm/ and resources/ into .staging
// (plus a VERSION file and a duplicate of the trees under a snapshot
// directory), resolves the caller's account with STS, creates
// <prefix>-<account>-<region> with a CloudFormation access policy if it does
// not exist, and then syncs the staging tree into it. The sync deletes remote
// objects that are gone locally, except under the excluded prefixes, which
// hold objects managed elsewhere.
package publish
