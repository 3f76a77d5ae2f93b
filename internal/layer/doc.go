// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package layer builds the kubectl Lambda layer used by the custom resources
// that talk to the EKS API.
//
// Two strategies produce the same artifact: Download fetches pinned release
// binaries (kubectl, aws-iam-authenticator, helm) into bin/ and zips them,
// and Container runs a docker build and copies the zip out of the image.
// Build owns the scratch directory and the atomic placement of the result.
package layer
