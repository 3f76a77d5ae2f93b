// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nemo-hyperpod/cfnpack/internal/aws"
	"github.com/nemo-hyperpod/cfnpack/internal/differ"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Publisher stages the project tree and reconciles it into the account's
// template bucket.
type Publisher struct {
	S3  S3API
	STS aws.IdentityAPI

	Region       string
	BucketPrefix string
	Principal    string
	Exclude      []string
	DryRun       bool
	// CheckPolicy compares an existing bucket's policy with the one that
	// would be attached at creation. The policy is never re-applied.
	CheckPolicy bool
	Color       bool

	Stage StageInput
}

// Report is the outcome of a publish run.
type Report struct {
	Account     string      `json:"account" yaml:"account"`
	Region      string      `json:"region" yaml:"region"`
	Bucket      string      `json:"bucket" yaml:"bucket"`
	Created     bool        `json:"created" yaml:"created"`
	Version     string      `json:"version" yaml:"version"`
	PolicyDrift string      `json:"policy_drift,omitempty" yaml:"policy_drift,omitempty"`
	Sync        *SyncReport `json:"sync" yaml:"sync"`
}

// Run stages, resolves the account, makes sure the bucket exists and syncs.
// The staging directory is removed when Run returns.
func (p *Publisher) Run(ctx context.Context) (*Report, error) {
	region := p.Region
	if region == "" {
		region = DefaultRegion
	}

	staging, err := Stage(ctx, p.Stage)
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging.Dir); err != nil {
			log.WithError(err).Warnf("failed to remove staging dir %s", staging.Dir)
		}
	}()

	account, err := aws.CallerAccount(ctx, p.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	report := &Report{
		Account: account,
		Region:  region,
		Bucket:  BucketName(p.BucketPrefix, account, region),
		Version: staging.Version,
	}
	policy := Policy{Bucket: report.Bucket, Account: account, Principal: p.Principal}

	exists := true
	if p.DryRun {
		if exists, err = BucketExists(ctx, p.S3, report.Bucket); err != nil {
			return nil, fmt.Errorf("check bucket: %w", err)
		}
		report.Created = !exists
	} else {
		if report.Created, err = EnsureBucket(ctx, p.S3, report.Bucket, region, policy); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}

	if p.CheckPolicy && exists && !report.Created {
		if report.PolicyDrift, err = p.policyDrift(ctx, policy); err != nil {
			return nil, fmt.Errorf("check policy: %w", err)
		}
	}

	exclude := p.Exclude
	if exclude == nil {
		exclude = []string{DefaultExclude}
	}
	report.Sync, err = Sync(ctx, p.S3, SyncInput{
		Bucket:   report.Bucket,
		Dir:      staging.Dir,
		Exclude:  exclude,
		DryRun:   p.DryRun,
		SkipList: !exists,
	})
	if err != nil {
		return report, fmt.Errorf("sync: %w", err)
	}

	return report, nil
}

func (p *Publisher) policyDrift(ctx context.Context, policy Policy) (string, error) {
	want, err := policy.JSON()
	if err != nil {
		return "", err
	}
	got, err := CurrentPolicy(ctx, p.S3, policy.Bucket)
	if errors.Is(err, ErrBucketNotFound) {
		log.Warnf("bucket %s disappeared before its policy could be checked", policy.Bucket)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	drift, changed, err := differ.Diff(want, []byte(got), differ.Options{Color: p.Color})
	if err != nil {
		return "", err
	}
	if changed {
		log.Warnf("bucket policy of %s differs from the creation policy", policy.Bucket)
	}
	return drift, nil
}
