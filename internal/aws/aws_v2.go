// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"errors"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// options holds optional overrides for AWS config loading.
type options struct {
	profile string
	region  string
	retryer func() awsv2.Retryer
}

// Option customizes how AWS config is loaded.
// Default behavior (no options) inherits the shell environment and shared
// config chain (AWS_PROFILE, ~/.aws/config, ~/.aws/credentials, IMDS, etc.).
type Option func(*options)

// IdentityAPI is the subset of the STS client used to resolve the caller.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// errNoAccount is returned when STS answers without an account ID.
var errNoAccount = errors.New("caller identity has no account")

// LoadAWSConfig loads AWS SDK v2 config. By default it inherits the shell's
// AWS setup (AWS_PROFILE, shared config, env, IMDS). Options can override
// profile, region, and retryer without changing callers.
func LoadAWSConfig(ctx context.Context, opts ...Option) (awsv2.Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log.Debugf("opts applied: profile=%s, region=%s", o.profile, o.region)

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	if o.retryer != nil {
		loadOpts = append(loadOpts, config.WithRetryer(o.retryer))
	}
	log.Debugf("loadOpts built: len=%d", len(loadOpts))

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Debugf("config load err: err=%v", err)
		return awsv2.Config{}, err
	}
	log.Debugf("config loaded: region=%s", cfg.Region)
	return cfg, nil
}

// NewS3 constructs a v2 S3 client from the provided config. Additional service
// options can be supplied via optFns.
func NewS3(cfg awsv2.Config, optFns ...func(*s3v2.Options)) *s3v2.Client {
	client := s3v2.NewFromConfig(cfg, optFns...)
	log.Debugf("s3 client created")
	return client
}

// NewSTS constructs a v2 STS client from the provided config.
func NewSTS(cfg awsv2.Config, optFns ...func(*sts.Options)) *sts.Client {
	client := sts.NewFromConfig(cfg, optFns...)
	log.Debugf("sts client created")
	return client
}

// CallerAccount returns the account ID of the credentials in use.
func CallerAccount(ctx context.Context, api IdentityAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	if out.Account == nil || *out.Account == "" {
		return "", errNoAccount
	}
	log.Debugf("caller identity resolved: account=%s", *out.Account)
	return *out.Account, nil
}

// WithProfile sets the shared config profile. Defaults to AWS_PROFILE/env chain.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRegion sets the region override. Defaults to env/profile/metadata chain.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithRetryer injects a custom retryer; if not set, SDK defaults are used.
func WithRetryer(newRetryer func() awsv2.Retryer) Option {
	return func(o *options) { o.retryer = newRetryer }
}

// StandardRetryer returns a retryer factory for the SDK's standard retry mode
// capped at maxAttempts. Values below 1 keep the SDK default.
func StandardRetryer(maxAttempts int) func() awsv2.Retryer {
	return func() awsv2.Retryer {
		if maxAttempts < 1 {
			return retry.NewStandard()
		}
		return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
	}
}

// WithS3EndpointResolver allows callers to set the S3 EndpointResolverV2
// in a type-safe way when constructing the client.
func WithS3EndpointResolver(r s3v2.EndpointResolverV2) func(*s3v2.Options) {
	return func(o *s3v2.Options) {
		o.EndpointResolverV2 = r
	}
}

// WithS3Endpoint points the client at an S3-compatible endpoint such as a
// local MinIO, using path-style addressing. An empty url is a no-op.
func WithS3Endpoint(url string) func(*s3v2.Options) {
	return func(o *s3v2.Options) {
		if url == "" {
			return
		}
		WithS3EndpointResolver(StaticS3Endpoint(url))(o)
		o.UsePathStyle = true
	}
}

// StaticS3Endpoint resolves every request against url while keeping the
// SDK's bucket addressing rules.
func StaticS3Endpoint(url string) s3v2.EndpointResolverV2 {
	return staticEndpoint{url: url, next: s3v2.NewDefaultEndpointResolverV2()}
}

type staticEndpoint struct {
	url  string
	next s3v2.EndpointResolverV2
}

func (r staticEndpoint) ResolveEndpoint(ctx context.Context, p s3v2.EndpointParameters) (smithyendpoints.Endpoint, error) {
	p.Endpoint = awsv2.String(r.url)
	return r.next.ResolveEndpoint(ctx, p)
}
