// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package aws

import (
	"context"
	"errors"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentity is a canned IdentityAPI.
type fakeIdentity struct {
	account *string
	err     error
}

func (f *fakeIdentity) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: f.account}, nil
}

// TestWithProfile verifies that WithProfile sets the profile option
// correctly.
func TestWithProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		expected string
	}{
		{name: "empty profile", profile: "", expected: ""},
		{name: "default profile", profile: "default", expected: "default"},
		{name: "custom profile", profile: "hyperpod-dev", expected: "hyperpod-dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts options
			WithProfile(tt.profile)(&opts)
			assert.Equal(t, tt.expected, opts.profile)
		})
	}
}

// TestWithRegion verifies that WithRegion sets the region option
// correctly.
func TestWithRegion(t *testing.T) {
	tests := []struct {
		name     string
		region   string
		expected string
	}{
		{name: "empty region", region: "", expected: ""},
		{name: "us-east-1", region: "us-east-1", expected: "us-east-1"},
		{name: "eu-west-1", region: "eu-west-1", expected: "eu-west-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts options
			WithRegion(tt.region)(&opts)
			assert.Equal(t, tt.expected, opts.region)
		})
	}
}

// TestWithRetryer verifies that WithRetryer sets the retryer function
// option.
func TestWithRetryer(t *testing.T) {
	var opts options
	WithRetryer(func() awsv2.Retryer { return retry.NewStandard() })(&opts)

	require.NotNil(t, opts.retryer)
	assert.NotNil(t, opts.retryer())
}

// TestStandardRetryer verifies the attempt cap and the fallback to SDK
// defaults.
func TestStandardRetryer(t *testing.T) {
	assert.Equal(t, 7, StandardRetryer(7)().MaxAttempts())
	assert.Equal(t, retry.NewStandard().MaxAttempts(), StandardRetryer(0)().MaxAttempts())
}

// TestLoadAWSConfig_WithRegion verifies that region option is applied
// during config loading.
func TestLoadAWSConfig_WithRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), WithRegion("us-west-2"))

	assert.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
}

// TestLoadAWSConfig_OptionsOrder verifies that later options override
// earlier ones.
func TestLoadAWSConfig_OptionsOrder(t *testing.T) {
	cfg, err := LoadAWSConfig(
		context.Background(),
		WithRegion("us-east-1"),
		WithRegion("eu-west-1"),
		WithRetryer(StandardRetryer(3)),
	)

	assert.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
}

// TestLoadAWSConfig_UnknownProfile verifies a missing shared profile is
// reported rather than silently ignored.
func TestLoadAWSConfig_UnknownProfile(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/credentials")

	_, err := LoadAWSConfig(context.Background(), WithProfile("does-not-exist"))
	assert.Error(t, err)
}

// TestNewClients verifies client construction from a loaded config.
func TestNewClients(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), WithRegion("ap-northeast-1"))
	require.NoError(t, err)

	assert.IsType(t, &s3v2.Client{}, NewS3(cfg))
	assert.IsType(t, &sts.Client{}, NewSTS(cfg))
}

// TestCallerAccount covers the STS answer shapes.
func TestCallerAccount(t *testing.T) {
	t.Run("account returned", func(t *testing.T) {
		acct, err := CallerAccount(context.Background(), &fakeIdentity{account: awsv2.String("123456789012")})
		require.NoError(t, err)
		assert.Equal(t, "123456789012", acct)
	})

	t.Run("empty account", func(t *testing.T) {
		_, err := CallerAccount(context.Background(), &fakeIdentity{account: awsv2.String("")})
		assert.ErrorIs(t, err, errNoAccount)
	})

	t.Run("api error", func(t *testing.T) {
		boom := errors.New("expired token")
		_, err := CallerAccount(context.Background(), &fakeIdentity{err: boom})
		assert.ErrorIs(t, err, boom)
	})
}

func TestWithS3Endpoint(t *testing.T) {
	c := NewS3(awsv2.Config{Region: "us-east-1"}, WithS3Endpoint("http://localhost:9000"))
	assert.True(t, c.Options().UsePathStyle)
	require.NotNil(t, c.Options().EndpointResolverV2)

	ep, err := c.Options().EndpointResolverV2.ResolveEndpoint(context.Background(), s3v2.EndpointParameters{
		Bucket:         awsv2.String("bkt"),
		Region:         awsv2.String("us-east-1"),
		ForcePathStyle: awsv2.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", ep.URI.Host)
	assert.Contains(t, ep.URI.Path, "bkt")
}

func TestWithS3Endpoint_Empty(t *testing.T) {
	o := s3v2.Options{}
	WithS3Endpoint("")(&o)

	assert.False(t, o.UsePathStyle)
	assert.Nil(t, o.EndpointResolverV2)
}
