// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package publish

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBucketName(t *testing.T) {
	assert.Equal(t, "nemo-hyperpod-templates-123456789012-us-west-2", BucketName("", "123456789012", "us-west-2"))
	assert.Equal(t, "custom-1-eu-west-1", BucketName("custom", "1", "eu-west-1"))
}

func TestPolicyJSON(t *testing.T) {
	doc, err := Policy{Bucket: "b", Account: "123"}.JSON()
	require.NoError(t, err)
	require.True(t, json.Valid(doc))

	p := gjson.ParseBytes(doc)
	assert.Equal(t, "2012-10-17", p.Get("Version").String())
	assert.Equal(t, "cloudformation.amazonaws.com", p.Get("Statement.0.Principal.Service").String())
	assert.Equal(t, "s3:*", p.Get("Statement.0.Action").String())
	var resources []string
	for _, r := range p.Get("Statement.0.Resource").Array() {
		resources = append(resources, r.String())
	}
	assert.Equal(t, []string{"arn:aws:s3:::b", "arn:aws:s3:::b/*"}, resources)
	assert.Equal(t, "123", p.Get(`Statement.0.Condition.StringEquals.aws:SourceAccount`).String())

	custom, err := Policy{Bucket: "b", Account: "1", Principal: "lambda.amazonaws.com"}.JSON()
	require.NoError(t, err)
	assert.Equal(t, "lambda.amazonaws.com", gjson.GetBytes(custom, "Statement.0.Principal.Service").String())
}

func TestEnsureBucket_Creates(t *testing.T) {
	tests := []struct {
		region     string
		constraint types.BucketLocationConstraint
	}{
		{"us-east-1", ""},
		{"us-west-2", types.BucketLocationConstraint("us-west-2")},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			f := newFakeS3()

			created, err := EnsureBucket(context.Background(), f, "bkt", tt.region, Policy{Bucket: "bkt", Account: "123"})

			require.NoError(t, err)
			assert.True(t, created)
			require.Len(t, f.created, 1)
			if tt.constraint == "" {
				assert.Nil(t, f.created[0].CreateBucketConfiguration)
			} else {
				require.NotNil(t, f.created[0].CreateBucketConfiguration)
				assert.Equal(t, tt.constraint, f.created[0].CreateBucketConfiguration.LocationConstraint)
			}
			assert.Equal(t, "123", gjson.Get(f.policies["bkt"], `Statement.0.Condition.StringEquals.aws:SourceAccount`).String())
		})
	}
}

func TestEnsureBucket_Existing(t *testing.T) {
	f := newFakeS3()
	f.buckets["bkt"] = map[string][]byte{}
	f.policies["bkt"] = `{"edited":"by hand"}`

	created, err := EnsureBucket(context.Background(), f, "bkt", "us-west-2", Policy{Bucket: "bkt", Account: "123"})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, f.created)
	assert.Equal(t, `{"edited":"by hand"}`, f.policies["bkt"], "policy is never re-applied")
}

func TestEnsureBucket_HeadError(t *testing.T) {
	f := newFakeS3()
	f.headErr = errAccessDenied

	_, err := EnsureBucket(context.Background(), f, "bkt", "us-east-1", Policy{})

	assert.ErrorIs(t, err, errAccessDenied)
	assert.Empty(t, f.created)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&types.NoSuchBucket{}))
	assert.True(t, isNotFound(&apiError{code: "NotFound"}))
	assert.False(t, isNotFound(&apiError{code: "AccessDenied"}))
	assert.False(t, isNotFound(errAccessDenied))
}

func TestCurrentPolicy(t *testing.T) {
	f := newFakeS3()
	f.buckets["bkt"] = map[string][]byte{}

	got, err := CurrentPolicy(context.Background(), f, "bkt")
	require.NoError(t, err)
	assert.Empty(t, got)

	f.policies["bkt"] = `{"Version":"2012-10-17"}`
	got, err = CurrentPolicy(context.Background(), f, "bkt")
	require.NoError(t, err)
	assert.Equal(t, `{"Version":"2012-10-17"}`, got)
}

func TestBucketExists(t *testing.T) {
	f := newFakeS3()

	ok, err := BucketExists(context.Background(), f, "bkt")
	require.NoError(t, err)
	assert.False(t, ok)

	f.buckets["bkt"] = map[string][]byte{}
	ok, err = BucketExists(context.Background(), f, "bkt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCurrentPolicy_MissingBucket(t *testing.T) {
	f := newFakeS3()

	_, err := CurrentPolicy(context.Background(), f, "gone")

	assert.ErrorIs(t, err, ErrBucketNotFound)
}
