// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

const (
	DefaultBucketPrefix = "nemo-hyperpod-templates"
	DefaultPrincipal    = "cloudformation.amazonaws.com"
	DefaultRegion       = "us-east-1"
)

// ErrBucketNotFound is returned when a bucket does not exist.
var ErrBucketNotFound = errors.New("bucket not found")

// S3API is the subset of the S3 client the publisher uses.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// BucketName derives the per-account, per-region bucket name.
func BucketName(prefix, account, region string) string {
	if prefix == "" {
		prefix = DefaultBucketPrefix
	}
	return fmt.Sprintf("%s-%s-%s", prefix, account, region)
}

// Policy grants a service principal full access to the bucket, restricted to
// requests made on behalf of the owning account.
type Policy struct {
	Bucket    string
	Account   string
	Principal string
}

type policyDoc struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal map[string]string            `json:"Principal"`
	Action    string                       `json:"Action"`
	Resource  []string                     `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition"`
}

// JSON renders the policy document.
func (p Policy) JSON() ([]byte, error) {
	principal := p.Principal
	if principal == "" {
		principal = DefaultPrincipal
	}
	arn := "arn:aws:s3:::" + p.Bucket
	doc := policyDoc{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "AllowServiceAccess",
			Effect:    "Allow",
			Principal: map[string]string{"Service": principal},
			Action:    "s3:*",
			Resource:  []string{arn, arn + "/*"},
			Condition: map[string]map[string]string{
				"StringEquals": {"aws:SourceAccount": p.Account},
			},
		}},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// BucketExists reports whether the bucket exists and is reachable.
func BucketExists(ctx context.Context, api S3API, bucket string) (bool, error) {
	_, err := api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awsv2.String(bucket)})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("head bucket %s: %w", bucket, err)
	}
}

// EnsureBucket creates the bucket and attaches the policy when the bucket
// does not exist yet. An existing bucket is left alone, its policy included.
// Reports whether the bucket was created.
func EnsureBucket(ctx context.Context, api S3API, bucket, region string, policy Policy) (bool, error) {
	exists, err := BucketExists(ctx, api, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		log.Debugf("bucket exists: bucket=%s", bucket)
		return false, nil
	}

	in := &s3.CreateBucketInput{Bucket: awsv2.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if region != "" && region != DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := api.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			log.Debugf("bucket created concurrently: bucket=%s", bucket)
			return false, nil
		}
		return false, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	log.Infof("created bucket %s in %s", bucket, region)

	doc, err := policy.JSON()
	if err != nil {
		return true, err
	}
	if _, err := api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: awsv2.String(bucket),
		Policy: awsv2.String(string(doc)),
	}); err != nil {
		return true, fmt.Errorf("put bucket policy %s: %w", bucket, err)
	}
	return true, nil
}

// CurrentPolicy returns the bucket's policy document, or an empty string when
// it has none.
func CurrentPolicy(ctx context.Context, api S3API, bucket string) (string, error) {
	out, err := api.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: awsv2.String(bucket)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucketPolicy" {
			return "", nil
		}
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", bucket, ErrBucketNotFound)
		}
		return "", fmt.Errorf("get bucket policy %s: %w", bucket, err)
	}
	return awsv2.ToString(out.Policy), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
