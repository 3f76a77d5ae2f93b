// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package publish

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// fakeS3 is an in-memory bucket store implementing S3API.
type fakeS3 struct {
	buckets  map[string]map[string][]byte
	policies map[string]string
	created  []*s3.CreateBucketInput
	puts     []string
	deletes  [][]string
	pageSize int
	headErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets:  map[string]map[string][]byte{},
		policies: map[string]string{},
		pageSize: 2,
	}
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.buckets[awsv2.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, in)
	f.buckets[awsv2.ToString(in.Bucket)] = map[string][]byte{}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	f.policies[awsv2.ToString(in.Bucket)] = awsv2.ToString(in.Policy)
	return &s3.PutBucketPolicyOutput{}, nil
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, in *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if _, ok := f.buckets[awsv2.ToString(in.Bucket)]; !ok {
		return nil, &types.NoSuchBucket{}
	}
	p, ok := f.policies[awsv2.ToString(in.Bucket)]
	if !ok {
		return nil, &apiError{code: "NoSuchBucketPolicy"}
	}
	return &s3.GetBucketPolicyOutput{Policy: awsv2.String(p)}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	objs, ok := f.buckets[awsv2.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: awsv2.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k), Size: awsv2.Int64(int64(len(objs[k])))})
	}
	if end < len(keys) {
		out.NextContinuationToken = awsv2.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	objs, ok := f.buckets[awsv2.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := awsv2.ToString(in.Key)
	objs[key] = b
	f.puts = append(f.puts, key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	objs := f.buckets[awsv2.ToString(in.Bucket)]
	var batch []string
	for _, o := range in.Delete.Objects {
		k := awsv2.ToString(o.Key)
		delete(objs, k)
		batch = append(batch, k)
	}
	f.deletes = append(f.deletes, batch)
	return &s3.DeleteObjectsOutput{}, nil
}

// apiError is a minimal smithy.APIError.
type apiError struct {
	code string
}

func (e *apiError) Error() string { return e.code }

func (e *apiError) ErrorCode() string { return e.code }

func (e *apiError) ErrorMessage() string { return e.code }

func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ smithy.APIError = (*apiError)(nil)

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: awsv2.String(f.account)}, nil
}

var errAccessDenied = errors.New("AccessDenied")
