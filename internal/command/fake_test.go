// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/aws"
	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/publish"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
)

// fakeRunner stands in for python, pip, git and the build scripts.
type fakeRunner struct {
	calls []shell.Cmd
}

func (f *fakeRunner) Run(_ context.Context, c shell.Cmd) error {
	f.calls = append(f.calls, c)
	switch {
	case len(c.Args) >= 3 && c.Args[0] == "-m" && c.Args[1] == "venv":
		return os.MkdirAll(filepath.Join(c.Args[2], "bin"), 0o755)
	case len(c.Args) >= 5 && c.Args[0] == "install" && c.Args[1] == "-r":
		dst := filepath.Join(c.Args[4], "kubernetes", "__init__.py")
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dst, []byte("# kubernetes\n"), 0o644)
	}
	if c.Stdout != nil {
		_, _ = io.WriteString(c.Stdout, "ran "+c.Name+"\n")
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, c shell.Cmd) ([]byte, error) {
	if c.Name == "git" {
		f.calls = append(f.calls, c)
		return []byte("abc1234\n"), nil
	}
	return nil, f.Run(ctx, c)
}

// memS3 is a single-page in-memory S3.
type memS3 struct {
	objects map[string]map[string][]byte
	created []string
}

func (m *memS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if _, ok := m.objects[awsv2.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *memS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.objects[awsv2.ToString(in.Bucket)] = map[string][]byte{}
	m.created = append(m.created, awsv2.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (m *memS3) PutBucketPolicy(_ context.Context, _ *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	return &s3.PutBucketPolicyOutput{}, nil
}

func (m *memS3) GetBucketPolicy(_ context.Context, _ *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	return &s3.GetBucketPolicyOutput{Policy: awsv2.String("{}")}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	objs := m.objects[awsv2.ToString(in.Bucket)]
	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: awsv2.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k), Size: awsv2.Int64(int64(len(objs[k])))})
	}
	return out, nil
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var b bytes.Buffer
	if _, err := io.Copy(&b, in.Body); err != nil {
		return nil, err
	}
	m.objects[awsv2.ToString(in.Bucket)][awsv2.ToString(in.Key)] = b.Bytes()
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	objs := m.objects[awsv2.ToString(in.Bucket)]
	for _, o := range in.Delete.Objects {
		delete(objs, awsv2.ToString(o.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

type stubSTS struct{}

func (stubSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: awsv2.String("123456789012")}, nil
}

// harness swaps the package-level writers, runner and AWS clients for the
// duration of a test.
type harness struct {
	out    *bytes.Buffer
	errOut *bytes.Buffer
	runner *fakeRunner
	s3     *memS3
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		runner: &fakeRunner{},
		s3:     &memS3{objects: map[string]map[string][]byte{}},
	}

	savedOut, savedErr, savedRunner, savedClients, savedCfg := stdout, stderr, runner, awsClients, config.Config
	t.Cleanup(func() {
		stdout, stderr, runner, awsClients, config.Config = savedOut, savedErr, savedRunner, savedClients, savedCfg
	})

	stdout, stderr, runner = h.out, h.errOut, h.runner
	awsClients = func(context.Context, *cli.Command) (publish.S3API, aws.IdentityAPI, error) {
		return h.s3, stubSTS{}, nil
	}
	t.Setenv("CFNPACK_CFG_FILE", "")
	t.Setenv("NO_COLOR", "1")
	// Flag env sources count even when empty, so drop them entirely.
	for _, k := range []string{"AWS_REGION", "AWS_PROFILE", "CFNPACK_ARTIFACTS", "CFNPACK_PYTHON"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return h
}

// run initialises the app the way main does and runs it.
func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	args = append([]string{"cfnpack"}, args...)
	app, err := InitApp(context.Background(), args)
	require.NoError(t, err)
	return app.Run(context.Background(), args)
}

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
	require.NoError(t, os.Chmod(path, mode))
}
