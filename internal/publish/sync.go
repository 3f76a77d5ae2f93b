// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

const DefaultExclude = "blueprints/"

// deleteBatch is the DeleteObjects limit.
const deleteBatch = 1000

// SyncInput describes one reconciliation of a local tree into a bucket.
type SyncInput struct {
	Bucket string
	Dir    string
	// Exclude lists key prefixes that are neither uploaded nor deleted.
	Exclude []string
	DryRun  bool
	// SkipList treats the bucket as empty. Used for dry runs against a bucket
	// that does not exist yet.
	SkipList bool
}

// SyncReport summarises a sync.
type SyncReport struct {
	Bucket    string   `json:"bucket" yaml:"bucket"`
	DryRun    bool     `json:"dry_run" yaml:"dry_run"`
	Uploaded  []string `json:"uploaded" yaml:"uploaded"`
	Deleted   []string `json:"deleted" yaml:"deleted"`
	Unchanged int      `json:"unchanged" yaml:"unchanged"`
	Excluded  int      `json:"excluded" yaml:"excluded"`
	Bytes     int64    `json:"bytes" yaml:"bytes"`
}

type localFile struct {
	path string
	size int64
}

// Sync makes the bucket mirror in.Dir. Objects that are new or whose size
// differs are uploaded and objects with no local counterpart are deleted.
// Keys under an excluded prefix are left untouched on both sides.
func Sync(ctx context.Context, api S3API, in SyncInput) (*SyncReport, error) {
	report := &SyncReport{Bucket: in.Bucket, DryRun: in.DryRun}

	local, excluded, err := walkLocal(in.Dir, in.Exclude)
	if err != nil {
		return nil, err
	}
	report.Excluded = excluded

	remote := map[string]int64{}
	if !in.SkipList {
		if remote, err = listRemote(ctx, api, in.Bucket); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(local))
	for k := range local {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f := local[key]
		if size, ok := remote[key]; ok && size == f.size {
			report.Unchanged++
			continue
		}
		if !in.DryRun {
			if err := upload(ctx, api, in.Bucket, key, f.path); err != nil {
				return report, err
			}
		}
		report.Uploaded = append(report.Uploaded, key)
		report.Bytes += f.size
	}

	var doomed []string
	for key := range remote {
		if _, ok := local[key]; ok || excludedKey(key, in.Exclude) {
			continue
		}
		doomed = append(doomed, key)
	}
	sort.Strings(doomed)

	if !in.DryRun {
		if err := deleteKeys(ctx, api, in.Bucket, doomed); err != nil {
			return report, err
		}
	}
	report.Deleted = doomed

	log.Debugf("sync done: bucket=%s uploaded=%d deleted=%d unchanged=%d", in.Bucket, len(report.Uploaded), len(report.Deleted), report.Unchanged)
	return report, nil
}

func excludedKey(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func walkLocal(dir string, exclude []string) (map[string]localFile, int, error) {
	files := map[string]localFile{}
	excluded := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if excludedKey(key, exclude) {
			excluded++
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files[key] = localFile{path: p, size: fi.Size()}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, excluded, nil
}

func listRemote(ctx context.Context, api S3API, bucket string) (map[string]int64, error) {
	objects := map[string]int64{}
	p := s3.NewListObjectsV2Paginator(api, &s3.ListObjectsV2Input{Bucket: awsv2.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", bucket, err)
		}
		for _, o := range page.Contents {
			objects[awsv2.ToString(o.Key)] = awsv2.ToInt64(o.Size)
		}
	}
	return objects, nil
}

func upload(ctx context.Context, api S3API, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket:        awsv2.String(bucket),
		Key:           awsv2.String(key),
		Body:          f,
		ContentLength: awsv2.Int64(fi.Size()),
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		in.ContentType = awsv2.String(ct)
	}

	log.Debugf("upload: s3://%s/%s", bucket, key)
	if _, err := api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func deleteKeys(ctx context.Context, api S3API, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			log.Debugf("delete: s3://%s/%s", bucket, k)
			ids = append(ids, types.ObjectIdentifier{Key: awsv2.String(k)})
		}

		out, err := api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: awsv2.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: awsv2.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects in %s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			var errs []error
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("%s: %s", awsv2.ToString(e.Key), awsv2.ToString(e.Message)))
			}
			return fmt.Errorf("delete objects in %s: %w", bucket, errors.Join(errs...))
		}
	}
	return nil
}
