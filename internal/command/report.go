// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"path/filepath"

	"github.com/nemo-hyperpod/cfnpack/internal/aggregate"
	"github.com/nemo-hyperpod/cfnpack/internal/layer"
	"github.com/nemo-hyperpod/cfnpack/internal/output"
	"github.com/nemo-hyperpod/cfnpack/internal/packager"
	"github.com/nemo-hyperpod/cfnpack/internal/publish"
)

var stepColumns = []string{"step", "status", "artifact", "size", "entries", "duration"}

// StepsDataset turns aggregated step results into a table. Artifact columns
// are filled in for steps that produced a zip.
func StepsDataset(results []aggregate.StepResult) output.Dataset {
	ds := output.Dataset{Columns: stepColumns}

	var ran, skipped int
	for _, r := range results {
		row := map[string]interface{}{
			"step":     r.Label,
			"status":   r.Status,
			"duration": r.Duration,
		}
		if r.Status == aggregate.StatusSkipped {
			skipped++
			row["status"] = fmt.Sprintf("%s (%s)", r.Status, r.Reason)
		} else {
			ran++
		}

		switch d := r.Detail.(type) {
		case *packager.Result:
			if d != nil {
				artifactRow(row, d.Path, d.Size, d.Entries)
			}
		case *layer.Result:
			if d != nil {
				artifactRow(row, d.Path, d.Size, d.Entries)
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.Footer = fmt.Sprintf("%d ran, %d skipped", ran, skipped)
	return ds
}

func artifactRow(row map[string]interface{}, path string, size int64, entries int) {
	row["artifact"] = filepath.Base(path)
	row["size"] = output.Bytes(size)
	row["entries"] = entries
}

// PublishDatasets renders a publish report as a summary table followed by
// the list of changed keys.
func PublishDatasets(rep *publish.Report) []output.Dataset {
	if rep == nil {
		return nil
	}

	created := "no"
	if rep.Created {
		created = "yes"
		if rep.Sync != nil && rep.Sync.DryRun {
			created = "would create"
		}
	}

	summary := output.Dataset{
		Columns: []string{"account", "region", "bucket", "created", "version"},
		Rows: []map[string]interface{}{{
			"account": rep.Account,
			"region":  rep.Region,
			"bucket":  rep.Bucket,
			"created": created,
			"version": rep.Version,
		}},
	}
	datasets := []output.Dataset{summary}

	if s := rep.Sync; s != nil {
		changes := output.Dataset{Columns: []string{"action", "key"}}
		upload, remove := "upload", "delete"
		if s.DryRun {
			upload, remove = "would upload", "would delete"
		}
		for _, k := range s.Uploaded {
			changes.Rows = append(changes.Rows, map[string]interface{}{"action": upload, "key": k})
		}
		for _, k := range s.Deleted {
			changes.Rows = append(changes.Rows, map[string]interface{}{"action": remove, "key": k})
		}
		changes.Footer = fmt.Sprintf("%d uploaded (%s), %d deleted, %d unchanged, %d excluded",
			len(s.Uploaded), output.Bytes(s.Bytes), len(s.Deleted), s.Unchanged, s.Excluded)
		datasets = append(datasets, changes)
	}

	if rep.PolicyDrift != "" {
		datasets = append(datasets, output.Dataset{
			Header: "bucket policy drift (not re-applied)",
			Footer: rep.PolicyDrift,
		})
	}

	return datasets
}
