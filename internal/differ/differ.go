// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Options tune the rendering of a diff.
type Options struct {
	Color bool
	// Ignore lists top-level keys dropped from both documents before they
	// are compared.
	Ignore []string
}

// Diff compares two JSON documents. It returns an ASCII rendering of the
// differences relative to want, and whether they differ at all. An empty got
// is treated as an empty object.
func Diff(want, got []byte, opts Options) (string, bool, error) {
	log.Debugf("diff: len(want)=%d len(got)=%d", len(want), len(got))

	left, err := prune(want, opts.Ignore)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse desired document: %w", err)
	}
	right, err := prune(got, opts.Ignore)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse current document: %w", err)
	}

	delta := gojsondiff.New().CompareObjects(left, right)
	if !delta.Modified() {
		return "", false, nil
	}

	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       opts.Color,
	})
	s, err := f.Format(delta)
	if err != nil {
		return "", true, err
	}
	return s, true, nil
}

func prune(doc []byte, ignore []string) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	if len(doc) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, err
	}
	for _, k := range ignore {
		delete(m, k)
	}
	return m, nil
}
