// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/packager"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
)

type fakeStep struct {
	label   string
	present bool
	err     error
	ran     bool
}

func (f *fakeStep) Label() string { return f.label }

func (f *fakeStep) Present() (bool, string) {
	if !f.present {
		return false, "not here"
	}
	return true, ""
}

func (f *fakeStep) Run(_ context.Context, w io.Writer) error {
	f.ran = true
	fmt.Fprintf(w, "running %s\n", f.label)
	return f.err
}

func (f *fakeStep) Report() any { return f.label + "-report" }

func TestAggregator_Run(t *testing.T) {
	a := &fakeStep{label: "a", present: true}
	b := &fakeStep{label: "b", present: false}
	c := &fakeStep{label: "c", present: true}
	var out bytes.Buffer

	results, err := (&Aggregator{Out: &out}).Run(context.Background(), []Step{a, b, c})

	require.NoError(t, err)
	assert.True(t, a.ran)
	assert.False(t, b.ran)
	assert.True(t, c.ran)
	assert.Equal(t, "=== a\nrunning a\n--- skipping b: not here\n=== c\nrunning c\n", out.String())

	require.Len(t, results, 3)
	assert.Equal(t, StatusRan, results[0].Status)
	assert.Equal(t, "a-report", results[0].Detail)
	assert.Equal(t, StatusSkipped, results[1].Status)
	assert.Equal(t, "not here", results[1].Reason)
	assert.Nil(t, results[1].Detail)
}

func TestAggregator_AbortsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeStep{label: "a", present: true, err: boom}
	b := &fakeStep{label: "b", present: true}

	results, err := (&Aggregator{}).Run(context.Background(), []Step{a, b})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, "a: boom", err.Error())
	assert.False(t, b.ran)
	assert.Empty(t, results)
}

func TestAggregator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &fakeStep{label: "a", present: true}

	_, err := (&Aggregator{}).Run(ctx, []Step{a})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, a.ran)
}

func TestAggregator_Color(t *testing.T) {
	var out bytes.Buffer

	_, err := (&Aggregator{Out: &out, Color: true}).Run(context.Background(), []Step{&fakeStep{label: "a", present: true}})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== a")
}

// recordingRunner remembers commands and succeeds.
type recordingRunner struct {
	calls []shell.Cmd
}

func (r *recordingRunner) Run(_ context.Context, c shell.Cmd) error {
	r.calls = append(r.calls, c)
	return nil
}

func (r *recordingRunner) Output(ctx context.Context, c shell.Cmd) ([]byte, error) {
	return nil, r.Run(ctx, c)
}

func TestScriptStep_Present(t *testing.T) {
	root := t.TempDir()
	withScript := filepath.Join(root, "with")
	notExec := filepath.Join(root, "noexec")
	require.NoError(t, os.MkdirAll(withScript, 0o755))
	require.NoError(t, os.MkdirAll(notExec, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(withScript, "build.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notExec, "build.sh"), []byte("#!/bin/sh\n"), 0o644))

	tests := []struct {
		name   string
		dir    string
		want   bool
		reason string
	}{
		{"executable script", withScript, true, ""},
		{"not executable", notExec, false, "no executable build.sh"},
		{"missing dir", filepath.Join(root, "missing"), false, "directory not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := (&ScriptStep{Dir: tt.dir, Script: "build.sh"}).Present()
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestScriptStep_Run(t *testing.T) {
	rr := &recordingRunner{}
	s := &ScriptStep{Dir: "/proj/resources/x", Script: "build.sh", Runner: rr}
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), &out))

	require.Len(t, rr.calls, 1)
	assert.Equal(t, "./build.sh", rr.calls[0].Name)
	assert.Equal(t, "/proj/resources/x", rr.calls[0].Dir)
	assert.Equal(t, &out, rr.calls[0].Stdout)
	assert.Equal(t, "/proj/resources/x", s.Label())
}

func TestScriptStep_RunsRealScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.sh"), []byte("#!/bin/sh\necho built in $(basename \"$PWD\")\n"), 0o755))
	var out bytes.Buffer

	s := &ScriptStep{Dir: dir, Script: "build.sh"}
	require.NoError(t, s.Run(context.Background(), &out))

	assert.Equal(t, "built in "+filepath.Base(dir), strings.TrimSpace(out.String()))
}

func TestDefaultScriptEntries(t *testing.T) {
	entries := DefaultScriptEntries()

	require.Len(t, entries, len(packager.DefaultNames())+1)
	assert.Equal(t, ScriptEntry{Dir: filepath.Join("resources", "cert-manager-installer"), Script: "build.sh"}, entries[0])
	assert.Equal(t, ScriptEntry{Dir: filepath.Join("layers", "kubectl"), Script: "build.sh"}, entries[len(entries)-1])
}

func TestScriptSteps(t *testing.T) {
	saved := config.Config
	t.Cleanup(func() { config.Config = saved })

	config.Config = config.Type{Source: "test", Data: map[string]interface{}{"x": 1}}
	steps, err := ScriptSteps("/proj", nil)
	require.NoError(t, err)
	assert.Len(t, steps, 11)
	assert.Equal(t, filepath.Join("resources", "cert-manager-installer"), steps[0].Label())

	config.Config = config.Type{Source: "test", Data: map[string]interface{}{
		"aggregate": map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{"dir": "custom"},
				map[string]interface{}{"dir": "/abs/dir", "script": "make.sh"},
			},
		},
	}}
	steps, err = ScriptSteps("/proj", nil)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	first := steps[0].(*ScriptStep)
	assert.Equal(t, "/proj/custom", first.Dir)
	assert.Equal(t, "build.sh", first.Script)
	second := steps[1].(*ScriptStep)
	assert.Equal(t, "/abs/dir", second.Dir)
	assert.Equal(t, "make.sh", second.Script)

	config.Config = config.Type{Source: "test", Data: map[string]interface{}{
		"aggregate": map[string]interface{}{"steps": []interface{}{map[string]interface{}{"script": "x.sh"}}},
	}}
	_, err = ScriptSteps("/proj", nil)
	assert.Error(t, err)
}

func TestPackageStep_Present(t *testing.T) {
	s := &PackageStep{Resource: packager.Resource{Name: "x", Dir: filepath.Join(t.TempDir(), "missing")}}

	ok, reason := s.Present()

	assert.False(t, ok)
	assert.Equal(t, "directory not found", reason)
	assert.Equal(t, "x", s.Label())
}
