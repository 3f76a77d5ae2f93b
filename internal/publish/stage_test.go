// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package publish

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemo-hyperpod/cfnpack/internal/shell"
)

func fixedRevision(rev string) RevisionFunc {
	return func(context.Context, string) (string, error) { return rev, nil }
}

// newProject lays out a minimal CloudFormation project.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for p, body := range map[string]string{
		"templates/main-stack.yaml":                         "Resources: {}\n",
		"templates/nested/ignored.yaml":                     "x\n",
		"templates-slurm/slurm-stack.yaml":                  "Resources: {}\n",
		"resources/artifacts/coredns-restart.zip":           "zip",
		"resources/coredns-restart/lambda_function/main.py": "pass\n",
		"blueprints/local-only.yaml":                        "b\n",
	} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return root
}

func listTree(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		files = append(files, filepath.ToSlash(rel))
		return nil
	}))
	sort.Strings(files)
	return files
}

func TestStage(t *testing.T) {
	root := newProject(t)

	st, err := Stage(context.Background(), StageInput{RootDir: root, Revision: fixedRevision("abc1234")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".staging"), st.Dir)
	assert.Equal(t, "abc1234", st.Version)

	v, err := os.ReadFile(filepath.Join(st.Dir, VersionFile))
	require.NoError(t, err)
	assert.Equal(t, "abc1234", strings.TrimSpace(string(v)))

	files := listTree(t, st.Dir)
	assert.Equal(t, []string{
		"1/resources/artifacts/coredns-restart.zip",
		"1/resources/coredns-restart/lambda_function/main.py",
		"1/templates-slurm/slurm-stack.yaml",
		"1/templates/main-stack.yaml",
		"VERSION",
		"resources/artifacts/coredns-restart.zip",
		"resources/coredns-restart/lambda_function/main.py",
		"templates-slurm/slurm-stack.yaml",
		"templates/main-stack.yaml",
	}, files)
}

func TestStage_SnapshotDuplicatesTopLevel(t *testing.T) {
	root := newProject(t)

	st, err := Stage(context.Background(), StageInput{RootDir: root, Snapshot: "7", Revision: fixedRevision("r")})
	require.NoError(t, err)

	for _, tree := range []string{"templates", "templates-slurm", "resources"} {
		assert.Equal(t, listTree(t, filepath.Join(st.Dir, tree)), listTree(t, filepath.Join(st.Dir, "7", tree)), tree)
	}
}

func TestStage_ClearsPreviousContents(t *testing.T) {
	root := newProject(t)
	stale := filepath.Join(root, ".staging", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	_, err := Stage(context.Background(), StageInput{RootDir: root, Revision: fixedRevision("r")})

	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestStage_MissingTrees(t *testing.T) {
	root := newProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "templates-slurm")))

	st, err := Stage(context.Background(), StageInput{RootDir: root, Revision: fixedRevision("r")})
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(st.Dir, "templates-slurm"))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "templates")))
	_, err = Stage(context.Background(), StageInput{RootDir: root, Revision: fixedRevision("r")})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoDirExists(t, st.Dir)
}

func TestStage_RevisionError(t *testing.T) {
	root := newProject(t)
	boom := errors.New("not a git repository")

	_, err := Stage(context.Background(), StageInput{
		RootDir:  root,
		Revision: func(context.Context, string) (string, error) { return "", boom },
	})

	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, filepath.Join(root, ".staging"))
}

type gitRunner struct {
	out string
	cmd shell.Cmd
}

func (g *gitRunner) Run(context.Context, shell.Cmd) error { return nil }

func (g *gitRunner) Output(_ context.Context, c shell.Cmd) ([]byte, error) {
	g.cmd = c
	return []byte(g.out), nil
}

func TestGitRevision(t *testing.T) {
	g := &gitRunner{out: "9f8e7d6\n"}

	rev, err := GitRevision(g)(context.Background(), "/proj")

	require.NoError(t, err)
	assert.Equal(t, "9f8e7d6", rev)
	assert.Equal(t, "git rev-parse --short HEAD", g.cmd.String())
	assert.Equal(t, "/proj", g.cmd.Dir)

	_, err = GitRevision(&gitRunner{out: "  \n"})(context.Background(), "/proj")
	assert.Error(t, err)
}
