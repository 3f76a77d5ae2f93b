// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Cmd describes one external tool invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line the way a user would type it.
func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes external tools. Packaging, layer builds and script steps
// all go through a Runner so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
	Output(ctx context.Context, c Cmd) ([]byte, error)
}

// ExitError is returned when a tool could not be started or exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Code < 0 {
		msg = fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec is the Runner backed by os/exec.
type Exec struct {
	// Env is appended to every command's environment before Cmd.Env.
	Env []string
}

var _ Runner = (*Exec)(nil)

// Run executes c, streaming its output to c.Stdout and c.Stderr.
func (x *Exec) Run(ctx context.Context, c Cmd) error {
	cmd := x.command(ctx, c)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	log.Debugf("exec: dir=%s cmd=%s", c.Dir, c)
	return wrap(c, cmd.Run(), "")
}

// Output executes c and returns its standard output. Standard error is
// captured and attached to the returned error.
func (x *Exec) Output(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := x.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, c.Stderr)
	}
	log.Debugf("exec: dir=%s cmd=%s", c.Dir, c)
	out, err := cmd.Output()
	return out, wrap(c, err, strings.TrimSpace(stderr.String()))
}

func (x *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(x.Env) > 0 || len(c.Env) > 0 {
		cmd.Env = append(append(cmd.Environ(), x.Env...), c.Env...)
	}
	return cmd
}

func wrap(c Cmd, err error, stderr string) error {
	if err == nil {
		return nil
	}
	ee := &ExitError{Command: c.String(), Code: -1, Stderr: stderr, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ee.Code = exitErr.ExitCode()
	}
	return ee
}
