// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/shell"
)

const (
	DefaultImage        = "cfnpack-kubectl-layer:latest"
	DefaultArtifactPath = "/layer.zip"
)

// Container builds the layer inside a Docker image whose build leaves the
// finished zip at ArtifactPath, then copies it out of a throwaway container.
type Container struct {
	// Context is the docker build context holding the Dockerfile.
	Context      string
	Dockerfile   string
	Image        string
	ArtifactPath string
	Versions     Versions
	Arch         string
	Runner       shell.Runner
	Stdout       io.Writer
	Stderr       io.Writer
}

var _ Strategy = (*Container)(nil)

func (c *Container) Name() string { return "container" }

func (c *Container) Build(ctx context.Context, _ string, outZip string) error {
	c.defaults()

	if err := c.docker(ctx, c.buildArgs()...); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}

	out, err := c.Runner.Output(ctx, shell.Cmd{Name: "docker", Args: []string{"image", "inspect", c.Image}, Stderr: c.Stderr})
	if err != nil {
		return fmt.Errorf("image inspect failed: %w", err)
	}
	if err := checkArch(out, c.Arch); err != nil {
		return err
	}

	id, err := c.Runner.Output(ctx, shell.Cmd{Name: "docker", Args: []string{"create", c.Image}, Stderr: c.Stderr})
	if err != nil {
		return fmt.Errorf("container create failed: %w", err)
	}
	container := strings.TrimSpace(string(id))
	if container == "" {
		return errors.New("docker create returned no container id")
	}

	defer func() {
		// Runs even when ctx has been cancelled.
		if err := c.docker(context.WithoutCancel(ctx), "rm", "-f", container); err != nil {
			log.WithError(err).Warnf("failed to remove container %s", container)
		}
	}()

	if err := c.docker(ctx, "cp", container+":"+c.ArtifactPath, outZip); err != nil {
		return fmt.Errorf("failed to copy layer out of container: %w", err)
	}
	return nil
}

func (c *Container) defaults() {
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.ArtifactPath == "" {
		c.ArtifactPath = DefaultArtifactPath
	}
	if c.Arch == "" {
		c.Arch = "amd64"
	}
	if c.Runner == nil {
		c.Runner = &shell.Exec{}
	}
	if c.Stdout == nil {
		c.Stdout = io.Discard
	}
	if c.Stderr == nil {
		c.Stderr = io.Discard
	}
}

func (c *Container) buildArgs() []string {
	args := []string{"build", "--platform", "linux/" + c.Arch, "-t", c.Image}
	for _, kv := range [][2]string{
		{"KUBECTL_VERSION", c.Versions.Kubectl},
		{"AWS_IAM_AUTHENTICATOR_VERSION", c.Versions.Authenticator},
		{"HELM_VERSION", c.Versions.Helm},
	} {
		if kv[1] != "" {
			args = append(args, "--build-arg", kv[0]+"="+kv[1])
		}
	}
	if c.Dockerfile != "" {
		args = append(args, "-f", filepath.Join(c.Context, c.Dockerfile))
	}
	return append(args, c.Context)
}

func (c *Container) docker(ctx context.Context, args ...string) error {
	return c.Runner.Run(ctx, shell.Cmd{Name: "docker", Args: args, Stdout: c.Stdout, Stderr: c.Stderr})
}

// checkArch verifies the inspected image was built for arch. inspect is the
// JSON array printed by docker image inspect.
func checkArch(inspect []byte, arch string) error {
	if !gjson.ValidBytes(inspect) {
		return errors.New("image inspect returned invalid JSON")
	}
	got := gjson.GetBytes(inspect, "0.Architecture")
	if !got.Exists() {
		return errors.New("image inspect returned no architecture")
	}
	if got.String() != arch {
		return fmt.Errorf("image architecture is %s, want %s", got.String(), arch)
	}
	log.Debugf("image architecture ok: arch=%s os=%s", arch, gjson.GetBytes(inspect, "0.Os").String())
	return nil
}
