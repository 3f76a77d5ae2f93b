// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package packager

import (
	"fmt"
	"path/filepath"

	"github.com/nemo-hyperpod/cfnpack/internal/config"
)

const (
	DefaultSource   = "lambda_function.py"
	DefaultManifest = "requirements.txt"
)

// Resource is one Lambda-backed custom resource: a directory holding a
// single source file and a pip requirements manifest.
type Resource struct {
	Name     string `yaml:"name" json:"name"`
	Dir      string `yaml:"dir" json:"dir"`
	Source   string `yaml:"source" json:"source"`
	Manifest string `yaml:"manifest" json:"manifest"`
	Artifact string `yaml:"artifact" json:"artifact"`
	// UpgradeInstaller upgrades pip inside the isolated environment before
	// installing anything else.
	UpgradeInstaller bool `yaml:"upgrade_installer" json:"upgrade_installer"`
	// ReusePackageDir seeds the package root from Dir/package when it exists.
	ReusePackageDir bool `yaml:"reuse_package_dir" json:"reuse_package_dir"`
	// PruneTags removes every file or directory whose base name contains one
	// of the tags after installation.
	PruneTags []string `yaml:"prune_tags" json:"prune_tags"`
}

// defaultNames lists the custom resources shipped with the CloudFormation
// project, in build order.
var defaultNames = []string{
	"cert-manager-installer",
	"cluster-policy",
	"coredns-restart",
	"data-scientist-setup",
	"hpto-addon-installer",
	"hyperpod-cluster-creator",
	"karpenter-setup",
	"observability-stack",
	"tiered-cache-config",
	"workspace-templates",
}

// pruneDefaults holds tags for resources whose dependencies pull in
// foreign-platform builds.
var pruneDefaults = map[string][]string{
	"hyperpod-cluster-creator": {"pypy"},
}

// DefaultNames returns the names of the built-in resources.
func DefaultNames() []string {
	return append([]string(nil), defaultNames...)
}

// DefaultResources returns the built-in resources rooted at rootDir.
func DefaultResources(rootDir string) []Resource {
	resources := make([]Resource, 0, len(defaultNames))
	for _, name := range defaultNames {
		r := Resource{Name: name, PruneTags: pruneDefaults[name]}
		resources = append(resources, r.WithDefaults(rootDir))
	}
	return resources
}

// WithDefaults fills in empty fields. A relative Dir is resolved against
// rootDir.
func (r Resource) WithDefaults(rootDir string) Resource {
	if r.Dir == "" {
		r.Dir = filepath.Join("resources", r.Name, "lambda_function")
	}
	if !filepath.IsAbs(r.Dir) {
		r.Dir = filepath.Join(rootDir, r.Dir)
	}
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.Manifest == "" {
		r.Manifest = DefaultManifest
	}
	if r.Artifact == "" {
		r.Artifact = r.Name + ".zip"
	}
	return r
}

// LoadResources returns the resources configured under the "resources" key,
// or the built-in list when the key is absent.
func LoadResources(rootDir string) ([]Resource, error) {
	var configured []Resource
	found, err := config.Decode("resources", &configured)
	if err != nil {
		return nil, err
	}
	if !found || len(configured) == 0 {
		return DefaultResources(rootDir), nil
	}

	resources := make([]Resource, 0, len(configured))
	seen := map[string]bool{}
	for i, r := range configured {
		if r.Name == "" {
			return nil, fmt.Errorf("resources[%d]: name is required", i)
		}
		r = r.WithDefaults(rootDir)
		if seen[r.Artifact] {
			return nil, fmt.Errorf("resources[%d]: duplicate artifact %s", i, r.Artifact)
		}
		seen[r.Artifact] = true
		resources = append(resources, r)
	}
	return resources, nil
}

// Select filters resources down to the given names, preserving the order of
// names. An unknown name is an error.
func Select(resources []Resource, names []string) ([]Resource, error) {
	if len(names) == 0 {
		return resources, nil
	}

	byName := make(map[string]Resource, len(resources))
	for _, r := range resources {
		byName[r.Name] = r
	}

	selected := make([]Resource, 0, len(names))
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown resource: %s", n)
		}
		selected = append(selected, r)
	}
	return selected, nil
}
