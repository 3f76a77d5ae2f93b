// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nemo-hyperpod/cfnpack/internal/archive"
	"github.com/nemo-hyperpod/cfnpack/internal/cacheutil"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Binary is one executable placed in the layer's bin/ directory. When
// TarMember is set, URL points at a gzipped tarball and only that member is
// extracted.
type Binary struct {
	Name      string
	URL       string
	TarMember string
}

// DefaultBinaries returns the kubectl, aws-iam-authenticator and helm release
// downloads for the given versions and architecture.
func DefaultBinaries(v Versions, arch string) []Binary {
	bins := []Binary{
		{
			Name: "kubectl",
			URL:  fmt.Sprintf("https://dl.k8s.io/release/v%s/bin/linux/%s/kubectl", v.Kubectl, arch),
		},
		{
			Name: "aws-iam-authenticator",
			URL: fmt.Sprintf("https://github.com/kubernetes-sigs/aws-iam-authenticator/releases/download/v%s/aws-iam-authenticator_%s_linux_%s",
				v.Authenticator, v.Authenticator, arch),
		},
	}
	if v.Helm != "" {
		bins = append(bins, Binary{
			Name:      "helm",
			URL:       fmt.Sprintf("https://get.helm.sh/helm-v%s-linux-%s.tar.gz", v.Helm, arch),
			TarMember: fmt.Sprintf("linux-%s/helm", arch),
		})
	}
	return bins
}

// Download assembles the layer from prebuilt release binaries. Lambda mounts
// layers at /opt, so the binaries go under bin/ to land on PATH.
type Download struct {
	Binaries []Binary
	Client   *retryablehttp.Client
}

var _ Strategy = (*Download)(nil)

// NewDownload returns a Download strategy for the default binaries.
func NewDownload(v Versions, arch string) *Download {
	return &Download{
		Binaries: DefaultBinaries(v, arch),
		Client:   NewHTTPClient(),
	}
}

// NewHTTPClient returns a retrying client with bounded attempts that logs
// through the application logger.
func NewHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 4
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 10 * time.Second
	c.Logger = leveledLogger{}
	c.ErrorHandler = giveUp
	return c
}

// giveUp hands an exhausted retryable status back to the caller and strips
// the query string from transport errors.
func giveUp(resp *http.Response, err error, attempts int) (*http.Response, error) {
	if err == nil && resp != nil {
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		uerr.URL = redact(uerr.URL)
	}
	return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempts, err)
}

func (d *Download) Name() string { return "download" }

func (d *Download) Build(ctx context.Context, workDir, outZip string) error {
	if d.Client == nil {
		d.Client = NewHTTPClient()
	}

	binDir := filepath.Join(workDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil { //nolint:mnd
		return err
	}

	for _, b := range d.Binaries {
		data, err := d.fetch(ctx, b.URL)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", b.Name, err)
		}

		dst := filepath.Join(binDir, b.Name)
		if b.TarMember != "" {
			err = archive.ExtractFile(bytes.NewReader(data), b.TarMember, dst, 0o755) //nolint:mnd
		} else {
			err = os.WriteFile(dst, data, 0o755) //nolint:mnd
			if err == nil {
				err = os.Chmod(dst, 0o755) //nolint:mnd
			}
		}
		if err != nil {
			return fmt.Errorf("failed to install %s: %w", b.Name, err)
		}
		log.Debugf("installed %s: bytes=%d", b.Name, len(data))
	}

	_, err := archive.WriteZip(workDir, outZip)
	return err
}

// fetch returns the body at url, consulting the download cache first when it
// is enabled.
func (d *Download) fetch(ctx context.Context, url string) ([]byte, error) {
	if entry, ok := cacheutil.Read([]string{"downloads"}, url); ok {
		return entry.Data, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", redact(url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", redact(url), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := cacheutil.Write([]string{"downloads"}, url, data); err != nil {
		log.WithError(err).Warnf("failed to cache %s", path.Base(url))
	}
	return data, nil
}

// redact drops any query string, which may carry signed credentials on
// mirrored downloads.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// leveledLogger adapts retryablehttp's logging to apex/log via internal/log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { log.Warnf("%s %v", msg, redactKV(kv)) }
func (leveledLogger) Info(msg string, kv ...interface{}) { log.Debugf("%s %v", msg, redactKV(kv)) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { log.Tracef("%s %v", msg, redactKV(kv)) }
func (leveledLogger) Warn(msg string, kv ...interface{}) { log.Warnf("%s %v", msg, redactKV(kv)) }

// redactKV redacts the value following a "url" key.
func redactKV(kv []interface{}) []interface{} {
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		if k, ok := out[i].(string); ok && k == "url" {
			out[i+1] = redact(fmt.Sprint(out[i+1]))
		}
	}
	return out
}
