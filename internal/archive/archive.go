// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/sumdb/dirhash"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
	"github.com/nemo-hyperpod/cfnpack/internal/util"
)

// Epoch is the modification time stamped on every zip entry. It is the
// earliest time the zip format can represent.
var Epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrNotInArchive is returned by ExtractFile when the member is absent.
var ErrNotInArchive = errors.New("file not found in archive")

// Info describes a written archive. Digest is the h1: hash of the archive's
// file names and contents, as used by go.sum.
type Info struct {
	Path    string
	Size    int64
	Entries int
	Digest  string
}

// ZipDir writes a zip of the tree rooted at root to w. Entries are relative
// to root, visited in lexical order, and carry Epoch as their timestamp so the
// same tree always produces the same bytes. Returns the number of entries.
func ZipDir(root string, w io.Writer) (int, error) {
	zw := zip.NewWriter(w)
	count := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &zip.FileHeader{
			Name:     filepath.ToSlash(rel),
			Method:   zip.Deflate,
			Modified: Epoch,
		}

		var content io.Reader
		switch {
		case fi.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			hdr.SetMode(fs.ModeSymlink | 0o777) //nolint:mnd
			hdr.Method = zip.Store
			content = strings.NewReader(target)
		case fi.Mode().IsRegular():
			hdr.SetMode(normalizeMode(fi.Mode()))
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			content = f
		default:
			log.Debugf("skipping non-regular file: path=%s", p)
			return nil
		}

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, content); err != nil {
			return fmt.Errorf("failed to add %s: %w", rel, err)
		}
		count++
		return nil
	})
	if err != nil {
		zw.Close()
		return count, err
	}

	return count, zw.Close()
}

// WriteZip zips root into dst. The archive is written to a temporary sibling
// and renamed over dst, so an existing artifact is replaced whole and a
// failed run never leaves a partial file behind.
func WriteZip(root, dst string) (*Info, error) {
	size, err := writeAtomic(dst, func(w io.Writer) error {
		_, err := ZipDir(root, w)
		return err
	})
	if err != nil {
		return nil, err
	}
	return describe(dst, size)
}

// Place copies the file src over dst atomically. src is typically inside a
// scratch directory that may live on another filesystem, so a plain rename is
// not enough.
func Place(src, dst string) (*Info, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	size, err := writeAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	return describe(dst, size)
}

func describe(p string, size int64) (*Info, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	entries := len(zr.File)
	zr.Close()

	digest, err := dirhash.HashZip(p, dirhash.Hash1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", p, err)
	}
	return &Info{Path: p, Size: size, Entries: entries, Digest: digest}, nil
}

// Entries lists the member names of the zip at p in archive order.
func Entries(p string) ([]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// ExtractFile scans the gzipped tarball read from r for the regular file
// member name and writes it to dst with the given mode.
func ExtractFile(r io.Reader, name, dst string, mode os.FileMode) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	want := path.Clean(name)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg || path.Clean(hdr.Name) != want {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil { //nolint:mnd
			return err
		}
		w, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, tr); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		return os.Chmod(dst, mode)
	}
	return fmt.Errorf("%s: %w", name, ErrNotInArchive)
}

func writeAtomic(dst string, fill func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(dst)
	if !util.IsDir(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return 0, err
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:mnd
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}

	fi, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	log.Debugf("wrote archive: path=%s size=%d", dst, fi.Size())
	return fi.Size(), nil
}

// normalizeMode drops everything but the executable distinction so the
// builder's umask does not leak into the archive.
func normalizeMode(m fs.FileMode) fs.FileMode {
	if m.Perm()&0o111 != 0 {
		return 0o755
	}
	return 0o644
}
