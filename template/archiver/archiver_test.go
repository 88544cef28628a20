package archiver_test

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox-go/template/archiver"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func zipFiles(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	files := make(map[string]string)
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func keys(m map[string]string) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func TestArchiveIncludesEverythingNotExcluded(t *testing.T) {
	src := t.TempDir()
	included := map[string]string{
		"Dockerfile":            "FROM ubuntu:22.04\n",
		"main.py":               "print('hi')\n",
		"app/server.go":         "package app\n",
		"app/static/index.html": "<html></html>",
		"scripts/start.sh":      "#!/bin/sh\n",
		"docs/building.md":      "# notes\n",
	}
	excluded := map[string]string{
		".git/config":                    "[core]",
		"node_modules/left-pad/index.js": "module.exports = 1",
		"app/__pycache__/x.pyc":          "bytecode",
		".venv/bin/python":               "elf",
		"dist/bundle.js":                 "bundle",
		"app/build/out.o":                "obj",
		".DS_Store":                      "mac",
		"app/Thumbs.db":                  "win",
		"debug.log":                      "log",
		"app/tmp.tmp":                    "tmp",
		"vendor.zip":                     "zip",
		"nested/archive.tar.gz":          "tgz",
		".agentbox-artifact-old.zip":     "old",
	}
	writeTree(t, src, included)
	writeTree(t, src, excluded)

	dst := filepath.Join(t.TempDir(), "artifact.zip")
	res, err := archiver.Archive(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, dst, res.Path)
	assert.Equal(t, int64(len(included)), res.Files)

	stat, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, stat.Size(), res.Size)

	got := zipFiles(t, dst)
	assert.Equal(t, keys(included), keys(got))
	for name, content := range included {
		assert.Equal(t, content, got[name], name)
	}
}

func TestArchiveSkipsDestinationInsideSource(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	dst := filepath.Join(src, "out.bin")
	_, err := archiver.Archive(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, keys(zipFiles(t, dst)))
}

func TestArchiveExtraExcludes(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"keep.txt": "k", "secrets/.env": "x", "data/big.csv": "1,2"})

	dst := filepath.Join(t.TempDir(), "a.zip")
	_, err := archiver.Archive(context.Background(), src, dst, archiver.WithExcludes("secrets", "**/*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, keys(zipFiles(t, dst)))
}

func TestArchiveTarFormat(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"Dockerfile": "FROM scratch\n", "node_modules/x": "x"})

	dst := filepath.Join(t.TempDir(), "context.tar")
	_, err := archiver.Archive(context.Background(), src, dst, archiver.WithFormat(archiver.FormatTar))
	require.NoError(t, err)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	tr := tar.NewReader(f)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"Dockerfile"}, names)
}

func tarEntries(t *testing.T, path string) map[string]*tar.Header {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	entries := make(map[string]*tar.Header)
	tr := tar.NewReader(f)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return entries
		}
		require.NoError(t, err)
		entries[h.Name] = h
	}
}

func TestArchiveWithoutDefaultExcludes(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"build/Dockerfile": "FROM scratch\n",
		"build/tmp.o":      "obj",
		"target/app.jar":   "jar",
		"rootfs.tar.gz":    "tgz",
		"secret.env":       "x",
	})

	dst := filepath.Join(t.TempDir(), "context.tar")
	res, err := archiver.Archive(context.Background(), src, dst,
		archiver.WithFormat(archiver.FormatTar),
		archiver.WithoutDefaultExcludes(),
		archiver.WithExcludes("secret.env", "build", "!build/Dockerfile"),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Files)

	entries := tarEntries(t, dst)
	for _, name := range []string{"build/Dockerfile", "target/app.jar", "rootfs.tar.gz"} {
		assert.Contains(t, entries, name)
	}
	for _, name := range []string{"build/tmp.o", "secret.env", "build/"} {
		assert.NotContains(t, entries, name)
	}
}

func TestArchiveSymlinks(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"bin/tool": "#!/bin/sh\n"})
	require.NoError(t, os.Symlink("bin/tool", filepath.Join(src, "tool")))

	skipped := filepath.Join(t.TempDir(), "skipped.tar")
	_, err := archiver.Archive(context.Background(), src, skipped, archiver.WithFormat(archiver.FormatTar))
	require.NoError(t, err)
	assert.NotContains(t, tarEntries(t, skipped), "tool")

	kept := filepath.Join(t.TempDir(), "kept.tar")
	_, err = archiver.Archive(context.Background(), src, kept, archiver.WithFormat(archiver.FormatTar), archiver.WithSymlinks())
	require.NoError(t, err)
	entries := tarEntries(t, kept)
	require.Contains(t, entries, "tool")
	assert.Equal(t, byte(tar.TypeSymlink), entries["tool"].Typeflag)
	assert.Equal(t, "bin/tool", entries["tool"].Linkname)
}

func TestArchiveMissingSource(t *testing.T) {
	_, err := archiver.Archive(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "a.zip"))
	var notFound *tplerrors.NotFoundError
	require.True(t, errors.As(err, &notFound), "unexpected error: %v", err)
}

func TestArchiveTimeout(t *testing.T) {
	src := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 200; i++ {
		files[filepath.Join("d", strings.Repeat("x", i%7+1), "f"+string(rune('a'+i%26))+".txt")] = strings.Repeat("data", 1024)
	}
	writeTree(t, src, files)

	dst := filepath.Join(t.TempDir(), "a.zip")
	_, err := archiver.Archive(context.Background(), src, dst, archiver.WithTimeout(time.Nanosecond))
	var timeout *tplerrors.TimeoutError
	require.True(t, errors.As(err, &timeout), "unexpected error: %v", err)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveReportsProgress(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a": "1234", "b/c": "56"})

	var last archiver.Progress
	_, err := archiver.Archive(context.Background(), src, filepath.Join(t.TempDir(), "a.zip"),
		archiver.WithProgress(func(p archiver.Progress) { last = p }),
		archiver.WithProgressInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, archiver.Progress{Files: 2, Bytes: 6}, last)
}
