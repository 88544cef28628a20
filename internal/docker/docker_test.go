package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageAPI struct {
	buildOpts   types.ImageBuildOptions
	contextTar  []string
	links       map[string]string
	buildStream string
	pushRef     string
	pushOpts    image.PushOptions
	pushStream  string
	pushErr     error
}

func (f *fakeImageAPI) ImageBuild(_ context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	f.buildOpts = options
	tr := tar.NewReader(buildContext)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.ImageBuildResponse{}, err
		}
		f.contextTar = append(f.contextTar, hdr.Name)
		if hdr.Typeflag == tar.TypeSymlink {
			if f.links == nil {
				f.links = make(map[string]string)
			}
			f.links[hdr.Name] = hdr.Linkname
		}
	}
	return types.ImageBuildResponse{Body: io.NopCloser(bytes.NewBufferString(f.buildStream))}, nil
}

func (f *fakeImageAPI) ImagePush(_ context.Context, ref string, options image.PushOptions) (io.ReadCloser, error) {
	f.pushRef = ref
	f.pushOpts = options
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return io.NopCloser(bytes.NewBufferString(f.pushStream)), nil
}

func (f *fakeImageAPI) Close() error { return nil }

func newContextDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM ubuntu:22.04\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "main.py"), []byte("print(1)\n"), 0o644))
	return dir
}

func TestBuildSendsContextAndOptions(t *testing.T) {
	dir := newContextDir(t)
	api := &fakeImageAPI{buildStream: `{"stream":"Step 1/1 : FROM ubuntu:22.04\n"}` + "\n"}
	var out bytes.Buffer

	err := NewBuilder(api, &out).Build(context.Background(), BuildOptions{
		ContextDir: dir,
		Dockerfile: filepath.Join(dir, "Dockerfile"),
		Tag:        "docker.agentbox.cloud/agentbox/custom-envs/tpl:bld",
		Platform:   "linux/amd64",
		BuildArgs:  map[string]string{"VERSION": "1"},
		NoCache:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"docker.agentbox.cloud/agentbox/custom-envs/tpl:bld"}, api.buildOpts.Tags)
	assert.Equal(t, "Dockerfile", api.buildOpts.Dockerfile)
	assert.Equal(t, "linux/amd64", api.buildOpts.Platform)
	assert.True(t, api.buildOpts.NoCache)
	assert.True(t, api.buildOpts.Remove)
	require.Contains(t, api.buildOpts.BuildArgs, "VERSION")
	assert.Equal(t, "1", *api.buildOpts.BuildArgs["VERSION"])
	assert.Contains(t, api.contextTar, "Dockerfile")
	assert.Contains(t, api.contextTar, "app/main.py")
	assert.Contains(t, out.String(), "Step 1/1")
}

func TestBuildContextFollowsDockerignore(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"build/Dockerfile":           "FROM eclipse-temurin:21\nCOPY target/app.jar /app.jar\nADD rootfs.tar.gz /\n",
		"build/cache.bin":            "x",
		"target/app.jar":             "jar",
		"rootfs.tar.gz":              "tgz",
		"dist/index.js":              "js",
		"server.log":                 "log",
		"secret.env":                 "TOKEN=1",
		"agentbox.toml":              "template_id = \"tpl\"\n",
		".dockerignore":              "# local only\nsecret.env\nbuild\n.dockerignore\n",
		"custom.toml.lock":           "",
		".agentbox-artifact-old.zip": "old",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.Symlink("target/app.jar", filepath.Join(dir, "app.jar")))
	api := &fakeImageAPI{}

	err := NewBuilder(api, io.Discard).Build(context.Background(), BuildOptions{
		ContextDir: dir,
		Dockerfile: "build/Dockerfile",
		Tag:        "t:b",
		Excludes:   []string{"custom.toml.lock"},
	})
	require.NoError(t, err)

	assert.Equal(t, "build/Dockerfile", api.buildOpts.Dockerfile)
	for _, name := range []string{"build/Dockerfile", "target/app.jar", "rootfs.tar.gz", "dist/index.js", "server.log", "agentbox.toml", ".dockerignore"} {
		assert.Contains(t, api.contextTar, name)
	}
	for _, name := range []string{"secret.env", "build/cache.bin", "custom.toml.lock", ".agentbox-artifact-old.zip"} {
		assert.NotContains(t, api.contextTar, name)
	}
	assert.Equal(t, map[string]string{"app.jar": "target/app.jar"}, api.links)
}

func TestBuildReportsStreamError(t *testing.T) {
	dir := newContextDir(t)
	api := &fakeImageAPI{buildStream: `{"errorDetail":{"message":"no space left"},"error":"no space left"}` + "\n"}

	err := NewBuilder(api, io.Discard).Build(context.Background(), BuildOptions{
		ContextDir: dir,
		Dockerfile: "Dockerfile",
		Tag:        "t:b",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left")
}

func TestBuildRejectsDockerfileOutsideContext(t *testing.T) {
	dir := newContextDir(t)
	api := &fakeImageAPI{}

	err := NewBuilder(api, io.Discard).Build(context.Background(), BuildOptions{
		ContextDir: filepath.Join(dir, "app"),
		Dockerfile: filepath.Join(dir, "Dockerfile"),
		Tag:        "t:b",
	})
	require.Error(t, err)
	assert.Nil(t, api.contextTar)
}

func TestPushEncodesRegistryAuth(t *testing.T) {
	api := &fakeImageAPI{pushStream: `{"status":"Pushed"}` + "\n"}

	err := NewBuilder(api, io.Discard).Push(context.Background(), "docker.agentbox.cloud/x:y", "docker.agentbox.cloud", "tok")
	require.NoError(t, err)
	assert.Equal(t, "docker.agentbox.cloud/x:y", api.pushRef)

	raw, err := base64.URLEncoding.DecodeString(api.pushOpts.RegistryAuth)
	require.NoError(t, err)
	var auth registry.AuthConfig
	require.NoError(t, json.Unmarshal(raw, &auth))
	assert.Equal(t, RegistryUsername, auth.Username)
	assert.Equal(t, "tok", auth.Password)
	assert.Equal(t, "docker.agentbox.cloud", auth.ServerAddress)
}

func TestPushError(t *testing.T) {
	api := &fakeImageAPI{pushErr: errors.New("denied")}
	err := NewBuilder(api, io.Discard).Push(context.Background(), "r:t", "r", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
