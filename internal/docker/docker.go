// Package docker 通过 Docker Engine API 在本地构建并推送模板镜像。
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/agentbox/agentbox-go/template/archiver"
)

const (
	// RegistryUsername 是使用访问令牌登录镜像仓库时的用户名
	RegistryUsername = "_agentbox_access_token"
	// IgnoreFileName 构建上下文的排除规则文件
	IgnoreFileName = ".dockerignore"
)

// ImageAPI 是构建和推送镜像需要的 Docker Engine API 子集，*client.Client 实现了该接口。
type ImageAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImagePush(ctx context.Context, image string, options image.PushOptions) (io.ReadCloser, error)
	Close() error
}

// Builder 构建并推送镜像，进度输出到 out。
type Builder struct {
	api    ImageAPI
	out    io.Writer
	termFd uintptr
	isTerm bool
}

// NewBuilder 使用给定的 API 创建 Builder。
func NewBuilder(api ImageAPI, out io.Writer) *Builder {
	b := &Builder{api: api, out: out}
	if f, ok := out.(*os.File); ok {
		b.termFd = f.Fd()
		b.isTerm = isTerminal(f)
	}
	return b
}

// NewBuilderFromEnv 使用 DOCKER_HOST 等环境变量创建 Docker 客户端。
func NewBuilderFromEnv(out io.Writer) (*Builder, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewBuilder(cli, out), nil
}

// Close 关闭 Docker 客户端。
func (b *Builder) Close() error {
	return b.api.Close()
}

// BuildOptions 镜像构建参数
type BuildOptions struct {
	// ContextDir 构建上下文目录
	ContextDir string
	// Dockerfile 的路径，必须位于 ContextDir 内
	Dockerfile string
	Tag        string
	// Platform 形如 linux/amd64，为空时由 Docker 决定
	Platform  string
	BuildArgs map[string]string
	NoCache   bool
	// Excludes 在 .dockerignore 之外追加的排除规则，相对 ContextDir
	Excludes []string
}

// Build 把 ContextDir 打包成 tar 作为构建上下文并构建镜像。
// 上下文按 ContextDir 下的 .dockerignore 排除文件，Dockerfile 和 .dockerignore 本身总会被发送。
func (b *Builder) Build(ctx context.Context, opts BuildOptions) error {
	dockerfile, err := dockerfileInContext(opts.ContextDir, opts.Dockerfile)
	if err != nil {
		return err
	}
	excludes, err := contextExcludes(opts.ContextDir, dockerfile, opts.Excludes)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", archiver.ArtifactPrefix+"-context-*.tar")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	_, err = archiver.Archive(ctx, opts.ContextDir, tmpPath,
		archiver.WithFormat(archiver.FormatTar),
		archiver.WithoutDefaultExcludes(),
		archiver.WithExcludes(excludes...),
		archiver.WithSymlinks(),
	)
	if err != nil {
		return fmt.Errorf("failed to create docker build context: %w", err)
	}
	buildContext, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer buildContext.Close()

	buildArgs := make(map[string]*string, len(opts.BuildArgs))
	for k, v := range opts.BuildArgs {
		v := v
		buildArgs[k] = &v
	}

	resp, err := b.api.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{opts.Tag},
		Dockerfile:  dockerfile,
		BuildArgs:   buildArgs,
		NoCache:     opts.NoCache,
		Platform:    opts.Platform,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image %q: %w", opts.Tag, err)
	}
	defer resp.Body.Close()

	if err = jsonmessage.DisplayJSONMessagesStream(resp.Body, b.out, b.termFd, b.isTerm, nil); err != nil {
		return fmt.Errorf("failed to build image %q: %w", opts.Tag, err)
	}
	return nil
}

// Push 使用访问令牌推送镜像。
func (b *Builder) Push(ctx context.Context, ref, serverAddress, accessToken string) error {
	auth, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      RegistryUsername,
		Password:      accessToken,
		ServerAddress: serverAddress,
	})
	if err != nil {
		return err
	}

	rc, err := b.api.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("failed to push image %q: %w", ref, err)
	}
	defer rc.Close()

	if err = jsonmessage.DisplayJSONMessagesStream(rc, b.out, b.termFd, b.isTerm, nil); err != nil {
		return fmt.Errorf("failed to push image %q: %w", ref, err)
	}
	return nil
}

// contextExcludes 读取 .dockerignore，追加旧产物和 extra，最后重新包含 Dockerfile 和 .dockerignore。
func contextExcludes(contextDir, dockerfile string, extra []string) ([]string, error) {
	var patterns []string
	f, err := os.Open(filepath.Join(contextDir, IgnoreFileName))
	switch {
	case err == nil:
		patterns, err = ignorefile.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	patterns = append(patterns, "**/"+archiver.ArtifactPrefix+"*")
	patterns = append(patterns, extra...)
	return append(patterns, "!"+dockerfile, "!"+IgnoreFileName), nil
}

// dockerfileInContext 返回 Dockerfile 相对于构建上下文的路径，使用 / 分隔。
func dockerfileInContext(contextDir, dockerfile string) (string, error) {
	absContext, err := filepath.Abs(contextDir)
	if err != nil {
		return "", err
	}
	absDockerfile := dockerfile
	if !filepath.IsAbs(absDockerfile) {
		absDockerfile = filepath.Join(absContext, dockerfile)
	}
	rel, err := filepath.Rel(absContext, absDockerfile)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dockerfile %s must be inside the build context %s", dockerfile, contextDir)
	}
	return filepath.ToSlash(rel), nil
}
