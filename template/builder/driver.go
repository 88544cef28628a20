package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"

	"github.com/agentbox/agentbox-go/internal/docker"
	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/sandbox"
	"github.com/agentbox/agentbox-go/template/archiver"
	"github.com/agentbox/agentbox-go/template/platform"
	"github.com/agentbox/agentbox-go/template/retrier"
)

// Driver 把项目交付给远端构建服务，不同平台的交付方式不同。
type Driver interface {
	// Name 用于输出
	Name() string
	// StatusAPI 返回轮询构建状态时使用的接口
	StatusAPI() sandbox.StatusAPI
	// Prepare 在任何网络请求之前执行本地准备工作
	Prepare(ctx context.Context) error
	// Deliver 把构建内容交付到 record 对应的构建
	Deliver(ctx context.Context, record *sandbox.BuildRecord) error
	// Cleanup 释放 Prepare 产生的本地资源，可以重复调用
	Cleanup()
}

// ImageBuilder 在本地构建并推送镜像，*docker.Builder 实现了该接口。
type ImageBuilder interface {
	Build(ctx context.Context, opts docker.BuildOptions) error
	Push(ctx context.Context, ref, serverAddress, accessToken string) error
	Close() error
}

// ImageDriver 在本地构建镜像并推送到平台的镜像仓库。
type ImageDriver struct {
	client     *sandbox.Client
	newBuilder func() (ImageBuilder, error)
	images     ImageBuilder
	logger     *output.Logger
	host       platform.Host
	env        sandbox.EnvironmentType

	contextDir string
	dockerfile string
	buildArgs  map[string]string
	noCache    bool
	excludes   []string
}

// Name 实现 Driver。
func (d *ImageDriver) Name() string { return "image push" }

// StatusAPI 实现 Driver。
func (d *ImageDriver) StatusAPI() sandbox.StatusAPI { return platform.StatusAPIFor(d.env) }

// Prepare 检查推送凭证并连接 Docker。
func (d *ImageDriver) Prepare(ctx context.Context) error {
	if d.client.AccessToken() == "" {
		return errors.New("pushing an image requires an access token, run `agentbox auth login` or set AGENTBOX_ACCESS_TOKEN")
	}
	images, err := d.newBuilder()
	if err != nil {
		return err
	}
	d.images = images
	return nil
}

// Deliver 构建镜像，打上 ImageRef 标签后推送。
func (d *ImageDriver) Deliver(ctx context.Context, record *sandbox.BuildRecord) error {
	ref := d.client.ImageRef(record.TemplateID, record.BuildID)
	opts := docker.BuildOptions{
		ContextDir: d.contextDir,
		Dockerfile: d.dockerfile,
		Tag:        ref,
		BuildArgs:  d.buildArgs,
		NoCache:    d.noCache,
		Excludes:   d.excludes,
	}
	if d.host.NeedsCrossBuild(d.env) {
		opts.Platform = platform.DockerPlatform(d.env)
		d.logger.Debug("cross building for %s on %s/%s", opts.Platform, d.host.OS, d.host.Arch)
	}
	if err := d.images.Build(ctx, opts); err != nil {
		return err
	}
	d.logger.Info("Pushing %s", ref)
	return d.images.Push(ctx, ref, d.client.RegistryHost(), d.client.AccessToken())
}

// Cleanup 关闭 Docker 客户端。
func (d *ImageDriver) Cleanup() {
	if d.images != nil {
		d.images.Close()
		d.images = nil
	}
}

// ArchiveDriver 把项目目录打包成 zip 后上传。
type ArchiveDriver struct {
	client        *sandbox.Client
	logger        *output.Logger
	env           sandbox.EnvironmentType
	uploadPolicy  retrier.Policy
	archiveOpts   []archiver.Option
	contextDir    string
	ignoredFlags  []string
	artifactPath  string
	artifactBytes int64
}

// Name 实现 Driver。
func (d *ArchiveDriver) Name() string { return "archive upload" }

// StatusAPI 实现 Driver。
func (d *ArchiveDriver) StatusAPI() sandbox.StatusAPI { return platform.StatusAPIFor(d.env) }

// Prepare 把项目目录打包到系统临时目录。
func (d *ArchiveDriver) Prepare(ctx context.Context) error {
	for _, flag := range d.ignoredFlags {
		d.logger.Warn("%s is ignored for platform %s", flag, d.env)
	}

	tmp, err := os.CreateTemp("", archiver.ArtifactPrefix+"-*.zip")
	if err != nil {
		return err
	}
	d.artifactPath = tmp.Name()
	tmp.Close()

	opts := append([]archiver.Option{
		archiver.WithProgress(func(p archiver.Progress) {
			d.logger.Debug("archived %d files, %s", p.Files, units.BytesSize(float64(p.Bytes)))
		}),
	}, d.archiveOpts...)
	result, err := archiver.Archive(ctx, d.contextDir, d.artifactPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", d.contextDir, err)
	}
	d.artifactBytes = result.Size
	d.logger.Info("Archived %d files from %s (%s)", result.Files, d.contextDir, units.BytesSize(float64(result.Size)))
	return nil
}

// Deliver 上传构建产物，失败时按上传策略重试。
func (d *ArchiveDriver) Deliver(ctx context.Context, record *sandbox.BuildRecord) error {
	policy := d.uploadPolicy
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error) {
			d.logger.Warn("upload attempt %d/%d failed: %v", attempt, policy.MaxAttempts, err)
		}
	}
	started := time.Now()
	err := retrier.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		return d.client.UploadBuildArtifact(ctx, record.TemplateID, record.BuildID, d.artifactPath,
			sandbox.WithUploadProgress(func(sent, total int64) {
				if sent == total {
					d.logger.Debug("uploaded %s in %s", units.BytesSize(float64(total)), time.Since(started).Round(time.Millisecond))
				}
			}))
	})
	if err != nil {
		return err
	}
	d.logger.Info("Uploaded %s (%s)", filepath.Base(d.artifactPath), units.BytesSize(float64(d.artifactBytes)))
	return nil
}

// Cleanup 删除临时产物。
func (d *ArchiveDriver) Cleanup() {
	if d.artifactPath != "" {
		os.Remove(d.artifactPath)
		d.artifactPath = ""
	}
}
