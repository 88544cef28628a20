// Package builder 实现 `agentbox template build` 的构建流程：
// 解析平台和本地配置，请求构建，交付构建内容，触发构建，然后轮询到终态。
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentbox/agentbox-go/internal/docker"
	"github.com/agentbox/agentbox-go/internal/lockfile"
	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/sandbox"
	"github.com/agentbox/agentbox-go/template/archiver"
	"github.com/agentbox/agentbox-go/template/backoff"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
	"github.com/agentbox/agentbox-go/template/localconfig"
	"github.com/agentbox/agentbox-go/template/platform"
	"github.com/agentbox/agentbox-go/template/retrier"
)

// DockerfileNames 是未指定 Dockerfile 时依次查找的文件名。
var DockerfileNames = []string{"agentbox.Dockerfile", "Dockerfile"}

// DefaultBuildTimeout 是等待远端构建的默认上限。
const DefaultBuildTimeout = 60 * time.Minute

// UploadPolicy 返回上传构建产物的重试策略：最多 3 次，间隔 2 秒。
func UploadPolicy() retrier.Policy {
	return retrier.Policy{Op: "upload build artifact", MaxAttempts: 3, Backoff: backoff.Fixed(2 * time.Second)}
}

// TriggerPolicy 返回触发构建的重试策略：最多 3 次，不等待。
func TriggerPolicy() retrier.Policy {
	return retrier.Policy{Op: "start build", MaxAttempts: 3, Backoff: backoff.None()}
}

// Options 是一次构建的参数，零值字段会回退到本地配置文件中的值。
type Options struct {
	// TemplateID 重新构建已有模板，为空时使用配置文件中的 template_id 或创建新模板
	TemplateID string
	// Path 项目根目录，默认当前目录
	Path string
	// ConfigPath 配置文件路径，相对路径基于 Path
	ConfigPath string
	// Dockerfile 路径，相对路径基于 Path
	Dockerfile string
	Name       string
	StartCmd   string
	TeamID     string
	CPUCount   int32
	MemoryMB   int32
	BuildArgs  map[string]string
	NoCache    bool
	// Platform 来自 --platform
	Platform string
	// EnvPlatform 来自 AGENTBOX_PLATFORM
	EnvPlatform string
	// DefaultTeamID 来自环境变量或登录会话，优先级低于配置文件
	DefaultTeamID string
	// BuildTimeout 等待远端构建的上限，0 表示不限制
	BuildTimeout time.Duration
}

// Result 构建结果
type Result struct {
	Record     *sandbox.BuildRecord
	Info       *sandbox.TemplateBuildInfo
	Platform   sandbox.EnvironmentType
	ConfigPath string
}

// Option 配置 Builder
type Option func(*Builder)

// WithLogger 设置输出
func WithLogger(logger *output.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithImageBuilder 设置镜像构建器的创建方式，默认通过环境变量连接本地 Docker。
func WithImageBuilder(fn func(out io.Writer) (ImageBuilder, error)) Option {
	return func(b *Builder) { b.newImageBuilder = fn }
}

// WithUploadPolicy 覆盖上传的重试策略
func WithUploadPolicy(policy retrier.Policy) Option {
	return func(b *Builder) { b.uploadPolicy = policy }
}

// WithTriggerPolicy 覆盖触发构建的重试策略
func WithTriggerPolicy(policy retrier.Policy) Option {
	return func(b *Builder) { b.triggerPolicy = policy }
}

// WithPollOptions 追加轮询选项
func WithPollOptions(opts ...sandbox.PollOption) Option {
	return func(b *Builder) { b.pollOpts = append(b.pollOpts, opts...) }
}

// WithHost 覆盖本机平台，用于决定是否需要交叉构建
func WithHost(host platform.Host) Option {
	return func(b *Builder) { b.host = host }
}

// Builder 编排一次模板构建。
type Builder struct {
	client          *sandbox.Client
	logger          *output.Logger
	newImageBuilder func(out io.Writer) (ImageBuilder, error)
	uploadPolicy    retrier.Policy
	triggerPolicy   retrier.Policy
	pollOpts        []sandbox.PollOption
	host            platform.Host
}

// New 创建 Builder。
func New(client *sandbox.Client, opts ...Option) *Builder {
	b := &Builder{
		client:        client,
		logger:        output.NewLogger(),
		uploadPolicy:  UploadPolicy(),
		triggerPolicy: TriggerPolicy(),
		host:          platform.DetectHost(),
		newImageBuilder: func(out io.Writer) (ImageBuilder, error) {
			return docker.NewBuilderFromEnv(out)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// plan 是所有本地检查通过后的构建计划。
type plan struct {
	root       string
	config     *localconfig.Config
	templateID string
	dockerfile string
	env        sandbox.EnvironmentType
	request    sandbox.BuildRequest
}

// Build 执行完整的构建流程。所有与本地配置冲突的参数都会在发出网络请求前报错。
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	p, err := b.plan(opts)
	if err != nil {
		return nil, err
	}
	driver := b.driverFor(p, opts)
	defer driver.Cleanup()

	progress := output.NewProgressTo(b.logger.Out(), 5)
	progress.SetQuiet(b.logger.Quiet())

	progress.Stage(fmt.Sprintf("Preparing %s for %s", driver.Name(), p.env))
	if err = driver.Prepare(ctx); err != nil {
		return nil, err
	}

	if p.templateID == "" {
		progress.Stage("Requesting new template build")
	} else {
		progress.Stage("Requesting build of template " + p.templateID)
	}
	record, err := b.client.RequestBuild(ctx, p.request, p.templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to request build: %w", err)
	}
	progress.Detail("template %s, build %s", record.TemplateID, record.BuildID)
	if err = b.saveConfig(p, record); err != nil {
		return nil, err
	}

	progress.Stage("Delivering build")
	if err = driver.Deliver(ctx, record); err != nil {
		return nil, err
	}

	progress.Stage("Starting build")
	triggerPolicy := b.triggerPolicy
	if triggerPolicy.OnRetry == nil {
		triggerPolicy.OnRetry = func(attempt int, err error) {
			b.logger.Warn("start build attempt %d/%d failed: %v", attempt, triggerPolicy.MaxAttempts, err)
		}
	}
	err = retrier.Do(ctx, triggerPolicy, func(ctx context.Context, attempt int) error {
		return b.client.StartBuild(ctx, record.TemplateID, record.BuildID)
	})
	if err != nil {
		return nil, err
	}

	progress.Stage("Waiting for build")
	pollOpts := []sandbox.PollOption{
		sandbox.WithStatusAPI(driver.StatusAPI()),
		sandbox.WithPollTimeout(opts.BuildTimeout),
		sandbox.WithOnLogs(func(entries []sandbox.BuildLogEntry) {
			for _, e := range entries {
				b.logger.Faint("%s", e.String())
			}
		}),
	}
	info, err := b.client.WaitForBuild(ctx, record.TemplateID, record.BuildID, append(pollOpts, b.pollOpts...)...)
	if err != nil {
		return nil, err
	}

	progress.Done(fmt.Sprintf("Template %s built", record.TemplateID))
	b.printUsage(record, p.request.Alias)
	return &Result{Record: record, Info: info, Platform: p.env, ConfigPath: p.config.Path()}, nil
}

// plan 读取本地配置并合并参数，不发出任何网络请求。
func (b *Builder) plan(opts Options) (*plan, error) {
	root := opts.Path
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, &tplerrors.NotFoundError{Path: root}
	}

	cfg, err := localconfig.Load(localconfig.PathFor(root, opts.ConfigPath))
	if err != nil {
		return nil, err
	}
	if len(cfg.Unknown) > 0 {
		b.logger.Warn("%s: unknown keys %v are ignored", cfg.Path(), cfg.Unknown)
	}
	if err = cfg.CheckTemplateID(opts.TemplateID); err != nil {
		return nil, err
	}

	env, err := platform.Resolve(platform.Sources{
		Flag:       opts.Platform,
		Persisted:  cfg.Platform,
		Env:        opts.EnvPlatform,
		ConfigPath: cfg.Path(),
	})
	if err != nil {
		return nil, err
	}

	dockerfile, err := findDockerfile(root, firstNonEmpty(opts.Dockerfile, cfg.Dockerfile))
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(dockerfile)
	if err != nil {
		return nil, err
	}

	req := sandbox.BuildRequest{
		Alias:             firstNonEmpty(opts.Name, cfg.TemplateName),
		StartCommand:      firstNonEmpty(opts.StartCmd, cfg.StartCmd),
		CPUCount:          firstNonZero(opts.CPUCount, cfg.CPUCount),
		MemoryMB:          firstNonZero(opts.MemoryMB, cfg.MemoryMB),
		DockerfileContent: string(content),
		TeamID:            firstNonEmpty(opts.TeamID, cfg.TeamID, opts.DefaultTeamID),
		EnvironmentType:   env,
	}
	if err = req.Validate(); err != nil {
		return nil, err
	}

	return &plan{
		root:       root,
		config:     cfg,
		templateID: firstNonEmpty(opts.TemplateID, cfg.TemplateID),
		dockerfile: dockerfile,
		env:        env,
		request:    req,
	}, nil
}

func (b *Builder) driverFor(p *plan, opts Options) Driver {
	excludes := configLockExcludes(p)
	if platform.FlowFor(p.env) == platform.FlowImagePush {
		return &ImageDriver{
			client: b.client,
			newBuilder: func() (ImageBuilder, error) {
				return b.newImageBuilder(b.logger.Out())
			},
			logger:     b.logger,
			host:       b.host,
			env:        p.env,
			contextDir: p.root,
			dockerfile: p.dockerfile,
			buildArgs:  opts.BuildArgs,
			noCache:    opts.NoCache,
			excludes:   excludes,
		}
	}

	var ignored []string
	if len(opts.BuildArgs) > 0 {
		names := make([]string, 0, len(opts.BuildArgs))
		for k := range opts.BuildArgs {
			names = append(names, k)
		}
		sort.Strings(names)
		ignored = append(ignored, fmt.Sprintf("--build-arg %v", names))
	}
	if opts.NoCache {
		ignored = append(ignored, "--no-cache")
	}
	return &ArchiveDriver{
		client:       b.client,
		logger:       b.logger,
		env:          p.env,
		uploadPolicy: b.uploadPolicy,
		archiveOpts:  []archiver.Option{archiver.WithExcludes(excludes...)},
		contextDir:   p.root,
		ignoredFlags: ignored,
	}
}

// configLockExcludes 排除配置文件旁边的锁文件，--config 可以指定任意文件名。
func configLockExcludes(p *plan) []string {
	rel, err := filepath.Rel(p.root, lockfile.PathFor(p.config.Path()))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}

// saveConfig 把本次构建使用的参数写回配置文件。
func (b *Builder) saveConfig(p *plan, record *sandbox.BuildRecord) error {
	cfg := p.config
	cfg.TemplateID = record.TemplateID
	cfg.Platform = string(p.env)
	cfg.TemplateName = p.request.Alias
	cfg.StartCmd = p.request.StartCommand
	cfg.CPUCount = record.CPUCount
	if cfg.CPUCount == 0 {
		cfg.CPUCount = p.request.CPUCount
	}
	cfg.MemoryMB = record.MemoryMB
	if cfg.MemoryMB == 0 {
		cfg.MemoryMB = p.request.MemoryMB
	}
	cfg.TeamID = p.request.TeamID
	if rel, err := filepath.Rel(p.root, p.dockerfile); err == nil {
		cfg.Dockerfile = filepath.ToSlash(rel)
	} else {
		cfg.Dockerfile = p.dockerfile
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save %s: %w", cfg.Path(), err)
	}
	b.logger.Debug("saved %s", cfg.Path())
	return nil
}

// findDockerfile 返回 Dockerfile 的绝对路径。name 为空时按 DockerfileNames 查找。
func findDockerfile(root, name string) (string, error) {
	if name != "" {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", &tplerrors.NotFoundError{Path: path}
			}
			return "", err
		}
		return path, nil
	}
	for _, candidate := range DockerfileNames {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &tplerrors.NotFoundError{Path: filepath.Join(root, DockerfileNames[len(DockerfileNames)-1])}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int32) int32 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
