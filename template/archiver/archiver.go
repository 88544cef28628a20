// Package archiver 将本地目录打包为单个归档文件，用于上传构建产物或作为 docker 构建上下文。
package archiver

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/moby/patternmatcher"
	"golang.org/x/sync/errgroup"

	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

// DefaultTimeout 是打包允许的最长时间，目录大小由用户决定，必须有上限。
const DefaultTimeout = 10 * time.Minute

// DefaultProgressInterval 是进度事件的默认间隔。
const DefaultProgressInterval = 5 * time.Second

// ArtifactPrefix 是构建产物文件名的前缀，同名文件会被排除，避免把上一次的产物打包进去。
const ArtifactPrefix = ".agentbox-artifact"

// DefaultExcludes 是始终生效的排除规则，语义与 .dockerignore 相同。
var DefaultExcludes = []string{
	// 版本控制
	"**/.git", "**/.svn", "**/.hg",
	// 依赖与构建输出
	"**/node_modules", "**/__pycache__", "**/.venv", "**/venv",
	"**/dist", "**/build", "**/target", "**/.next", "**/.cache",
	// 系统文件
	"**/.DS_Store", "**/Thumbs.db",
	// 日志与临时文件
	"**/*.log", "**/*.tmp", "**/*.swp", "**/*~",
	// 之前的产物、配置文件锁与嵌套归档
	"**/" + ArtifactPrefix + "*", "**/agentbox.toml.lock",
	"**/*.zip", "**/*.tar", "**/*.tar.gz", "**/*.tgz",
}

// Format 归档格式
type Format int

const (
	// FormatZip 使用 deflate 压缩的 zip，用于上传构建产物
	FormatZip Format = iota
	// FormatTar 不压缩的 tar，用于 docker 构建上下文
	FormatTar
)

type (
	// Progress 打包进度
	Progress struct {
		Files int64
		Bytes int64
	}

	// Result 打包结果
	Result struct {
		Path  string
		Size  int64
		Files int64
	}

	// Option 打包选项
	Option func(*options)

	options struct {
		format            Format
		timeout           time.Duration
		excludes          []string
		noDefaultExcludes bool
		symlinks          bool
		progressInterval  time.Duration
		onProgress        func(Progress)
	}
)

// WithFormat 设置归档格式，默认 FormatZip
func WithFormat(format Format) Option {
	return func(o *options) { o.format = format }
}

// WithTimeout 设置打包超时时间，0 表示使用 DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithExcludes 追加排除规则
func WithExcludes(patterns ...string) Option {
	return func(o *options) { o.excludes = append(o.excludes, patterns...) }
}

// WithoutDefaultExcludes 不使用 DefaultExcludes，只按 WithExcludes 给出的规则排除。
// 以 ! 开头的规则可以把被排除目录中的文件重新加入归档。
func WithoutDefaultExcludes() Option {
	return func(o *options) { o.noDefaultExcludes = true }
}

// WithSymlinks 把符号链接作为链接本身写入归档，默认跳过符号链接
func WithSymlinks() Option {
	return func(o *options) { o.symlinks = true }
}

// WithProgress 设置进度回调
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.onProgress = fn }
}

// WithProgressInterval 设置进度回调的间隔
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) { o.progressInterval = d }
}

// Archive 将 src 目录打包写入 dst 文件。
// src 不存在时返回 NotFoundError，超时返回 TimeoutError，失败时会删除不完整的 dst。
func Archive(ctx context.Context, src, dst string, opts ...Option) (*Result, error) {
	o := &options{
		timeout:          DefaultTimeout,
		progressInterval: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &tplerrors.NotFoundError{Path: src}
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &tplerrors.NotFoundError{Path: src}
	}

	var patterns []string
	if !o.noDefaultExcludes {
		patterns = append(patterns, DefaultExcludes...)
	}
	matcher, err := patternmatcher.New(append(patterns, o.excludes...))
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return nil, err
	}

	file, err := os.Create(dst)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	w := &walker{
		root:     src,
		dst:      absDst,
		matcher:  matcher,
		symlinks: o.symlinks,
	}
	var sink entryWriter
	switch o.format {
	case FormatTar:
		sink = &tarWriter{w: tar.NewWriter(file)}
	default:
		sink = &zipWriter{w: zip.NewWriter(file)}
	}

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(timeoutCtx)
	g.Go(func() error {
		defer close(done)
		if err := w.walk(gctx, sink); err != nil {
			sink.Close()
			return err
		}
		return sink.Close()
	})
	if o.onProgress != nil && o.progressInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(o.progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return nil
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					o.onProgress(w.progress())
				}
			}
		})
	}

	err = g.Wait()
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &tplerrors.TimeoutError{Op: "archive " + src, After: o.timeout}
		}
		return nil, err
	}

	stat, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}
	if o.onProgress != nil {
		o.onProgress(w.progress())
	}
	return &Result{Path: dst, Size: stat.Size(), Files: atomic.LoadInt64(&w.files)}, nil
}

type walker struct {
	root     string
	dst      string
	matcher  *patternmatcher.PatternMatcher
	symlinks bool
	files    int64
	bytes    int64
}

func (w *walker) progress() Progress {
	return Progress{Files: atomic.LoadInt64(&w.files), Bytes: atomic.LoadInt64(&w.bytes)}
}

func (w *walker) walk(ctx context.Context, sink entryWriter) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		excluded, err := w.matcher.MatchesOrParentMatches(rel)
		if err != nil {
			return err
		}
		if excluded {
			if d.IsDir() && !w.reincludesUnder(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == w.dst {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		switch {
		case d.IsDir():
			return sink.WriteDir(name, info)
		case info.Mode().IsRegular():
			n, err := w.copyFile(ctx, sink, path, name, info)
			if err != nil {
				return err
			}
			atomic.AddInt64(&w.files, 1)
			atomic.AddInt64(&w.bytes, n)
			return nil
		case info.Mode()&fs.ModeSymlink != 0 && w.symlinks:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			atomic.AddInt64(&w.files, 1)
			return sink.WriteSymlink(name, info, target)
		default:
			// 设备文件等不进入归档
			return nil
		}
	})
}

// reincludesUnder 判断是否有 ! 规则指向被排除目录 dir 下的路径，有则不能跳过整个目录。
func (w *walker) reincludesUnder(dir string) bool {
	if !w.matcher.Exclusions() {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for _, p := range w.matcher.Patterns() {
		if p.Exclusion() && strings.HasPrefix(p.String()+string(filepath.Separator), prefix) {
			return true
		}
	}
	return false
}

func (w *walker) copyFile(ctx context.Context, sink entryWriter, path, name string, info fs.FileInfo) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dst, err := sink.WriteFile(name, info)
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, &contextReader{ctx: ctx, r: f})
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
