// agentbox 是沙箱平台的命令行工具，用于构建和管理沙箱模板。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/agentbox/agentbox-go/internal/env"
	"github.com/agentbox/agentbox-go/internal/output"
	"github.com/agentbox/agentbox-go/internal/session"
	"github.com/agentbox/agentbox-go/sandbox"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

type rootCommand struct {
	Domain  string `long:"domain" description:"Service domain (default agentbox.cloud)"`
	Debug   bool   `long:"debug" description:"Dump HTTP requests and responses to stderr"`
	NoColor bool   `long:"no-color" description:"Disable colored output"`
	Verbose bool   `short:"v" long:"verbose" description:"Show debug output"`

	Template templateCommand `command:"template" alias:"tpl" description:"Build and manage sandbox templates"`
	Auth     authCommand     `command:"auth" description:"Log in to the sandbox platform"`
}

var (
	root    rootCommand
	logger  = output.NewLogger()
	rootCtx = context.Background()
	environ = os.Environ
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCtx = ctx
	code := run(os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func newParser() *flags.Parser {
	root = rootCommand{}
	parser := flags.NewParser(&root, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "agentbox"
	return parser
}

// run 解析并执行命令，返回进程退出码。
func run(args []string, stdout io.Writer) int {
	parser := newParser()
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return 0
		}
		reportError(err)
		return 1
	}
	return 0
}

// applyGlobalOptions 在每个命令开始时调用。
func applyGlobalOptions() {
	logger.SetNoColor(root.NoColor || !output.ShouldColor())
	logger.SetVerbose(root.Verbose || root.Debug)
}

// reportError 以红色打印错误，构建失败时先打印最后的构建日志。
func reportError(err error) {
	var failed *tplerrors.BuildFailedError
	if errors.As(err, &failed) {
		for _, line := range failed.Logs {
			logger.Faint("%s", line)
		}
	}
	logger.Error("%v", err)

	var mismatch *tplerrors.ConfigMismatchError
	var apiErr *sandbox.APIError
	switch {
	case errors.As(err, &mismatch):
		logger.Info("Remove %s or pass the value stored in it.", mismatch.ConfigPath)
	case errors.As(err, &apiErr) && apiErr.StatusCode == 401:
		logger.Info("Run `agentbox auth login` or check AGENTBOX_API_KEY.")
	}
}

// clientContext 是命令共用的配置来源。
type clientContext struct {
	env       *env.Config
	configDir string
	session   *session.Session
}

func loadClientContext() (*clientContext, error) {
	envCfg, err := env.Parse(environ())
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	dir, err := envCfg.ConfigDirOrDefault()
	if err != nil {
		return nil, err
	}
	sess, err := session.Load(dir)
	if err != nil && !errors.Is(err, session.ErrNotLoggedIn) {
		return nil, err
	}
	return &clientContext{env: envCfg, configDir: dir, session: sess}, nil
}

// clientConfig 合并命令行、环境变量与登录会话。
func (c *clientContext) clientConfig() (*sandbox.Config, error) {
	cfg := &sandbox.Config{
		APIKey:      c.env.APIKey,
		AccessToken: c.env.AccessToken,
		Domain:      firstNonEmpty(root.Domain, c.env.Domain),
		Endpoint:    c.env.APIURL,
		Debug:       root.Debug || c.env.Debug,
	}
	if c.session != nil {
		if cfg.AccessToken == "" {
			cfg.AccessToken = c.session.AccessToken
		}
		if cfg.Domain == "" {
			cfg.Domain = c.session.Domain
		}
	}
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, session.ErrNotLoggedIn
	}
	return cfg, nil
}

func (c *clientContext) teamID() string {
	if c.env.TeamID != "" {
		return c.env.TeamID
	}
	if c.session != nil {
		return c.session.TeamID
	}
	return ""
}

func (c *clientContext) newClient() (*sandbox.Client, error) {
	cfg, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	return sandbox.NewClient(cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
