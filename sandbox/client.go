package sandbox

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/agentbox/agentbox-go/sandbox/apis"
)

// DefaultDomain 是沙箱服务的默认域名。
const DefaultDomain = "agentbox.cloud"

// Config 是沙箱客户端的配置。
type Config struct {
	// APIKey 是用于身份认证的 API 密钥，通过 X-API-Key 请求头发送。
	APIKey string

	// AccessToken 是登录会话的访问令牌，通过 Authorization: Bearer 请求头发送，
	// 同时用作镜像仓库的推送凭证。APIKey 和 AccessToken 至少需要一个。
	AccessToken string

	// Domain 是服务域名（可选，默认值：DefaultDomain）。
	Domain string

	// Endpoint 是 API 服务地址（可选，默认值：https://api.<Domain>）。
	Endpoint string

	// HTTPClient 自定义 HTTP 客户端（可选，默认值：http.DefaultClient）。
	HTTPClient *http.Client

	// Debug 打开后会把每个请求和响应打印到 DebugOutput。
	Debug bool

	// DebugOutput 是调试输出的位置（可选，默认值：os.Stderr）。
	DebugOutput io.Writer
}

// Client 是沙箱 SDK 的高级客户端。
type Client struct {
	config *Config
	api    apis.ClientWithResponsesInterface
}

// NewClient 创建一个新的沙箱客户端。
func NewClient(config *Config) (*Client, error) {
	cfg := *config
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api." + cfg.Domain
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Debug {
		out := cfg.DebugOutput
		if out == nil {
			out = os.Stderr
		}
		wrapped := *httpClient
		wrapped.Transport = newDebugTransport(httpClient.Transport, out)
		httpClient = &wrapped
	}

	opts := []apis.ClientOption{
		apis.WithHTTPClient(httpClient),
		apis.WithRequestEditorFn(headersEditor(defaultHeaders())),
	}
	if cfg.APIKey != "" {
		opts = append(opts, apis.WithRequestEditorFn(apiKeyEditor(cfg.APIKey)))
	}
	if cfg.AccessToken != "" {
		opts = append(opts, apis.WithRequestEditorFn(accessTokenEditor(cfg.AccessToken)))
	}

	client, err := apis.NewClientWithResponses(cfg.Endpoint, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{config: &cfg, api: client}, nil
}

// apiKeyEditor 返回一个 RequestEditorFn，用于注入 X-API-Key 请求头。
func apiKeyEditor(apiKey string) apis.RequestEditorFn {
	return func(ctx context.Context, req *http.Request) error {
		req.Header.Set("X-API-Key", apiKey)
		return nil
	}
}

func accessTokenEditor(token string) apis.RequestEditorFn {
	return func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

func headersEditor(headers map[string]string) apis.RequestEditorFn {
	return func(ctx context.Context, req *http.Request) error {
		for k, v := range headers {
			if req.Header.Get(k) == "" {
				req.Header.Set(k, v)
			}
		}
		return nil
	}
}

// API 返回底层 API 客户端，用于直接访问生成的 API 方法。
func (c *Client) API() apis.ClientWithResponsesInterface {
	return c.api
}

// Domain 返回客户端使用的服务域名。
func (c *Client) Domain() string {
	return c.config.Domain
}

// AccessToken 返回配置中的访问令牌。
func (c *Client) AccessToken() string {
	return c.config.AccessToken
}

// RegistryHost 返回自定义环境镜像仓库的主机名。
func (c *Client) RegistryHost() string {
	return "docker." + strings.TrimPrefix(c.config.Domain, ".")
}

// ImageRef 返回某次构建需要推送的镜像引用。
func (c *Client) ImageRef(templateID, buildID string) string {
	return c.RegistryHost() + "/agentbox/custom-envs/" + templateID + ":" + buildID
}
