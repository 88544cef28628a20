package env

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const defaultConfigDirName = ".agentbox"

// Config 从环境变量读取的配置
type Config struct {
	APIKey      string `env:"AGENTBOX_API_KEY"`
	AccessToken string `env:"AGENTBOX_ACCESS_TOKEN"`
	Domain      string `env:"AGENTBOX_DOMAIN"`
	APIURL      string `env:"AGENTBOX_API_URL"` // 覆盖 https://api.<domain>，用于私有部署和调试
	TeamID      string `env:"AGENTBOX_TEAM_ID"`
	Platform    string `env:"AGENTBOX_PLATFORM"`
	ConfigDir   string `env:"AGENTBOX_CONFIG_DIR"`
	Debug       bool   `env:"AGENTBOX_DEBUG"`
}

// Parse 解析 environ 中的环境变量，environ 的格式与 os.Environ() 相同。
func Parse(environ []string) (*Config, error) {
	var cfg Config

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FromEnvironment 解析当前进程的环境变量。
func FromEnvironment() (*Config, error) {
	return Parse(os.Environ())
}

// ConfigDirOrDefault 返回用户配置目录，未设置 AGENTBOX_CONFIG_DIR 时使用 ~/.agentbox。
func (c *Config) ConfigDirOrDefault() (string, error) {
	if c.ConfigDir != "" {
		return c.ConfigDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDirName), nil
}
