// Package localconfig 读写项目目录下的 agentbox.toml，记录上一次构建使用的模板参数。
package localconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/agentbox/agentbox-go/internal/lockfile"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

// FileName 是项目配置文件的默认文件名
const FileName = "agentbox.toml"

const header = "# This file is written by `agentbox template build`. It links this directory\n" +
	"# to a template so that later builds update the same template.\n\n"

// Config 项目配置
type Config struct {
	TemplateID   string `toml:"template_id,omitempty"`
	Dockerfile   string `toml:"dockerfile,omitempty"`
	TemplateName string `toml:"template_name,omitempty"`
	StartCmd     string `toml:"start_cmd,omitempty"`
	CPUCount     int32  `toml:"cpu_count,omitempty"`
	MemoryMB     int32  `toml:"memory_mb,omitempty"`
	TeamID       string `toml:"team_id,omitempty"`
	Platform     string `toml:"platform,omitempty"`

	// Unknown 是文件中无法识别的键
	Unknown []string `toml:"-"`

	path   string
	exists bool
}

// PathFor 返回配置文件路径，override 非空时优先使用。
func PathFor(root, override string) string {
	if override != "" {
		if filepath.IsAbs(override) {
			return override
		}
		return filepath.Join(root, override)
	}
	return filepath.Join(root, FileName)
}

// Load 读取配置文件，文件不存在时返回空配置。
func Load(path string) (*Config, error) {
	cfg := &Config{path: path}
	data, err := lockfile.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	cfg.exists = true
	return cfg, nil
}

// Path 返回配置文件路径。
func (c *Config) Path() string {
	return c.path
}

// Exists 判断配置文件在加载时是否存在。
func (c *Config) Exists() bool {
	return c.exists
}

// Save 以原子替换的方式写入配置文件。
func (c *Config) Save() error {
	if c.path == "" {
		return tplerrors.MissingRequiredFieldError{Name: "path"}
	}
	var buf bytes.Buffer
	buf.WriteString(header)
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	if err := lockfile.WriteFile(c.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	c.exists = true
	return nil
}

// CheckTemplateID 检查命令行给出的 templateID 与配置文件是否一致。
func (c *Config) CheckTemplateID(templateID string) error {
	if templateID == "" || c.TemplateID == "" || templateID == c.TemplateID {
		return nil
	}
	return &tplerrors.ConfigMismatchError{
		Field:      "template_id",
		FlagValue:  templateID,
		FileValue:  c.TemplateID,
		ConfigPath: c.path,
	}
}
