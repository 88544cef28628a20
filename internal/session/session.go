// Package session 保存 `agentbox auth login` 得到的登录信息。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/agentbox/agentbox-go/internal/lockfile"
)

const fileName = "config.json"

// ErrNotLoggedIn 会话文件不存在或没有访问令牌
var ErrNotLoggedIn = errors.New("not logged in, run `agentbox auth login` or set AGENTBOX_API_KEY")

// Session 登录会话，进程内显式传递，不使用全局变量。
type Session struct {
	AccessToken string    `json:"accessToken"`
	TeamID      string    `json:"teamId,omitempty"`
	TeamName    string    `json:"teamName,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	LoggedInAt  time.Time `json:"loggedInAt"`
}

// Path 返回 dir 下会话文件的路径。
func Path(dir string) string {
	return filepath.Join(dir, fileName)
}

// Load 读取会话文件，文件不存在时返回 ErrNotLoggedIn。
func Load(dir string) (*Session, error) {
	data, err := lockfile.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	var s Session
	if err = json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", Path(dir), err)
	}
	if s.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &s, nil
}

// Save 写入会话文件，文件权限为 0600。
func Save(dir string, s *Session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return lockfile.WriteFile(Path(dir), data, 0o600)
}

// Delete 删除会话文件，文件不存在时不报错。
func Delete(dir string) error {
	path := Path(dir)
	unlock, err := lockfile.Lock(path, true, nil)
	if err != nil {
		return err
	}
	defer unlock()
	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
