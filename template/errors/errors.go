package errors

import (
	"fmt"
	"strings"
	"time"
)

type (
	// NotFoundError 本地文件或目录不存在
	NotFoundError struct {
		Path string
	}

	// TimeoutError 操作超过了允许的时长
	TimeoutError struct {
		Op    string
		After time.Duration
	}

	// RequestFailedError 重试次数用尽后仍然失败
	RequestFailedError struct {
		Op       string
		Attempts int
		Err      error
	}

	// ConfigMismatchError 命令行参数与本地配置文件冲突
	ConfigMismatchError struct {
		Field      string
		FlagValue  string
		FileValue  string
		ConfigPath string
	}

	// BuildFailedError 远端构建进入 error 终态
	BuildFailedError struct {
		TemplateID string
		BuildID    string
		Reason     string
		// Logs 是最后一次状态查询中尚未输出的日志
		Logs []string
	}

	// MissingRequiredFieldError 缺少必填字段
	MissingRequiredFieldError struct {
		Name string
	}
)

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("no such file or directory: %s", err.Path)
}

func (err *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", err.Op, err.After)
}

func (err *RequestFailedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", err.Op, err.Attempts, err.Err)
}

func (err *RequestFailedError) Unwrap() error {
	return err.Err
}

func (err *ConfigMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: command line has %q but %s has %q",
		err.Field, err.FlagValue, err.ConfigPath, err.FileValue)
}

func (err *BuildFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "build %s/%s failed", err.TemplateID, err.BuildID)
	if err.Reason != "" {
		b.WriteString(": ")
		b.WriteString(err.Reason)
	}
	return b.String()
}

func (err MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field `%s`", err.Name)
}
