package sandbox

import (
	"runtime"
	"strings"

	"github.com/agentbox/agentbox-go/conf"
)

// defaultHeaders 返回每个请求都会携带的客户端信息。
func defaultHeaders() map[string]string {
	return map[string]string{
		"lang":            "go",
		"lang_version":    strings.TrimPrefix(runtime.Version(), "go"),
		"machine":         runtime.GOARCH,
		"os":              runtime.GOOS,
		"package_version": conf.Version,
		"publisher":       "agentbox",
		"sdk_runtime":     "go",
		"system":          runtime.GOOS,
		"User-Agent":      conf.UserAgent(),
	}
}
