// Package platform 决定模板构建的目标平台以及对应的交付方式。
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/agentbox/agentbox-go/sandbox"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

// Flow 构建产物的交付方式
type Flow int

const (
	// FlowImagePush 在本地构建镜像并推送到镜像仓库
	FlowImagePush Flow = iota
	// FlowArchiveUpload 打包项目目录并上传
	FlowArchiveUpload
)

func (f Flow) String() string {
	switch f {
	case FlowImagePush:
		return "image-push"
	case FlowArchiveUpload:
		return "archive-upload"
	default:
		return fmt.Sprintf("Flow(%d)", int(f))
	}
}

// ErrUnspecified 没有任何来源给出平台
var ErrUnspecified = errors.New("platform is not specified: pass --platform, set `platform` in the config file or AGENTBOX_PLATFORM")

// Parse 解析平台名称，允许大小写和 "-" 分隔的写法，例如 linux-arm。
func Parse(s string) (sandbox.EnvironmentType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, t := range sandbox.EnvironmentTypes() {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q, expected one of %s", s, strings.Join(Names(), ", "))
}

// Names 返回全部平台名称。
func Names() []string {
	types := sandbox.EnvironmentTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// FlowFor 返回平台对应的交付方式。
func FlowFor(env sandbox.EnvironmentType) Flow {
	if env == sandbox.EnvironmentLinuxX86 {
		return FlowImagePush
	}
	return FlowArchiveUpload
}

// StatusAPIFor 返回平台对应的构建状态接口。
func StatusAPIFor(env sandbox.EnvironmentType) sandbox.StatusAPI {
	if FlowFor(env) == FlowImagePush {
		return sandbox.StatusAPILegacy
	}
	return sandbox.StatusAPIStructured
}

// Sources 平台的各个来源，优先级从高到低为 Flag、Persisted、Env。
type Sources struct {
	Flag       string
	Persisted  string
	Env        string
	ConfigPath string
}

// Resolve 按优先级决定平台。
// Flag 和 Persisted 同时存在且不一致时返回 ConfigMismatchError，都为空时返回 ErrUnspecified。
func Resolve(src Sources) (sandbox.EnvironmentType, error) {
	var flag, persisted sandbox.EnvironmentType
	var err error
	if src.Flag != "" {
		if flag, err = Parse(src.Flag); err != nil {
			return "", err
		}
	}
	if src.Persisted != "" {
		if persisted, err = Parse(src.Persisted); err != nil {
			return "", fmt.Errorf("%s: %w", src.ConfigPath, err)
		}
	}

	switch {
	case flag != "" && persisted != "" && flag != persisted:
		return "", &tplerrors.ConfigMismatchError{
			Field:      "platform",
			FlagValue:  string(flag),
			FileValue:  string(persisted),
			ConfigPath: src.ConfigPath,
		}
	case flag != "":
		return flag, nil
	case persisted != "":
		return persisted, nil
	case src.Env != "":
		return Parse(src.Env)
	}
	return "", ErrUnspecified
}

// Host 当前机器的系统和架构
type Host struct {
	OS   string
	Arch string
}

// DetectHost 返回当前进程运行的系统和架构。
func DetectHost() Host {
	return Host{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// DockerPlatform 返回构建镜像时使用的 docker 平台。
func DockerPlatform(env sandbox.EnvironmentType) string {
	switch env {
	case sandbox.EnvironmentLinuxX86:
		return "linux/amd64"
	default:
		return "linux/arm64"
	}
}

// NeedsCrossBuild 判断在当前机器上构建 env 的镜像是否需要显式指定 docker 平台。
func (h Host) NeedsCrossBuild(env sandbox.EnvironmentType) bool {
	return "linux/"+h.Arch != DockerPlatform(env)
}
