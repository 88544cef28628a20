package sandbox

import (
	"strings"
	"time"

	"github.com/agentbox/agentbox-go/sandbox/apis"
)

// ---------------------------------------------------------------------------
// SDK 自有类型：模板相关
// ---------------------------------------------------------------------------

// TemplateBuildStatus 模板构建状态。
type TemplateBuildStatus string

// 模板构建状态常量。
const (
	BuildStatusReady    TemplateBuildStatus = "ready"
	BuildStatusError    TemplateBuildStatus = "error"
	BuildStatusBuilding TemplateBuildStatus = "building"
	BuildStatusWaiting  TemplateBuildStatus = "waiting"
	BuildStatusUploaded TemplateBuildStatus = "uploaded"
)

// IsTerminal 判断状态是否为终态，终态不会再变化。
func (s TemplateBuildStatus) IsTerminal() bool {
	return s == BuildStatusReady || s == BuildStatusError
}

// EnvironmentType 模板运行的平台。
type EnvironmentType string

// 平台常量。
const (
	EnvironmentLinuxX86 EnvironmentType = EnvironmentType(apis.EnvironmentTypeLinuxX86)
	EnvironmentLinuxArm EnvironmentType = EnvironmentType(apis.EnvironmentTypeLinuxArm)
	EnvironmentAndroid  EnvironmentType = EnvironmentType(apis.EnvironmentTypeAndroid)
)

// EnvironmentTypes 返回全部已知平台。
func EnvironmentTypes() []EnvironmentType {
	return []EnvironmentType{EnvironmentLinuxX86, EnvironmentLinuxArm, EnvironmentAndroid}
}

// StatusAPI 选择构建状态接口的版本。
type StatusAPI int

const (
	// StatusAPILegacy 返回纯文本日志行
	StatusAPILegacy StatusAPI = iota
	// StatusAPIStructured 返回带级别和时间戳的结构化日志
	StatusAPIStructured
)

// BuildRequest 创建或重新构建模板的请求。提交后不应再修改。
type BuildRequest struct {
	Alias             string          `validate:"omitempty,max=128"`
	StartCommand      string          `validate:"omitempty"`
	CPUCount          int32           `validate:"omitempty,min=1,max=64"`
	MemoryMB          int32           `validate:"omitempty,min=128,max=65536,even"`
	DockerfileContent string          `validate:"required"`
	TeamID            string          `validate:"omitempty"`
	EnvironmentType   EnvironmentType `validate:"required,oneof=linux_x86 linux_arm android"`
}

// Validate 检查请求字段是否合法。
func (r *BuildRequest) Validate() error {
	return defaultValidator.Validate(r)
}

func (r *BuildRequest) toAPI() apis.TemplateBuildRequest {
	body := apis.TemplateBuildRequest{Dockerfile: r.DockerfileContent}
	if r.Alias != "" {
		body.Alias = &r.Alias
	}
	if r.StartCommand != "" {
		body.StartCmd = &r.StartCommand
	}
	if r.CPUCount > 0 {
		body.CPUCount = &r.CPUCount
	}
	if r.MemoryMB > 0 {
		body.MemoryMB = &r.MemoryMB
	}
	if r.TeamID != "" {
		body.TeamID = &r.TeamID
	}
	if r.EnvironmentType != "" {
		envType := apis.EnvironmentType(r.EnvironmentType)
		body.EnvironmentType = &envType
	}
	return body
}

// BuildRecord 服务端为一次构建分配的标识。
type BuildRecord struct {
	TemplateID string
	BuildID    string
	Aliases    []string
	CPUCount   int32
	MemoryMB   int32
}

// Template 模板信息。
type Template struct {
	TemplateID      string
	Aliases         []string
	BuildID         string
	BuildStatus     TemplateBuildStatus
	BuildCount      int32
	CPUCount        int32
	MemoryMB        int32
	EnvironmentType EnvironmentType
	Public          bool
	SpawnCount      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSpawnedAt   *time.Time
}

// TemplateBuildInfo 模板构建状态信息，新旧两个状态接口的结果都转换为该类型。
type TemplateBuildInfo struct {
	TemplateID string
	BuildID    string
	Status     TemplateBuildStatus
	// Logs 是从请求的偏移量开始的新日志
	Logs []BuildLogEntry
	// Reason 仅在 error 状态下有值
	Reason *BuildStatusReason
}

// BuildStatusReason 构建进入当前状态的原因。
type BuildStatusReason struct {
	Message string
	Step    *string
}

// BuildLogEntry 构建日志条目。旧接口的日志只有 Message。
type BuildLogEntry struct {
	Level     string
	Message   string
	Step      *string
	Timestamp time.Time
}

// String 返回日志的可读形式。
func (e BuildLogEntry) String() string {
	if e.Timestamp.IsZero() {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Timestamp.Local().Format("15:04:05"))
	if e.Level != "" {
		b.WriteString(" [")
		b.WriteString(strings.ToUpper(e.Level))
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	return b.String()
}

// ListTemplatesParams 列出模板的查询参数。
type ListTemplatesParams = apis.ListTemplatesParams

// BuildStatusParams 查询构建状态的参数。
type BuildStatusParams struct {
	LogsOffset int32
	API        StatusAPI
}

// ---------------------------------------------------------------------------
// 转换函数：apis → SDK
// ---------------------------------------------------------------------------

func templateFromAPI(a apis.Template) Template {
	t := Template{
		TemplateID:    a.TemplateID,
		BuildID:       a.BuildID,
		BuildCount:    a.BuildCount,
		CPUCount:      a.CPUCount,
		MemoryMB:      a.MemoryMB,
		Public:        a.Public,
		SpawnCount:    a.SpawnCount,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		LastSpawnedAt: a.LastSpawnedAt,
	}
	if a.Aliases != nil {
		t.Aliases = *a.Aliases
	}
	if a.BuildStatus != nil {
		t.BuildStatus = TemplateBuildStatus(*a.BuildStatus)
	}
	if a.EnvironmentType != nil {
		t.EnvironmentType = EnvironmentType(*a.EnvironmentType)
	}
	return t
}

func templatesFromAPI(a []apis.Template) []Template {
	if a == nil {
		return nil
	}
	result := make([]Template, len(a))
	for i, t := range a {
		result[i] = templateFromAPI(t)
	}
	return result
}

func buildRecordFromAPI(a *apis.Template) *BuildRecord {
	if a == nil {
		return nil
	}
	r := &BuildRecord{
		TemplateID: a.TemplateID,
		BuildID:    a.BuildID,
		CPUCount:   a.CPUCount,
		MemoryMB:   a.MemoryMB,
	}
	if a.Aliases != nil {
		r.Aliases = *a.Aliases
	}
	return r
}

func buildStatusReasonFromAPI(a *apis.BuildStatusReason) *BuildStatusReason {
	if a == nil {
		return nil
	}
	return &BuildStatusReason{Message: a.Message, Step: a.Step}
}

func buildLogEntryFromAPI(e apis.BuildLogEntry) BuildLogEntry {
	return BuildLogEntry{
		Level:     string(e.Level),
		Message:   e.Message,
		Step:      e.Step,
		Timestamp: e.Timestamp,
	}
}

func templateBuildInfoFromAPI(a *apis.TemplateBuild) *TemplateBuildInfo {
	if a == nil {
		return nil
	}
	info := &TemplateBuildInfo{
		TemplateID: a.TemplateID,
		BuildID:    a.BuildID,
		Status:     TemplateBuildStatus(a.Status),
		Reason:     buildStatusReasonFromAPI(a.Reason),
	}
	for _, line := range a.Logs {
		info.Logs = append(info.Logs, BuildLogEntry{Message: line})
	}
	return info
}

func templateBuildInfoFromAPIV2(a *apis.TemplateBuildInfoV2) *TemplateBuildInfo {
	if a == nil {
		return nil
	}
	info := &TemplateBuildInfo{
		TemplateID: a.TemplateID,
		BuildID:    a.BuildID,
		Status:     TemplateBuildStatus(a.Status),
		Reason:     buildStatusReasonFromAPI(a.Reason),
	}
	for _, e := range a.LogEntries {
		info.Logs = append(info.Logs, buildLogEntryFromAPI(e))
	}
	return info
}
