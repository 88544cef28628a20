// Package sandbox 提供 AgentBox 沙箱服务的 Go SDK，用于构建和管理沙箱模板。
//
// 模板是预构建的沙箱环境定义，由一个 Dockerfile 描述，包含基础镜像、依赖、文件和启动命令。
// 构建在服务端完成，本包负责提交构建请求、交付构建产物、触发构建并等待构建结束。
//
// # 快速开始
//
//	c, err := sandbox.NewClient(&sandbox.Config{
//	    APIKey: os.Getenv("AGENTBOX_API_KEY"),
//	})
//
//	record, err := c.RequestBuild(ctx, sandbox.BuildRequest{
//	    DockerfileContent: dockerfile,
//	    EnvironmentType:   sandbox.EnvironmentLinuxArm,
//	    CPUCount:          2,
//	    MemoryMB:          1024,
//	}, "")
//
//	err = c.UploadBuildArtifact(ctx, record.TemplateID, record.BuildID, "/tmp/artifact.zip")
//	err = c.StartBuild(ctx, record.TemplateID, record.BuildID)
//
//	info, err := c.WaitForBuild(ctx, record.TemplateID, record.BuildID,
//	    sandbox.WithStatusAPI(sandbox.StatusAPIStructured),
//	    sandbox.WithOnLogs(func(entries []sandbox.BuildLogEntry) {
//	        for _, e := range entries {
//	            fmt.Println(e)
//	        }
//	    }),
//	)
//
// # 模板管理
//
//   - [Client.RequestBuild]: 创建模板或重新构建已有模板（返回 templateID 和 buildID）
//   - [Client.UploadBuildArtifact]: 流式上传构建产物
//   - [Client.StartBuild]: 触发构建
//   - [Client.GetBuildStatus] / [Client.WaitForBuild]: 查询构建状态和日志
//   - [Client.ListTemplates] / [Client.DeleteTemplate]: 列出和删除模板
//
// 本包中的调用都只发送一次请求，重试策略由调用方通过 template/retrier 决定。
// [Client.WaitForBuild] 是例外，单次状态查询失败时会按 [WithStatusRetry] 重试。
//
// # 轮询选项
//
// [Client.WaitForBuild] 支持通过 [PollOption] 自定义轮询行为:
//
//   - [WithPollInterval]: 设置轮询间隔，默认 [DefaultBuildPollInterval]
//   - [WithBackoff]: 启用指数退避
//   - [WithPollTimeout]: 设置等待上限
//   - [WithOnPoll] / [WithOnLogs]: 注册轮询和日志回调
//   - [WithStatusAPI]: 选择纯文本或结构化日志的状态接口
package sandbox
