package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"modernc.org/fileutil"

	"github.com/agentbox/agentbox-go/sandbox/apis"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
	"github.com/agentbox/agentbox-go/template/retrier"
)

// ListTemplates 列出所有模板。
func (c *Client) ListTemplates(ctx context.Context, params *ListTemplatesParams) ([]Template, error) {
	resp, err := c.api.ListTemplatesWithResponse(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp.JSON200 == nil {
		return nil, newAPIError(resp.StatusCode(), resp.Body)
	}
	return templatesFromAPI(*resp.JSON200), nil
}

// DeleteTemplate 删除一个模板。
func (c *Client) DeleteTemplate(ctx context.Context, templateID string) error {
	resp, err := c.api.DeleteTemplateWithResponse(ctx, templateID)
	if err != nil {
		return err
	}
	sc := resp.StatusCode()
	if sc != http.StatusOK && sc != http.StatusNoContent {
		return newAPIError(sc, resp.Body)
	}
	return nil
}

// RequestBuild 提交构建请求。templateID 为空时创建新模板，否则重新构建已有模板。
// 返回服务端分配的 templateID 和 buildID。
func (c *Client) RequestBuild(ctx context.Context, req BuildRequest, templateID string) (*BuildRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		body       = req.toAPI()
		statusCode int
		respBody   []byte
		template   *apis.Template
	)
	if templateID == "" {
		resp, err := c.api.CreateTemplateWithResponse(ctx, body)
		if err != nil {
			return nil, err
		}
		statusCode, respBody, template = resp.StatusCode(), resp.Body, resp.JSON202
	} else {
		resp, err := c.api.RebuildTemplateWithResponse(ctx, templateID, body)
		if err != nil {
			return nil, err
		}
		statusCode, respBody, template = resp.StatusCode(), resp.Body, resp.JSON202
	}
	if template == nil {
		return nil, newAPIError(statusCode, respBody)
	}
	if template.TemplateID == "" || template.BuildID == "" {
		return nil, fmt.Errorf("request build: response is missing templateID or buildID")
	}
	return buildRecordFromAPI(template), nil
}

// UploadOption 配置上传行为的选项。
type UploadOption func(*uploadOpts)

type uploadOpts struct {
	onProgress func(sent, total int64)
}

// WithUploadProgress 设置上传进度回调。
func WithUploadProgress(fn func(sent, total int64)) UploadOption {
	return func(o *uploadOpts) { o.onProgress = fn }
}

// UploadBuildArtifact 以 multipart 流式上传构建产物，文件不会整体读入内存。
// 每次调用都会重新打开文件，因此可以安全地重试。
func (c *Client) UploadBuildArtifact(ctx context.Context, templateID, buildID, artifactPath string, opts ...UploadOption) error {
	o := &uploadOpts{}
	for _, opt := range opts {
		opt(o)
	}

	file, err := os.Open(artifactPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &tplerrors.NotFoundError{Path: artifactPath}
		}
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	_ = fileutil.Fadvise(file, 0, 0, fileutil.POSIX_FADV_SEQUENTIAL)

	pr, pw := io.Pipe()
	mw := newMultipartWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		src := &progressReader{r: file, total: info.Size(), onProgress: o.onProgress}
		_, err := mw.copyFile("file", artifactPath, src)
		if err == nil {
			err = mw.close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.api.UploadTemplateBuildWithBodyWithResponse(ctx, templateID, buildID, mw.contentType(), pr)
	pr.Close()
	<-done
	if err != nil {
		return err
	}
	if sc := resp.StatusCode(); sc < 200 || sc > 299 {
		return newAPIError(sc, resp.Body)
	}
	return nil
}

// StartBuild 触发已交付构建产物的远端构建。
func (c *Client) StartBuild(ctx context.Context, templateID, buildID string) error {
	resp, err := c.api.StartTemplateBuildWithResponse(ctx, templateID, buildID)
	if err != nil {
		return err
	}
	if sc := resp.StatusCode(); sc < 200 || sc > 299 {
		return newAPIError(sc, resp.Body)
	}
	return nil
}

// GetBuildStatus 返回构建状态以及从 LogsOffset 开始的日志。
func (c *Client) GetBuildStatus(ctx context.Context, templateID, buildID string, params BuildStatusParams) (*TemplateBuildInfo, error) {
	offset := params.LogsOffset
	switch params.API {
	case StatusAPIStructured:
		resp, err := c.api.GetTemplateBuildStatusV2WithResponse(ctx, templateID, buildID, &apis.GetTemplateBuildStatusV2Params{LogsOffset: &offset})
		if err != nil {
			return nil, err
		}
		if resp.JSON200 == nil {
			return nil, newAPIError(resp.StatusCode(), resp.Body)
		}
		return templateBuildInfoFromAPIV2(resp.JSON200), nil
	default:
		resp, err := c.api.GetTemplateBuildStatusWithResponse(ctx, templateID, buildID, &apis.GetTemplateBuildStatusParams{LogsOffset: &offset})
		if err != nil {
			return nil, err
		}
		if resp.JSON200 == nil {
			return nil, newAPIError(resp.StatusCode(), resp.Body)
		}
		return templateBuildInfoFromAPI(resp.JSON200), nil
	}
}

// WaitForBuild 轮询 GetBuildStatus 直到构建达到终态（"ready" 或 "error"）。
//
// 新日志通过 WithOnLogs 按顺序回调，每条只回调一次。构建失败时返回 BuildFailedError，
// 最后一次响应中的日志放在 BuildFailedError.Logs 中，不会再回调。
// 设置了 WithPollTimeout 时超时返回 TimeoutError。
func (c *Client) WaitForBuild(ctx context.Context, templateID, buildID string, opts ...PollOption) (*TemplateBuildInfo, error) {
	o := defaultPollOpts(DefaultBuildPollInterval)
	for _, opt := range opts {
		opt(o)
	}

	var offset int32
	return pollLoop(ctx, "wait for build "+templateID+"/"+buildID, o, func(ctx context.Context) (bool, *TemplateBuildInfo, error) {
		var info *TemplateBuildInfo
		err := retrier.Do(ctx, o.statusRetry, func(ctx context.Context, attempt int) error {
			var err error
			info, err = c.GetBuildStatus(ctx, templateID, buildID, BuildStatusParams{LogsOffset: offset, API: o.statusAPI})
			return err
		})
		if err != nil {
			return false, nil, fmt.Errorf("get build status %s/%s: %w", templateID, buildID, err)
		}

		if info.Status == BuildStatusError {
			failed := &tplerrors.BuildFailedError{TemplateID: templateID, BuildID: buildID}
			if info.Reason != nil {
				failed.Reason = info.Reason.Message
			}
			for _, e := range info.Logs {
				failed.Logs = append(failed.Logs, e.String())
			}
			return true, info, failed
		}

		if len(info.Logs) > 0 {
			offset += int32(len(info.Logs))
			if o.onLogs != nil {
				o.onLogs(info.Logs)
			}
		}
		return info.Status == BuildStatusReady, info, nil
	})
}
