package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError 表示 API 返回的非预期 HTTP 响应，即服务端拒绝了请求。
type APIError struct {
	StatusCode int
	Body       []byte

	// Code 是从响应 body 中解析出的错误码（如果有）。
	Code string
	// Message 是从响应 body 中解析出的错误消息（如果有）。
	Message string
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status %d, body: %s", e.StatusCode, string(e.Body))
}

// HTTPStatusCode 返回响应状态码，重试逻辑据此判断是否可以重试。
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// newAPIError 创建 APIError 并尝试从 JSON body 中解析结构化字段。
func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode, Body: body}
	e.Code, e.Message = parseAPIErrorBody(body)
	return e
}

// parseAPIErrorBody 尝试从 JSON body 中解析 code 和 message 字段。
// code 可能是数字也可能是字符串。
func parseAPIErrorBody(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}
	var parsed struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if string(parsed.Code) != "null" {
			code = strings.Trim(string(parsed.Code), `"`)
		}
		return code, parsed.Message
	}
	return "", ""
}

// IsNotFound 判断错误是否为"未找到"类型。
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
