package sandbox

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/http/httputil"
	"strings"
	"sync"
	"time"
)

// debugTransport 打印每个请求和响应，只有 JSON body 会被完整输出，
// 上传的归档文件是流式发送的，不能被读取。
type debugTransport struct {
	base http.RoundTripper
	out  io.Writer
	mu   sync.Mutex
}

func newDebugTransport(base http.RoundTripper, out io.Writer) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &debugTransport{base: base, out: out}
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	label := t.requestLabel(req)

	if dump, err := httputil.DumpRequestOut(req, isJSONContent(req.Header)); err == nil {
		t.print(label + " request:\n" + string(dump) + "\n")
	}

	req = t.traceRequest(label, req)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.print(fmt.Sprintf("%s error after %s: %v\n", label, time.Since(start), err))
		return nil, err
	}

	if dump, dErr := httputil.DumpResponse(resp, isJSONContent(resp.Header)); dErr == nil {
		t.print(fmt.Sprintf("%s response (%s):\n%s\n", label, time.Since(start).Round(time.Millisecond), dump))
	}
	return resp, nil
}

func (t *debugTransport) requestLabel(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", req.Method, req.URL.String())
}

func (t *debugTransport) traceRequest(label string, req *http.Request) *http.Request {
	trace := &httptrace.ClientTrace{
		GotConn: func(connInfo httptrace.GotConnInfo) {
			remoteAddr := connInfo.Conn.RemoteAddr()
			t.print(fmt.Sprintf("%s GotConn, RemoteAddr:%s Reused:%v\n", label, remoteAddr.String(), connInfo.Reused))
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err != nil {
				t.print(fmt.Sprintf("%s WroteRequest, err:%v\n", label, info.Err))
			}
		},
	}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}

func (t *debugTransport) print(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, s)
}

func isJSONContent(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "json")
}
