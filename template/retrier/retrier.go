package retrier

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/agentbox/agentbox-go/template/backoff"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

type (
	// Policy 重试策略
	Policy struct {
		// Op 操作名称，用于错误信息
		Op string
		// MaxAttempts 最多尝试次数（包含第一次），小于 1 时按 1 处理
		MaxAttempts int
		// Backoff 两次尝试之间的等待时长，为空则不等待
		Backoff backoff.Backoff
		// Retryable 判断错误是否可以重试，为空则使用 IsRetryable
		Retryable func(error) bool
		// OnRetry 每次决定重试前调用
		OnRetry func(attempt int, err error)
	}

	// StatusCoder 携带 HTTP 状态码的错误
	StatusCoder interface {
		HTTPStatusCode() int
	}
)

// Do 按照 policy 执行 op，op 的 attempt 参数从 1 开始。
// 不可重试的错误原样返回；可重试的错误在次数用尽后包装为 RequestFailedError。
func Do(ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx, attempt); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		if !retryable(err) {
			return err
		}
		if attempt >= maxAttempts {
			return &tplerrors.RequestFailedError{Op: policy.Op, Attempts: attempt, Err: err}
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		var wait time.Duration
		if policy.Backoff != nil {
			wait = policy.Backoff.Wait(attempt)
		}
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// IsRetryable 判断错误是否属于瞬时故障：连接被重置、连接被关闭、超时以及可重试的 5xx 响应
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return IsStatusCodeRetryable(coder.HTTPStatusCode())
	}
	return IsTransientNetworkError(err)
}

// IsStatusCodeRetryable 判断 HTTP 状态码是否可重试
func IsStatusCodeRetryable(statusCode int) bool {
	if statusCode < 500 {
		return false
	}
	switch statusCode {
	case 501, 505, 509:
		return false
	}
	return true
}

// IsTransientNetworkError 判断错误是否为负载均衡器关闭长连接等瞬时网络错误
func IsTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}

	unwrapped := unwrapUnderlyingError(err)
	if unwrapped == io.EOF || unwrapped == io.ErrUnexpectedEOF {
		return true
	}
	if errno, ok := unwrapped.(syscall.Errno); ok {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNABORTED, syscall.ECONNREFUSED, syscall.EPIPE:
			return true
		}
		return false
	}
	if os.IsTimeout(unwrapped) {
		return true
	}

	desc := err.Error()
	return strings.Contains(desc, "use of closed network connection") ||
		strings.Contains(desc, "connection reset by peer") ||
		strings.Contains(desc, "broken pipe") ||
		strings.Contains(desc, "unexpected EOF") ||
		strings.Contains(desc, "transport connection broken") ||
		strings.Contains(desc, "server closed idle connection")
}

func unwrapUnderlyingError(err error) error {
	for {
		switch e := err.(type) {
		case *os.PathError:
			err = e.Err
		case *os.LinkError:
			err = e.Err
		case *os.SyscallError:
			err = e.Err
		case *url.Error:
			err = e.Err
		case *net.OpError:
			err = e.Err
		default:
			if next := errors.Unwrap(err); next != nil {
				err = next
				continue
			}
			return err
		}
	}
}
