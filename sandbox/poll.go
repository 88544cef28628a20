package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/alex-ant/gomath/rational"

	"github.com/agentbox/agentbox-go/template/backoff"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
	"github.com/agentbox/agentbox-go/template/retrier"
)

// DefaultBuildPollInterval 是查询构建状态的默认间隔。
const DefaultBuildPollInterval = 500 * time.Millisecond

// PollOption 配置轮询行为的选项。
type PollOption func(*pollOpts)

type pollOpts struct {
	interval    time.Duration
	maxInterval time.Duration
	backoff     float64 // 退避倍数，默认 1.0（无退避）
	timeout     time.Duration
	onPoll      func(attempt int)
	onLogs      func(entries []BuildLogEntry)
	statusAPI   StatusAPI
	statusRetry retrier.Policy
}

func defaultPollOpts(defaultInterval time.Duration) *pollOpts {
	return &pollOpts{
		interval:    defaultInterval,
		maxInterval: 0,
		backoff:     1.0,
		statusRetry: DefaultStatusRetryPolicy(),
	}
}

// DefaultStatusRetryPolicy 是单次状态查询失败时的重试策略：
// 最多 3 次，指数退避并随机抖动。
func DefaultStatusRetryPolicy() retrier.Policy {
	return retrier.Policy{
		Op:          "get build status",
		MaxAttempts: 3,
		Backoff: backoff.Limited(
			backoff.Jittered(backoff.Exponential(250*time.Millisecond, 2), rational.New(1, 2), rational.New(3, 2)),
			0, 5*time.Second),
	}
}

// WithPollInterval 设置轮询间隔。
func WithPollInterval(d time.Duration) PollOption {
	return func(o *pollOpts) { o.interval = d }
}

// WithBackoff 设置指数退避倍数和最大间隔。
// multiplier 为每次轮询后间隔的乘数（如 1.5 表示每次增加 50%），
// maxInterval 为间隔上限（0 表示不限制）。
func WithBackoff(multiplier float64, maxInterval time.Duration) PollOption {
	return func(o *pollOpts) {
		o.backoff = multiplier
		o.maxInterval = maxInterval
	}
}

// WithOnPoll 设置每次轮询时的回调函数。
// attempt 从 1 开始递增。
func WithOnPoll(fn func(attempt int)) PollOption {
	return func(o *pollOpts) { o.onPoll = fn }
}

// WithPollTimeout 设置等待的最长时间，超过后返回 TimeoutError，0 表示不限制。
// 远端构建不会因此被取消。
func WithPollTimeout(d time.Duration) PollOption {
	return func(o *pollOpts) { o.timeout = d }
}

// WithOnLogs 设置新日志的回调，每条日志只会回调一次且保持服务端顺序。
func WithOnLogs(fn func(entries []BuildLogEntry)) PollOption {
	return func(o *pollOpts) { o.onLogs = fn }
}

// WithStatusAPI 选择构建状态接口的版本，默认 StatusAPILegacy。
func WithStatusAPI(api StatusAPI) PollOption {
	return func(o *pollOpts) { o.statusAPI = api }
}

// WithStatusRetry 设置单次状态查询的重试策略。
func WithStatusRetry(policy retrier.Policy) PollOption {
	return func(o *pollOpts) { o.statusRetry = policy }
}

// pollLoop 是 WaitForBuild 使用的轮询循环。
// pollFn 在每次轮询时被调用，返回 (done, result, error)。
func pollLoop[T any](ctx context.Context, op string, opts *pollOpts, pollFn func(ctx context.Context) (bool, T, error)) (T, error) {
	if opts.interval <= 0 {
		opts.interval = time.Second
	}

	parent := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	timedOut := func() bool {
		return opts.timeout > 0 && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
	}

	interval := opts.interval
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	attempt := 0
	for {
		attempt++
		if opts.onPoll != nil {
			opts.onPoll(attempt)
		}

		done, result, err := pollFn(ctx)
		if err != nil {
			if timedOut() {
				return result, &tplerrors.TimeoutError{Op: op, After: opts.timeout}
			}
			return result, err
		}
		if done {
			return result, nil
		}

		// 计算下次间隔（退避）
		if opts.backoff > 1.0 {
			interval = time.Duration(float64(interval) * opts.backoff)
			if opts.maxInterval > 0 && interval > opts.maxInterval {
				interval = opts.maxInterval
			}
		}

		if timer == nil {
			timer = time.NewTimer(interval)
		} else {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			var zero T
			if timedOut() {
				return zero, &tplerrors.TimeoutError{Op: op, After: opts.timeout}
			}
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
