//go:build unit
// +build unit

package retrier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbox/agentbox-go/template/backoff"
	tplerrors "github.com/agentbox/agentbox-go/template/errors"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func resetErr() error {
	return &url.Error{
		Op:  "Post",
		URL: "https://api.agentbox.cloud/templates/t/builds/b/upload",
		Err: &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.ECONNRESET)},
	}
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	attempts := 0
	retried := 0
	err := Do(context.Background(), Policy{
		Op:          "upload",
		MaxAttempts: 3,
		Backoff:     backoff.Fixed(time.Millisecond),
		OnRetry:     func(int, error) { retried++ },
	}, func(ctx context.Context, attempt int) error {
		attempts++
		assert.Equal(t, attempts, attempt)
		if attempt < 3 {
			return resetErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, retried)
}

func TestDoExhausted(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{Op: "trigger", MaxAttempts: 3}, func(ctx context.Context, attempt int) error {
		attempts++
		return statusErr(502)
	})
	var failed *tplerrors.RequestFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "trigger", failed.Op)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, statusErr(502), failed.Err)
}

func TestDoDoesNotRetryRejection(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) error {
		attempts++
		return statusErr(400)
	})
	assert.Equal(t, statusErr(400), err)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, Policy{MaxAttempts: 5, Backoff: backoff.Fixed(time.Hour)}, func(ctx context.Context, attempt int) error {
		attempts++
		cancel()
		return io.ErrUnexpectedEOF
	})
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{resetErr(), true},
		{&url.Error{Op: "Post", URL: "https://x", Err: io.EOF}, true},
		{fmt.Errorf("upload: %w", io.ErrUnexpectedEOF), true},
		{errors.New("write tcp 10.0.0.1:1234->10.0.0.2:443: use of closed network connection"), true},
		{errors.New("http: server closed idle connection"), true},
		{os.NewSyscallError("write", syscall.EPIPE), true},
		{statusErr(503), true},
		{statusErr(501), false},
		{statusErr(404), false},
		{&tplerrors.NotFoundError{Path: "/tmp/a.zip"}, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{errors.New("invalid character"), false},
	}
	for i, c := range cases {
		assert.Equal(t, c.retryable, IsRetryable(c.err), "case %d: %v", i, c.err)
	}
}
