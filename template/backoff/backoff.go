package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alex-ant/gomath/rational"
)

// Backoff 退避器接口
type Backoff interface {
	// Wait 返回第 attempt 次失败（从 1 开始）之后需要等待的时长
	Wait(attempt int) time.Duration
}

// Func 函数形式的退避器
type Func func(attempt int) time.Duration

// Wait 实现 Backoff 接口
func (f Func) Wait(attempt int) time.Duration {
	return f(attempt)
}

type noBackoff struct{}

// None 创建不等待的退避器
func None() Backoff {
	return noBackoff{}
}

func (noBackoff) Wait(int) time.Duration {
	return 0
}

type fixedBackoff struct {
	wait time.Duration
}

// Fixed 创建固定时长的退避器
func Fixed(wait time.Duration) Backoff {
	return fixedBackoff{wait: wait}
}

func (b fixedBackoff) Wait(int) time.Duration {
	return b.wait
}

type exponentialBackoff struct {
	base   time.Duration
	factor float64
}

// Exponential 创建时长指数级增长的退避器，第 n 次等待 base * factor^(n-1)
func Exponential(base time.Duration, factor float64) Backoff {
	return exponentialBackoff{base: base, factor: factor}
}

func (b exponentialBackoff) Wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(b.base) * math.Pow(b.factor, float64(attempt-1)))
}

type limitedBackoff struct {
	base     Backoff
	min, max time.Duration
}

// Limited 将 base 的结果限制在 [min, max] 之间
func Limited(base Backoff, min, max time.Duration) Backoff {
	return limitedBackoff{base: base, min: min, max: max}
}

func (b limitedBackoff) Wait(attempt int) time.Duration {
	d := b.base.Wait(attempt)
	if d < b.min {
		return b.min
	} else if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}

type jitteredBackoff struct {
	base         Backoff
	lower, upper rational.Rational
	r            *rand.Rand
	mu           sync.Mutex
}

// Jittered 在 base 的结果上随机抖动，结果落在 [base*lower, base*upper) 之间
func Jittered(base Backoff, lower, upper rational.Rational) Backoff {
	if lower.LessThanNum(0) {
		panic("lower must be greater than or equal to 0")
	}
	if upper.Subtract(lower).Float64() <= 0 {
		panic("upper must be greater than lower")
	}
	return &jitteredBackoff{
		base:  base,
		lower: lower,
		upper: upper,
		r:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *jitteredBackoff) Wait(attempt int) time.Duration {
	d := b.base.Wait(attempt)
	if d <= 0 {
		return 0
	}
	lo := b.lower.MultiplyByNum(int64(d))
	hi := b.upper.MultiplyByNum(int64(d))
	diff := int64(hi.Subtract(lo).Float64())
	if diff <= 0 {
		return time.Duration(lo.Float64())
	}
	b.mu.Lock()
	n := b.r.Int63n(diff)
	b.mu.Unlock()
	return time.Duration(lo.AddNum(n).Float64())
}
