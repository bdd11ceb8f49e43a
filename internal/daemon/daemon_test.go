package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grailtrade.com/internal/domain"
)

func transientErr() error {
	return &domain.ServiceUnavailableError{Target: "chara/user/1", Status: 502}
}

func newTestBreaker(now *time.Time) *Breaker {
	b := NewBreaker(5, 5*time.Minute)
	b.now = func() time.Time { return *now }
	return b
}

func TestBreakerTripsWhenWindowOverflows(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)

	// 4 分钟内连吃 6 个错误: 第 6 个超过容忍数
	for i := 0; i < 5; i++ {
		assert.NoError(t, b.Guard("tick", transientErr()))
		now = now.Add(40 * time.Second)
	}
	err := b.Guard("tick", transientErr())
	assert.ErrorIs(t, err, domain.ErrTooManyErrors)
}

func TestBreakerSpacedErrorsNeverTrip(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)

	// 每 2 分钟一个错误，窗口里永远凑不够
	for i := 0; i < 10; i++ {
		assert.NoError(t, b.Guard("tick", transientErr()))
		now = now.Add(2 * time.Minute)
	}
}

func TestBreakerIgnoresExpectedErrors(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)

	rejected := &domain.ServerRejectedError{State: 1, Message: "今日已经领取过登录奖励。"}
	for i := 0; i < 20; i++ {
		assert.NoError(t, b.Guard("daily", rejected))
	}
	assert.Empty(t, b.times)
}

func TestBreakerGuardNilIsFree(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	assert.NoError(t, b.Guard("tick", nil))
	assert.Empty(t, b.times)
}

// countingRunner 记录每个钩子被调用的次数
type countingRunner struct {
	start, tick, hourly, daily, finalize int
}

func (r *countingRunner) Start(ctx context.Context) error    { r.start++; return nil }
func (r *countingRunner) Tick(ctx context.Context) error     { r.tick++; return nil }
func (r *countingRunner) Hourly(ctx context.Context) error   { r.hourly++; return nil }
func (r *countingRunner) Daily(ctx context.Context) error    { r.daily++; return nil }
func (r *countingRunner) Finalize(ctx context.Context) error { r.finalize++; return nil }

func TestDaemonCalendarGating(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 30, 0, 0, time.UTC)
	runner := &countingRunner{}
	d := New(runner, newTestBreaker(&now), time.Second)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	// 同一小时内三轮: Daily/Hourly 只跑一次
	for i := 0; i < 3; i++ {
		require.NoError(t, d.runOnce(ctx))
		now = now.Add(time.Minute)
	}
	assert.Equal(t, 3, runner.tick)
	assert.Equal(t, 1, runner.hourly)
	assert.Equal(t, 1, runner.daily)

	// 跨过小时界
	now = now.Add(time.Hour)
	require.NoError(t, d.runOnce(ctx))
	assert.Equal(t, 2, runner.hourly)
	assert.Equal(t, 1, runner.daily)

	// 跨过日界
	now = now.Add(24 * time.Hour)
	require.NoError(t, d.runOnce(ctx))
	assert.Equal(t, 3, runner.hourly)
	assert.Equal(t, 2, runner.daily)
}

func TestDaemonStopsAtTickBoundary(t *testing.T) {
	now := time.Date(2020, 6, 1, 12, 30, 0, 0, time.UTC)
	runner := &countingRunner{}
	d := New(runner, newTestBreaker(&now), time.Hour)
	d.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 已取消的 ctx: 第一轮照常跑完，睡前退出，Finalize 必达
	require.NoError(t, d.RunForever(ctx))
	assert.Equal(t, 1, runner.start)
	assert.Equal(t, 1, runner.tick)
	assert.Equal(t, 1, runner.finalize)
}
