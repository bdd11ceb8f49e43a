package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grailtrade.com/internal/domain"
)

func TestRefreshThrottling(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMatrix(2*time.Second, "position")
	m.now = func() time.Time { return clock }

	calls := 0
	require.NoError(t, m.Register(func(ctx context.Context) error {
		calls++
		return nil
	}, "position"))

	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx, "position"))
	require.NoError(t, m.Refresh(ctx, "position"))
	assert.Equal(t, 1, calls, "second refresh within interval must not fetch")

	clock = clock.Add(3 * time.Second)
	require.NoError(t, m.Refresh(ctx, "position"))
	assert.Equal(t, 2, calls, "refresh after interval must fetch again")
}

func TestSharedRefresherStampsAllTokens(t *testing.T) {
	m := NewMatrix(time.Minute, "bids", "asks", "amount")

	calls := 0
	require.NoError(t, m.Register(func(ctx context.Context) error {
		calls++
		return nil
	}, "bids", "asks", "amount"))

	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx, "bids"))
	// asks 与 amount 和 bids 同组，应已同时变新鲜
	require.NoError(t, m.Refresh(ctx, "asks", "amount"))
	assert.Equal(t, 1, calls)
}

func TestInvalidateForcesFetch(t *testing.T) {
	m := NewMatrix(time.Hour, "charts")

	calls := 0
	require.NoError(t, m.Register(func(ctx context.Context) error {
		calls++
		return nil
	}, "charts"))

	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx, "charts"))
	m.Invalidate("charts")
	require.NoError(t, m.Refresh(ctx, "charts"))
	assert.Equal(t, 2, calls)
}

func TestUnknownToken(t *testing.T) {
	m := NewMatrix(time.Second, "known")

	err := m.Refresh(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrUnregisteredToken)

	err = m.Register(func(ctx context.Context) error { return nil }, "unknown")
	assert.ErrorIs(t, err, domain.ErrUnregisteredToken)
}

func TestTokenWithoutRefresher(t *testing.T) {
	m := NewMatrix(time.Second, "orphan")

	err := m.Refresh(context.Background(), "orphan")
	assert.ErrorIs(t, err, domain.ErrNoRefresherAvailable)
}

func TestRefresherErrorPropagates(t *testing.T) {
	m := NewMatrix(time.Second, "position")
	boom := errors.New("boom")
	require.NoError(t, m.Register(func(ctx context.Context) error { return boom }, "position"))

	err := m.Refresh(context.Background(), "position")
	assert.ErrorIs(t, err, boom)

	// 失败的刷新不应盖新鲜戳
	calls := 0
	m2 := NewMatrix(time.Minute, "p")
	require.NoError(t, m2.Register(func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	}, "p"))
	_ = m2.Refresh(context.Background(), "p")
	require.NoError(t, m2.Refresh(context.Background(), "p"))
	assert.Equal(t, 2, calls)
}

func TestPerTokenInterval(t *testing.T) {
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := NewMatrix(2*time.Second, "charts")
	m.now = func() time.Time { return clock }
	m.SetInterval("charts", 24*time.Hour)

	calls := 0
	require.NoError(t, m.Register(func(ctx context.Context) error {
		calls++
		return nil
	}, "charts"))

	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx, "charts"))
	clock = clock.Add(6 * time.Hour)
	require.NoError(t, m.Refresh(ctx, "charts"))
	assert.Equal(t, 1, calls, "charts refresh daily, 6h is still fresh")

	clock = clock.Add(19 * time.Hour)
	require.NoError(t, m.Refresh(ctx, "charts"))
	assert.Equal(t, 2, calls)
}
