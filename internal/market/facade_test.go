package market

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grailtrade.com/internal/model"
)

// fakeAPI 在内存里维护持仓，挂/撤单立即生效
type fakeAPI struct {
	position model.Position
	snapshot model.CharacterSnapshot
	depth    model.Depth
	charts   []model.Chartum

	nextID int64
	calls  map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, calls: make(map[string]int)}
}

func (a *fakeAPI) CharacterInfo(ctx context.Context, cid int) (*model.CharacterSnapshot, error) {
	a.calls["character"]++
	snap := a.snapshot
	return &snap, nil
}

func (a *fakeAPI) UserCharacter(ctx context.Context, cid int) (*model.Position, error) {
	a.calls["user_character"]++
	pos := model.Position{
		Amount: a.position.Amount,
		Bids:   append([]model.Order(nil), a.position.Bids...),
		Asks:   append([]model.Order(nil), a.position.Asks...),
	}
	return &pos, nil
}

func (a *fakeAPI) Depth(ctx context.Context, cid int) (*model.Depth, error) {
	a.calls["depth"]++
	depth := a.depth
	return &depth, nil
}

func (a *fakeAPI) Charts(ctx context.Context, cid int) ([]model.Chartum, error) {
	a.calls["charts"]++
	return a.charts, nil
}

func (a *fakeAPI) CreateBid(ctx context.Context, cid int, bid model.Order) error {
	a.calls["create_bid"]++
	bid.ID = a.nextID
	a.nextID++
	a.position.Bids = append(a.position.Bids, bid)
	return nil
}

func (a *fakeAPI) CreateAsk(ctx context.Context, cid int, ask model.Order) error {
	a.calls["create_ask"]++
	ask.ID = a.nextID
	a.nextID++
	a.position.Asks = append(a.position.Asks, ask)
	a.position.Amount -= ask.Amount
	return nil
}

func (a *fakeAPI) CancelBid(ctx context.Context, id int64) error {
	a.calls["cancel_bid"]++
	a.position.Bids = removeByID(a.position.Bids, id)
	return nil
}

func (a *fakeAPI) CancelAsk(ctx context.Context, id int64) error {
	a.calls["cancel_ask"]++
	for _, o := range a.position.Asks {
		if o.ID == id {
			a.position.Amount += o.Amount
		}
	}
	a.position.Asks = removeByID(a.position.Asks, id)
	return nil
}

func removeByID(orders []model.Order, id int64) []model.Order {
	out := orders[:0]
	for _, o := range orders {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestFacade(t *testing.T, api *fakeAPI) *Facade {
	t.Helper()
	return NewFacade(api, nil, 42, decimal.NewFromFloat(0.1))
}

func TestExchangePriceFloorsAtInitialPrice(t *testing.T) {
	api := newFakeAPI()
	api.charts = []model.Chartum{{Begin: dec(t, "5.00")}}
	api.snapshot = model.CharacterSnapshot{Rate: dec(t, "0.8")}
	f := newTestFacade(t, api)
	ctx := context.Background()

	fundamental, err := f.Fundamental(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8.00", fundamental.StringFixed(2))

	price, err := f.ExchangePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8.00", price.StringFixed(2))

	// 基本面低于发行价时以发行价为底
	api.snapshot.Rate = dec(t, "0.2")
	f2 := newTestFacade(t, api)
	price, err = f2.ExchangePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5.00", price.StringFixed(2))
}

func TestLazyThrottledReads(t *testing.T) {
	api := newFakeAPI()
	f := newTestFacade(t, api)
	ctx := context.Background()

	_, err := f.MyBids(ctx)
	require.NoError(t, err)
	_, err = f.MyAsks(ctx)
	require.NoError(t, err)
	_, err = f.Amount(ctx)
	require.NoError(t, err)

	// 三个字段共享一次持仓拉取
	assert.Equal(t, 1, api.calls["user_character"])
}

func TestMutationInvalidates(t *testing.T) {
	api := newFakeAPI()
	f := newTestFacade(t, api)
	ctx := context.Background()

	_, err := f.MyBids(ctx)
	require.NoError(t, err)
	require.NoError(t, f.CreateBid(ctx, model.NewOrder(dec(t, "8.00"), 100)))

	bids, err := f.MyBids(ctx)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
	assert.Equal(t, 2, api.calls["user_character"], "mutation must force a fresh read")
}

func TestEnsureBidsIdempotent(t *testing.T) {
	api := newFakeAPI()
	f := newTestFacade(t, api)
	ctx := context.Background()

	desired := []model.Order{model.NewOrder(dec(t, "8.00"), 100)}
	require.NoError(t, f.EnsureBids(ctx, desired))
	assert.Equal(t, 1, api.calls["create_bid"])

	// 目标集不变，重跑一遍不应发出任何撤/挂请求
	require.NoError(t, f.EnsureBids(ctx, desired))
	assert.Equal(t, 1, api.calls["create_bid"])
	assert.Equal(t, 0, api.calls["cancel_bid"])
}

func TestEnsureAsksConverges(t *testing.T) {
	api := newFakeAPI()
	api.position.Amount = 100
	f := newTestFacade(t, api)
	ctx := context.Background()

	require.NoError(t, f.EnsureAsks(ctx, []model.Order{model.NewOrder(dec(t, "10.00"), 100)}))
	require.Len(t, api.position.Asks, 1)

	// 改变目标: 撤旧挂新
	require.NoError(t, f.EnsureAsks(ctx, []model.Order{model.NewOrder(dec(t, "12.00"), 100)}))
	assert.Equal(t, 1, api.calls["cancel_ask"])
	assert.Equal(t, 2, api.calls["create_ask"])
	require.Len(t, api.position.Asks, 1)
	assert.Equal(t, "12", api.position.Asks[0].Price.String())
}

func TestFacadeCacheEvictsOldest(t *testing.T) {
	api := newFakeAPI()
	built := 0
	cache := NewFacadeCache(2, func(cid int) *Facade {
		built++
		return NewFacade(api, nil, cid, decimal.NewFromFloat(0.1))
	})

	f1 := cache.Get(1)
	cache.Get(2)
	cache.Get(1)   // 1 变为最近使用
	cache.Get(3)   // 淘汰 2
	assert.Equal(t, 2, cache.Len())
	assert.Same(t, f1, cache.Get(1))
	assert.Equal(t, 3, built)

	cache.Get(2) // 2 需要重建
	assert.Equal(t, 4, built)
}
