package market

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/model"
	"grailtrade.com/internal/refresh"
)

// 刷新矩阵的 Token。一次 "我的持仓" 响应同时填充 my_asks/my_bids/amount，
// 它们共用一个刷新函数，声明在同一组里。
const (
	tokenMyAsks        = "my_asks"
	tokenMyBids        = "my_bids"
	tokenAmount        = "amount"
	tokenUserCharacter = "user_character"
	tokenCharacter     = "character"
	tokenCharts        = "charts"
	tokenAllAsks       = "all_asks"
	tokenAllBids       = "all_bids"
)

const defaultThrottle = 2 * time.Second

// Facade 是一个 (账号, 角色) 的市场视图：
// 读走刷新矩阵做懒惰节流，写 (挂单/撤单) 后失效相关 Token 强制下次读取拉新。
// 非并发安全，与调度器的单工作线程模型一致。
type Facade struct {
	api         domain.MarketAPI
	chartCache  domain.ChartCache
	characterID int
	matrix      *refresh.Matrix

	internalRate decimal.Decimal

	position *model.Position
	snapshot *model.CharacterSnapshot
	charts   []model.Chartum
	depth    *model.Depth

	log *logrus.Entry
}

// NewFacade wires the facade's refresh matrix. chartCache may be nil.
func NewFacade(api domain.MarketAPI, chartCache domain.ChartCache, characterID int, internalRate decimal.Decimal) *Facade {
	f := &Facade{
		api:          api,
		chartCache:   chartCache,
		characterID:  characterID,
		internalRate: internalRate,
		log:          logrus.WithFields(logrus.Fields{"component": "market", "character": characterID}),
	}
	m := refresh.NewMatrix(defaultThrottle,
		tokenMyAsks, tokenMyBids, tokenAmount, tokenUserCharacter,
		tokenCharacter, tokenCharts, tokenAllAsks, tokenAllBids,
	)
	// K线按天刷新即可，发行价不会变
	m.SetInterval(tokenCharts, 24*time.Hour)
	_ = m.Register(f.fetchUserCharacter, tokenMyAsks, tokenMyBids, tokenAmount, tokenUserCharacter)
	_ = m.Register(f.fetchCharacter, tokenCharacter)
	_ = m.Register(f.fetchCharts, tokenCharts)
	_ = m.Register(f.fetchDepth, tokenAllAsks, tokenAllBids)
	f.matrix = m
	return f
}

// CharacterID returns the character this facade is bound to.
func (f *Facade) CharacterID() int {
	return f.characterID
}

func (f *Facade) fetchUserCharacter(ctx context.Context) error {
	pos, err := f.api.UserCharacter(ctx, f.characterID)
	if err != nil {
		return err
	}
	f.position = pos
	return nil
}

func (f *Facade) fetchCharacter(ctx context.Context) error {
	snap, err := f.api.CharacterInfo(ctx, f.characterID)
	if err != nil {
		return err
	}
	f.snapshot = snap
	return nil
}

func (f *Facade) fetchCharts(ctx context.Context) error {
	if f.chartCache != nil {
		charts, ok, err := f.chartCache.Get(ctx, f.characterID)
		if err != nil {
			f.log.Warnf("chart cache read failed: %v", err)
		} else if ok {
			f.charts = charts
			return nil
		}
	}
	charts, err := f.api.Charts(ctx, f.characterID)
	if err != nil {
		return err
	}
	f.charts = charts
	if f.chartCache != nil {
		if err := f.chartCache.Set(ctx, f.characterID, charts); err != nil {
			f.log.Warnf("chart cache write failed: %v", err)
		}
	}
	return nil
}

func (f *Facade) fetchDepth(ctx context.Context) error {
	depth, err := f.api.Depth(ctx, f.characterID)
	if err != nil {
		return err
	}
	f.depth = depth
	return nil
}

// ===========================
// 读访问器 (懒惰节流刷新)
// ===========================

// MyBids 本账号在场买单
func (f *Facade) MyBids(ctx context.Context) ([]model.Order, error) {
	if err := f.matrix.Refresh(ctx, tokenMyBids); err != nil {
		return nil, err
	}
	return f.position.Bids, nil
}

// MyAsks 本账号在场卖单
func (f *Facade) MyAsks(ctx context.Context) ([]model.Order, error) {
	if err := f.matrix.Refresh(ctx, tokenMyAsks); err != nil {
		return nil, err
	}
	return f.position.Asks, nil
}

// Amount 现货持有量 (未挂卖部分)
func (f *Facade) Amount(ctx context.Context) (int, error) {
	if err := f.matrix.Refresh(ctx, tokenAmount); err != nil {
		return 0, err
	}
	return f.position.Amount, nil
}

// MyHolding 总持有 = 现货 + 挂卖中
func (f *Facade) MyHolding(ctx context.Context) (int, error) {
	if err := f.matrix.Refresh(ctx, tokenUserCharacter); err != nil {
		return 0, err
	}
	return f.position.TotalHolding(), nil
}

// CurrentPrice 最新成交价
func (f *Facade) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	if err := f.matrix.Refresh(ctx, tokenCharacter); err != nil {
		return decimal.Zero, err
	}
	return f.snapshot.Current, nil
}

// Rate 股息率
func (f *Facade) Rate(ctx context.Context) (decimal.Decimal, error) {
	if err := f.matrix.Refresh(ctx, tokenCharacter); err != nil {
		return decimal.Zero, err
	}
	return f.snapshot.Rate, nil
}

// GlobalHolding 全球流通量
func (f *Facade) GlobalHolding(ctx context.Context) (int, error) {
	if err := f.matrix.Refresh(ctx, tokenCharacter); err != nil {
		return 0, err
	}
	return f.snapshot.Total, nil
}

// Snapshot 整份行情快照
func (f *Facade) Snapshot(ctx context.Context) (*model.CharacterSnapshot, error) {
	if err := f.matrix.Refresh(ctx, tokenCharacter); err != nil {
		return nil, err
	}
	return f.snapshot, nil
}

// InitialPrice 发行价 = 首日K线开盘价
func (f *Facade) InitialPrice(ctx context.Context) (decimal.Decimal, error) {
	if err := f.matrix.Refresh(ctx, tokenCharts); err != nil {
		return decimal.Zero, err
	}
	if len(f.charts) == 0 {
		return decimal.Zero, fmt.Errorf("character %d has no chart data", f.characterID)
	}
	return f.charts[0].Begin, nil
}

// InitialPriceRounded 发行价取到货币最小单位
func (f *Facade) InitialPriceRounded(ctx context.Context) (decimal.Decimal, error) {
	p, err := f.InitialPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Round(2), nil
}

// Fundamental 基本面价值 = 股息率 / 假定收益率
func (f *Facade) Fundamental(ctx context.Context) (decimal.Decimal, error) {
	rate, err := f.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Div(f.internalRate).Round(2), nil
}

// ExchangePrice 策略目标价 = max(发行价, 基本面价值)，永不低于发行价
func (f *Facade) ExchangePrice(ctx context.Context) (decimal.Decimal, error) {
	initial, err := f.InitialPriceRounded(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	fundamental, err := f.Fundamental(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if initial.GreaterThan(fundamental) {
		return initial, nil
	}
	return fundamental, nil
}

// AllAsks 盘口全部卖单
func (f *Facade) AllAsks(ctx context.Context) ([]model.Order, error) {
	if err := f.matrix.Refresh(ctx, tokenAllAsks); err != nil {
		return nil, err
	}
	return f.depth.Asks, nil
}

// AllBids 盘口全部买单
func (f *Facade) AllBids(ctx context.Context) ([]model.Order, error) {
	if err := f.matrix.Refresh(ctx, tokenAllBids); err != nil {
		return nil, err
	}
	return f.depth.Bids, nil
}

// RefreshPosition 强制重新拉取持仓，用于挂单后立刻验证成交情况
func (f *Facade) RefreshPosition(ctx context.Context) error {
	f.matrix.Invalidate(tokenMyAsks, tokenMyBids, tokenAmount, tokenUserCharacter)
	return f.matrix.Refresh(ctx, tokenUserCharacter)
}

// ===========================
// 写操作 (失效相关缓存)
// ===========================

// CreateBid 挂买单并失效买单/库存相关缓存
func (f *Facade) CreateBid(ctx context.Context, bid model.Order) error {
	f.matrix.Invalidate(tokenMyBids, tokenAllBids, tokenAmount, tokenUserCharacter)
	return f.api.CreateBid(ctx, f.characterID, bid)
}

// CreateAsk 挂卖单并失效卖单/库存相关缓存
func (f *Facade) CreateAsk(ctx context.Context, ask model.Order) error {
	f.matrix.Invalidate(tokenMyAsks, tokenAllAsks, tokenAmount, tokenUserCharacter)
	return f.api.CreateAsk(ctx, f.characterID, ask)
}

// CancelBid 撤买单 (按服务端 ID)
func (f *Facade) CancelBid(ctx context.Context, bid model.Order) error {
	if bid.ID == 0 {
		return fmt.Errorf("cannot cancel bid without server id: %s", bid)
	}
	f.matrix.Invalidate(tokenMyBids, tokenAllBids, tokenAmount, tokenUserCharacter)
	return f.api.CancelBid(ctx, bid.ID)
}

// CancelAsk 撤卖单 (按服务端 ID)
func (f *Facade) CancelAsk(ctx context.Context, ask model.Order) error {
	if ask.ID == 0 {
		return fmt.Errorf("cannot cancel ask without server id: %s", ask)
	}
	f.matrix.Invalidate(tokenMyAsks, tokenAllAsks, tokenAmount, tokenUserCharacter)
	return f.api.CancelAsk(ctx, ask.ID)
}

// EnsureBids 把在场买单收敛到目标集，撤/挂次数最少。
// 对同一目标集重复调用是幂等的：第二次不会发出任何请求。
func (f *Facade) EnsureBids(ctx context.Context, desired []model.Order) error {
	current, err := f.MyBids(ctx)
	if err != nil {
		return err
	}
	return reconcile(ctx, current, desired, sideOps{
		cancel: f.CancelBid,
		create: f.CreateBid,
		log:    f.log.WithField("side", "bid"),
	})
}

// EnsureAsks 同 EnsureBids，但新挂单推迟到全部撤单之后
func (f *Facade) EnsureAsks(ctx context.Context, desired []model.Order) error {
	current, err := f.MyAsks(ctx)
	if err != nil {
		return err
	}
	return reconcile(ctx, current, desired, sideOps{
		cancel:       f.CancelAsk,
		create:       f.CreateAsk,
		deferCreates: true,
		log:          f.log.WithField("side", "ask"),
	})
}
