package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"grailtrade.com/internal/model"
)

// Market 是策略眼中的单角色市场视图 (由 market.Facade 实现)。
// 所有读访问器自带节流刷新；Ensure* 做最小化撤/挂收敛。
type Market interface {
	CharacterID() int
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
	InitialPriceRounded(ctx context.Context) (decimal.Decimal, error)
	Fundamental(ctx context.Context) (decimal.Decimal, error)
	ExchangePrice(ctx context.Context) (decimal.Decimal, error)
	Amount(ctx context.Context) (int, error)
	MyHolding(ctx context.Context) (int, error)
	MyBids(ctx context.Context) ([]model.Order, error)
	MyAsks(ctx context.Context) ([]model.Order, error)
	EnsureBids(ctx context.Context, desired []model.Order) error
	EnsureAsks(ctx context.Context, desired []model.Order) error
	CreateAsk(ctx context.Context, ask model.Order) error
	RefreshPosition(ctx context.Context) error
}

// Strategy 单角色交易策略状态。
// Transition 纯决策，返回下一状态 (可能是自身)；Output 发出目标订单集。
type Strategy interface {
	Kind() model.StrategyKind
	// Params 返回需要持久化的参数对象，无参数时为 nil
	Params() (json.RawMessage, error)
	Transition(ctx context.Context) (Strategy, error)
	Output(ctx context.Context) error
}

// Settings 策略共用的交易参数
type Settings struct {
	// BidAmount 常驻补货买单数量
	BidAmount int
	// FastForwardMaxAmount 递增探测的数量上限，防止病态情况下无限翻倍
	FastForwardMaxAmount int
	// FastSeller 默认探测区间
	FastSellerLow  decimal.Decimal
	FastSellerHigh decimal.Decimal
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		BidAmount:            100,
		FastForwardMaxAmount: 100 << 10,
		FastSellerLow:        decimal.NewFromInt(10),
		FastSellerHigh:       decimal.NewFromInt(100000),
	}
}

// Factory 按 Kind 构建策略实例并校验参数
type Factory func(m Market, cfg Settings, params json.RawMessage) (Strategy, error)

// 显式的 Kind → 构造函数表，不做任何隐式注册
var factories = map[model.StrategyKind]Factory{
	model.KindIgnore:      newIgnore,
	model.KindBalance:     newBalance,
	model.KindCloseOut:    newCloseOut,
	model.KindBuyIn:       newBuyIn,
	model.KindSelfService: newSelfService,
	model.KindShowGrace:   newShowGrace,
}

// New builds a strategy of the given kind, validating params against it.
func New(kind model.StrategyKind, m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown strategy kind %d", kind)
	}
	return factory(m, cfg, params)
}
