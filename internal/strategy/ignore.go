package strategy

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"grailtrade.com/internal/model"
)

var forcedViewPrice = decimal.NewFromInt(2)

const forcedViewAmount = 2

// Ignore 默认状态：这只角色不做市，清掉所有自己的挂单。
// 一旦出现持仓 (或被 "强制围观" 买单点名) 就切换到对应策略。
type Ignore struct {
	base
}

func newIgnore(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	return &Ignore{base: newBase(m, cfg)}, nil
}

func (s *Ignore) Kind() model.StrategyKind { return model.KindIgnore }

func (s *Ignore) Params() (json.RawMessage, error) { return nil, nil }

func (s *Ignore) Transition(ctx context.Context) (Strategy, error) {
	holding, err := s.market.MyHolding(ctx)
	if err != nil {
		return nil, err
	}
	if holding > 0 {
		price, err := s.market.CurrentPrice(ctx)
		if err != nil {
			return nil, err
		}
		exchangePrice, err := s.market.ExchangePrice(ctx)
		if err != nil {
			return nil, err
		}
		if price.LessThanOrEqual(exchangePrice) {
			return s.transact(model.KindBalance, nil)
		}
		return s.transact(model.KindCloseOut, nil)
	}

	forced, err := s.detectForcedView(ctx)
	if err != nil {
		return nil, err
	}
	if forced {
		s.log.Info("forced view")
		exchangePrice, err := s.market.ExchangePrice(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.fastForward(ctx, exchangePrice); err != nil {
			return nil, err
		}
		if err := s.outputBalanced(ctx); err != nil {
			return nil, err
		}
		return s.transact(model.KindBalance, nil)
	}
	return s, nil
}

// 外部玩家挂出 2.00 x2 的买单是 "来围观我" 的暗号
func (s *Ignore) detectForcedView(ctx context.Context) (bool, error) {
	bids, err := s.market.MyBids(ctx)
	if err != nil {
		return false, err
	}
	for _, bid := range bids {
		if bid.Price.Equal(forcedViewPrice) && bid.Amount == forcedViewAmount {
			return true, nil
		}
	}
	return false, nil
}

func (s *Ignore) Output(ctx context.Context) error {
	if err := s.market.EnsureAsks(ctx, nil); err != nil {
		return err
	}
	return s.market.EnsureBids(ctx, nil)
}
