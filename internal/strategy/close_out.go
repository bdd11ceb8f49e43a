package strategy

import (
	"context"
	"encoding/json"

	"grailtrade.com/internal/model"
)

// CloseOut 清仓：全部持有挂卖在交易价，不挂买单。
// 过渡状态，跑一轮就交给 Balance (或清空后回 Ignore)。
type CloseOut struct {
	base
}

func newCloseOut(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	return &CloseOut{base: newBase(m, cfg)}, nil
}

func (s *CloseOut) Kind() model.StrategyKind { return model.KindCloseOut }

func (s *CloseOut) Params() (json.RawMessage, error) { return nil, nil }

func (s *CloseOut) Transition(ctx context.Context) (Strategy, error) {
	if err := s.market.RefreshPosition(ctx); err != nil {
		return nil, err
	}
	holding, err := s.market.MyHolding(ctx)
	if err != nil {
		return nil, err
	}
	if holding == 0 {
		return s.transact(model.KindIgnore, nil)
	}
	return s.transact(model.KindBalance, nil)
}

func (s *CloseOut) Output(ctx context.Context) error {
	exchangePrice, err := s.market.ExchangePrice(ctx)
	if err != nil {
		return err
	}
	holding, err := s.market.MyHolding(ctx)
	if err != nil {
		return err
	}
	var asks []model.Order
	if holding > 0 {
		asks = []model.Order{model.NewOrder(exchangePrice, holding)}
	}
	if err := s.market.EnsureAsks(ctx, asks); err != nil {
		return err
	}
	return s.market.EnsureBids(ctx, nil)
}
