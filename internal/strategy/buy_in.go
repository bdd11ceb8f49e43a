package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"grailtrade.com/internal/model"
)

// BuyIn 建仓：只挂常驻买单不挂卖单。终态，需要人工退出。
type BuyIn struct {
	base
	params model.BuyInParams
}

func newBuyIn(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	s := &BuyIn{base: newBase(m, cfg)}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &s.params); err != nil {
			return nil, fmt.Errorf("bad buy_in params: %w", err)
		}
	}
	if s.params.BidAmount > 0 {
		s.cfg.BidAmount = s.params.BidAmount
	}
	return s, nil
}

func (s *BuyIn) Kind() model.StrategyKind { return model.KindBuyIn }

func (s *BuyIn) Params() (json.RawMessage, error) {
	if s.params == (model.BuyInParams{}) {
		return nil, nil
	}
	return json.Marshal(s.params)
}

func (s *BuyIn) Transition(ctx context.Context) (Strategy, error) {
	return s, nil
}

func (s *BuyIn) Output(ctx context.Context) error {
	if err := s.market.EnsureAsks(ctx, nil); err != nil {
		return err
	}
	exchangePrice, err := s.market.ExchangePrice(ctx)
	if err != nil {
		return err
	}
	return s.market.EnsureBids(ctx, []model.Order{model.NewOrder(exchangePrice, s.cfg.BidAmount)})
}
