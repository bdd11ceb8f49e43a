package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"grailtrade.com/internal/model"
)

// Balance 双边做市：全部持有挂卖在交易价，同价保持一笔常驻补货买单
type Balance struct {
	base
	params model.BalanceParams
}

func newBalance(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	s := &Balance{base: newBase(m, cfg)}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &s.params); err != nil {
			return nil, fmt.Errorf("bad balance params: %w", err)
		}
	}
	if s.params.BidAmount > 0 {
		s.cfg.BidAmount = s.params.BidAmount
	}
	return s, nil
}

func (s *Balance) Kind() model.StrategyKind { return model.KindBalance }

func (s *Balance) Params() (json.RawMessage, error) {
	if s.params == (model.BalanceParams{}) {
		return nil, nil
	}
	return json.Marshal(s.params)
}

func (s *Balance) Transition(ctx context.Context) (Strategy, error) {
	holding, err := s.market.MyHolding(ctx)
	if err != nil {
		return nil, err
	}
	if holding == 0 {
		s.log.Info("forget it")
		return s.transact(model.KindIgnore, nil)
	}
	amount, err := s.market.Amount(ctx)
	if err != nil {
		return nil, err
	}
	if amount > 0 {
		s.log.Info("there is some part not selling")
		bids, err := s.market.MyBids(ctx)
		if err != nil {
			return nil, err
		}
		if len(bids) == 0 {
			s.log.Info("and bids ran out")
			exchangePrice, err := s.market.ExchangePrice(ctx)
			if err != nil {
				return nil, err
			}
			if err := s.fastForward(ctx, exchangePrice); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Balance) Output(ctx context.Context) error {
	return s.outputBalanced(ctx)
}
