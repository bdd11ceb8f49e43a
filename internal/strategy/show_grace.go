package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"grailtrade.com/internal/model"
)

// ShowGrace 高价出货：刮刮乐等渠道拿到的股按广告价尝试一次性卖出，
// 卖不完就黄金分割探底，全程把变现所得累计进 EarnedValue。
type ShowGrace struct {
	base
	params model.ShowGraceParams
}

func newShowGrace(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	s := &ShowGrace{base: newBase(m, cfg)}
	if len(params) == 0 {
		return nil, errors.New("show_grace requires sell_price")
	}
	if err := json.Unmarshal(params, &s.params); err != nil {
		return nil, fmt.Errorf("bad show_grace params: %w", err)
	}
	if !s.params.SellPrice.IsPositive() {
		return nil, errors.New("show_grace requires a positive sell_price")
	}
	return s, nil
}

func (s *ShowGrace) Kind() model.StrategyKind { return model.KindShowGrace }

func (s *ShowGrace) Params() (json.RawMessage, error) {
	return json.Marshal(s.params)
}

func (s *ShowGrace) Transition(ctx context.Context) (Strategy, error) {
	if err := s.market.RefreshPosition(ctx); err != nil {
		return nil, err
	}
	amount, err := s.market.Amount(ctx)
	if err != nil {
		return nil, err
	}
	asks, err := s.market.MyAsks(ctx)
	if err != nil {
		return nil, err
	}
	initial, err := s.market.InitialPriceRounded(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("grace | sell_price=%s amount=%d", s.params.SellPrice.StringFixed(2), amount)

	// 已有挂卖、或广告价低于发行价: 不折腾，按基本面估值入账后常规做市
	if len(asks) > 0 || s.params.SellPrice.LessThan(initial) {
		fundamental, err := s.market.Fundamental(ctx)
		if err != nil {
			return nil, err
		}
		s.earn(fundamental.Mul(decimal.NewFromInt(int64(amount))))
		return s.transact(model.KindBalance, nil)
	}

	if amount > 0 {
		if err := s.market.CreateAsk(ctx, model.NewOrder(s.params.SellPrice, amount)); err != nil {
			return nil, err
		}
	}
	if err := s.market.RefreshPosition(ctx); err != nil {
		return nil, err
	}
	asks, err = s.market.MyAsks(ctx)
	if err != nil {
		return nil, err
	}
	if len(asks) == 0 {
		// 广告价全部成交
		s.earn(s.params.SellPrice.Mul(decimal.NewFromInt(int64(amount))))
		return s.transact(model.KindIgnore, nil)
	}

	amount, err = s.market.Amount(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.fastSeller(ctx, amount, initial, s.params.SellPrice); err != nil {
		return nil, err
	}
	if err := s.market.RefreshPosition(ctx); err != nil {
		return nil, err
	}
	holding, err := s.market.MyHolding(ctx)
	if err != nil {
		return nil, err
	}
	if holding > 0 {
		fundamental, err := s.market.Fundamental(ctx)
		if err != nil {
			return nil, err
		}
		s.earn(fundamental.Mul(decimal.NewFromInt(int64(holding))))
		return s.transact(model.KindBalance, nil)
	}
	return s.transact(model.KindIgnore, nil)
}

func (s *ShowGrace) earn(value decimal.Decimal) {
	s.params.EarnedValue = s.params.EarnedValue.Add(value)
	s.log.Infof("grace earned | +%s total=%s", value.StringFixed(2), s.params.EarnedValue.StringFixed(2))
}

func (s *ShowGrace) Output(ctx context.Context) error {
	return nil
}
