package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/market"
	"grailtrade.com/internal/model"
	"grailtrade.com/internal/strategy"
)

var _ strategy.Market = (*market.Facade)(nil)

// Trader 按角色驱动策略状态机，状态透写到存储。
// 内存里只留活跃角色的策略实例，重启后从库里恢复。
type Trader struct {
	accountName string
	store       domain.StrategyStore
	facades     *market.FacadeCache
	settings    strategy.Settings
	strategies  map[int]strategy.Strategy
	log         *logrus.Entry
}

func New(accountName string, store domain.StrategyStore, facades *market.FacadeCache, settings strategy.Settings) *Trader {
	return &Trader{
		accountName: accountName,
		store:       store,
		facades:     facades,
		settings:    settings,
		strategies:  make(map[int]strategy.Strategy),
		log:         logrus.WithFields(logrus.Fields{"component": "trader", "account": accountName}),
	}
}

// Restore 预载入库里全部在册策略 (启动时调用一次)
func (t *Trader) Restore(ctx context.Context) error {
	rows, err := t.store.Load(ctx, t.accountName)
	if err != nil {
		return err
	}
	for cid, row := range rows {
		s, err := strategy.New(row.Kind, t.facades.Get(cid), t.settings, row.Params)
		if err != nil {
			t.log.Warnf("skip stored strategy for character %d: %v", cid, err)
			continue
		}
		t.strategies[cid] = s
	}
	t.log.Infof("restored %d strategies", len(t.strategies))
	return nil
}

// KnownCharacters 返回内存里有策略实例的角色
func (t *Trader) KnownCharacters() []int {
	cids := make([]int, 0, len(t.strategies))
	for cid := range t.strategies {
		cids = append(cids, cid)
	}
	return cids
}

// current 取该角色的策略，内存没有就查库，库里也没有就默认 Ignore 入库
func (t *Trader) current(ctx context.Context, cid int) (strategy.Strategy, error) {
	if s, ok := t.strategies[cid]; ok {
		return s, nil
	}
	row, err := t.store.Get(ctx, cid, t.accountName)
	switch {
	case err == nil:
		s, err := strategy.New(row.Kind, t.facades.Get(cid), t.settings, row.Params)
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", cid, err)
		}
		t.strategies[cid] = s
		return s, nil
	case errors.Is(err, domain.ErrNotFound):
		s, err := strategy.New(model.KindIgnore, t.facades.Get(cid), t.settings, nil)
		if err != nil {
			return nil, err
		}
		if err := t.persist(ctx, cid, s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, err
	}
}

func (t *Trader) persist(ctx context.Context, cid int, s strategy.Strategy) error {
	params, err := s.Params()
	if err != nil {
		return fmt.Errorf("character %d params: %w", cid, err)
	}
	if err := t.store.Upsert(ctx, cid, t.accountName, s.Kind(), params); err != nil {
		return err
	}
	t.strategies[cid] = s
	return nil
}

func (t *Trader) forget(ctx context.Context, cid int) error {
	delete(t.strategies, cid)
	return t.store.Delete(ctx, cid, t.accountName)
}

// Tick 推进一个角色: 状态转移 → 落库 → 输出订单。
// 稳定停在 Ignore 的角色从库里清掉，避免表无限膨胀。
func (t *Trader) Tick(ctx context.Context, cid int) error {
	now, err := t.current(ctx, cid)
	if err != nil {
		return err
	}
	next, err := now.Transition(ctx)
	if err != nil {
		return fmt.Errorf("character %d transition: %w", cid, err)
	}
	switch {
	case next == now:
		if next.Kind() == model.KindIgnore {
			if err := t.forget(ctx, cid); err != nil {
				return err
			}
		}
	case next.Kind() != now.Kind():
		t.log.Warnf("transaction #%d! from `%s' to `%s'", cid, now.Kind(), next.Kind())
		if err := t.persist(ctx, cid, next); err != nil {
			return err
		}
	default:
		if err := t.persist(ctx, cid, next); err != nil {
			return err
		}
	}
	if err := next.Output(ctx); err != nil {
		return fmt.Errorf("character %d output: %w", cid, err)
	}
	return nil
}

// GraceTick 用刮刮乐给出的建议卖价把角色接入 ShowGrace，随即推进一轮。
// 只接手没人管的角色 (不在册或 Ignore)，已应用策略的角色保持原样。
func (t *Trader) GraceTick(ctx context.Context, cid int, sellPrice decimal.Decimal) error {
	now, err := t.current(ctx, cid)
	if err != nil {
		return err
	}
	if now.Kind() != model.KindIgnore {
		t.log.Infof("character %d already runs `%s', keep it", cid, now.Kind())
		return nil
	}
	params, err := json.Marshal(model.ShowGraceParams{SellPrice: sellPrice})
	if err != nil {
		return err
	}
	s, err := strategy.New(model.KindShowGrace, t.facades.Get(cid), t.settings, params)
	if err != nil {
		return fmt.Errorf("character %d: %w", cid, err)
	}
	if err := t.persist(ctx, cid, s); err != nil {
		return err
	}
	return t.Tick(ctx, cid)
}
