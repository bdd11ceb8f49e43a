package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/model"
)

var (
	goldenHigh = decimal.NewFromFloat(0.618)
	goldenLow  = decimal.NewFromFloat(0.382)
)

type base struct {
	market Market
	cfg    Settings
	log    *logrus.Entry
}

func newBase(m Market, cfg Settings) base {
	return base{
		market: m,
		cfg:    cfg,
		log:    logrus.WithFields(logrus.Fields{"component": "strategy", "character": m.CharacterID()}),
	}
}

// fastForward 递增探测挂买单。
// 服务端会静默拒绝数量低于某个未公开阈值的买单，
// 从 BidAmount 起翻倍直到买单真的挂上去，再归一回标准数量。
func (b *base) fastForward(ctx context.Context, price decimal.Decimal) error {
	b.log.Debugf("fast forward | %s", price.StringFixed(2))
	if err := b.market.EnsureBids(ctx, nil); err != nil {
		return err
	}
	amount := b.cfg.BidAmount
	for {
		if err := b.market.RefreshPosition(ctx); err != nil {
			return err
		}
		bids, err := b.market.MyBids(ctx)
		if err != nil {
			return err
		}
		if len(bids) > 0 {
			break
		}
		if amount > b.cfg.FastForwardMaxAmount {
			return fmt.Errorf("fast forward exceeded %d without a live bid", b.cfg.FastForwardMaxAmount)
		}
		if err := b.market.EnsureBids(ctx, []model.Order{model.NewOrder(price, amount)}); err != nil {
			return err
		}
		amount *= 2
	}
	return b.market.EnsureBids(ctx, []model.Order{model.NewOrder(price, b.cfg.BidAmount)})
}

// fastSeller 黄金分割探测市场立刻愿意吃进的最高价，不读盘口。
// 挂一股在 pin 价：没被吃掉说明市场不出这个价 (high 收缩)，
// 被吃掉说明还能更高 (low 抬升)。收敛到货币最小单位后，
// 余量一笔挂在 low。
func (b *base) fastSeller(ctx context.Context, amount int, low, high decimal.Decimal) error {
	b.log.Debugf("fast seller | (%s-%s) / %d", low.StringFixed(2), high.StringFixed(2), amount)
	if err := b.market.EnsureBids(ctx, nil); err != nil {
		return err
	}
	if err := b.market.EnsureAsks(ctx, nil); err != nil {
		return err
	}
	for amount > 0 {
		pin := goldenHigh.Mul(high).Add(goldenLow.Mul(low)).Round(2)
		if pin.Equal(high) || pin.Equal(low) {
			break
		}
		if err := b.market.EnsureAsks(ctx, []model.Order{model.NewOrder(pin, 1)}); err != nil {
			return err
		}
		if err := b.market.RefreshPosition(ctx); err != nil {
			return err
		}
		asks, err := b.market.MyAsks(ctx)
		if err != nil {
			return err
		}
		if len(asks) > 0 {
			// 市场不出 pin 价
			if err := b.market.EnsureAsks(ctx, nil); err != nil {
				return err
			}
			high = pin
		} else {
			low = pin
			amount--
		}
	}
	if amount > 0 {
		return b.market.EnsureAsks(ctx, []model.Order{model.NewOrder(low, amount)})
	}
	return nil
}

// outputBalanced 双边做市输出: 全部持有挂卖在交易价，同价挂一笔常驻买单
func (b *base) outputBalanced(ctx context.Context) error {
	price, err := b.market.ExchangePrice(ctx)
	if err != nil {
		return err
	}
	if err := b.market.RefreshPosition(ctx); err != nil {
		return err
	}
	holding, err := b.market.MyHolding(ctx)
	if err != nil {
		return err
	}
	if holding > 0 {
		if err := b.market.EnsureAsks(ctx, []model.Order{model.NewOrder(price, holding)}); err != nil {
			return err
		}
	}
	return b.market.EnsureBids(ctx, []model.Order{model.NewOrder(price, b.cfg.BidAmount)})
}

func (b *base) transact(kind model.StrategyKind, params interface{}) (Strategy, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return New(kind, b.market, b.cfg, raw)
}
