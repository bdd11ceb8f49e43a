package daemon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/trader"
)

const (
	msgDailyBonusClaimed  = "今日已经领取过登录奖励。"
	msgWeeklyShareClaimed = "您已经领取过本周奖励。"
)

var ccAmountRe = regexp.MustCompile(`([\d.]+)cc`)

// TraderDaemon 按轮驱动做市:
//   - 紧急集合: 流水里刚出现变动、或持仓/挂买不一致的角色，每轮必处理
//   - 慢速集合: 其余在挂买的角色，每轮随机抽几个，摊平请求压力
//
// 单个角色出错不影响本轮其他角色，错误统一交给熔断器计数。
type TraderDaemon struct {
	api     domain.ExchangeAPI
	trader  *trader.Trader
	syncer  domain.FavoritesSyncer
	breaker *Breaker

	sampleSize    int
	lastHistoryID int64
	urgent        map[int]struct{}
	slow          map[int]struct{}

	now func() time.Time
	log *logrus.Entry
}

func NewTraderDaemon(api domain.ExchangeAPI, tr *trader.Trader, syncer domain.FavoritesSyncer, breaker *Breaker, sampleSize int) *TraderDaemon {
	return &TraderDaemon{
		api:        api,
		trader:     tr,
		syncer:     syncer,
		breaker:    breaker,
		sampleSize: sampleSize,
		urgent:     make(map[int]struct{}),
		slow:       make(map[int]struct{}),
		now:        time.Now,
		log:        logrus.WithField("component", "daemon"),
	}
}

var _ Runner = (*TraderDaemon)(nil)

func (d *TraderDaemon) Start(ctx context.Context) error {
	if err := d.trader.Restore(ctx); err != nil {
		return err
	}
	// 库里有策略的角色第一轮就得处理
	for _, cid := range d.trader.KnownCharacters() {
		d.urgent[cid] = struct{}{}
	}
	// 启动只对齐游标，历史里的旧变动不算紧急
	id, err := d.api.LatestHistoryID(ctx)
	if err != nil {
		return err
	}
	d.lastHistoryID = id
	return nil
}

// updateFromHistory 把新流水涉及的角色标记为紧急
func (d *TraderDaemon) updateFromHistory(ctx context.Context) error {
	histories, err := d.api.History(ctx, d.lastHistoryID)
	if err != nil {
		return err
	}
	if len(histories) == 0 {
		return nil
	}
	for _, h := range histories {
		if h.CharacterID != 0 {
			d.urgent[h.CharacterID] = struct{}{}
		}
	}
	d.lastHistoryID = histories[0].ID
	return nil
}

// pickCharacters 本轮要处理的角色: 全部紧急 + 慢速抽样
func (d *TraderDaemon) pickCharacters() []int {
	picked := make(map[int]struct{}, len(d.urgent)+d.sampleSize)
	for cid := range d.urgent {
		picked[cid] = struct{}{}
	}

	slow := make([]int, 0, len(d.slow))
	for cid := range d.slow {
		slow = append(slow, cid)
	}
	if len(slow) > d.sampleSize {
		rand.Shuffle(len(slow), func(i, j int) { slow[i], slow[j] = slow[j], slow[i] })
		slow = slow[:d.sampleSize]
	}
	for _, cid := range slow {
		picked[cid] = struct{}{}
	}

	out := make([]int, 0, len(picked))
	for cid := range picked {
		out = append(out, cid)
	}
	sort.Ints(out)
	return out
}

func (d *TraderDaemon) Tick(ctx context.Context) error {
	if err := d.breaker.Guard("history", d.updateFromHistory(ctx)); err != nil {
		return err
	}
	for _, cid := range d.pickCharacters() {
		d.log.Infof("on %d", cid)
		if err := d.breaker.Guard(fmt.Sprintf("character %d", cid), d.tickOne(ctx, cid)); err != nil {
			return err
		}
	}
	return d.syncer.Sync(ctx)
}

func (d *TraderDaemon) tickOne(ctx context.Context, cid int) error {
	if err := d.trader.Tick(ctx, cid); err != nil {
		return err
	}
	delete(d.urgent, cid)
	delete(d.slow, cid)
	return nil
}

// Hourly 全量扫一遍持仓和挂买，校准两个集合
func (d *TraderDaemon) Hourly(ctx context.Context) error {
	bidding, err := d.api.BiddingCharacterIDs(ctx)
	if err != nil {
		return err
	}
	holding, err := d.api.HoldingCharacterIDs(ctx)
	if err != nil {
		return err
	}

	biddingSet := make(map[int]struct{}, len(bidding))
	for _, cid := range bidding {
		biddingSet[cid] = struct{}{}
		d.slow[cid] = struct{}{}
	}
	holdingSet := make(map[int]struct{}, len(holding))
	for _, cid := range holding {
		holdingSet[cid] = struct{}{}
	}

	// 持仓没挂买: 补货买单磨完了；挂买没持仓: 含强制围观
	for _, cid := range holding {
		if _, ok := biddingSet[cid]; !ok {
			d.urgent[cid] = struct{}{}
		}
	}
	for _, cid := range bidding {
		if _, ok := holdingSet[cid]; !ok {
			d.urgent[cid] = struct{}{}
		}
	}
	return nil
}

// Daily 领每日奖励、周六领分红，然后把刮刮乐刮到头，
// 刮出来的股交给 ShowGrace 按建议价出掉
func (d *TraderDaemon) Daily(ctx context.Context) error {
	if err := d.claimDailyBonus(ctx); err != nil {
		return err
	}
	if d.now().Weekday() == time.Saturday {
		if err := d.claimWeeklyShare(ctx); err != nil {
			return err
		}
	}
	if err := d.scratch(ctx); err != nil {
		return err
	}
	return d.scratchGensokyo(ctx)
}

func (d *TraderDaemon) claimDailyBonus(ctx context.Context) error {
	s, err := d.api.ClaimDailyBonus(ctx)
	if domain.IsRejectedWith(err, msgDailyBonusClaimed) {
		d.log.Debug("daily bonus   | already got")
		return nil
	}
	if err != nil {
		return err
	}
	if m := ccAmountRe.FindStringSubmatch(s); m != nil {
		d.log.Infof("daily bonus   | got %s cc", m[1])
	}
	return nil
}

func (d *TraderDaemon) claimWeeklyShare(ctx context.Context) error {
	s, err := d.api.ClaimWeeklyShare(ctx)
	if domain.IsRejectedWith(err, msgWeeklyShareClaimed) {
		d.log.Debug("weekly share  | already got")
		return nil
	}
	if err != nil {
		return err
	}
	if m := ccAmountRe.FindStringSubmatch(s); m != nil {
		d.log.Infof("weekly share  | got %s cc", m[1])
	}
	return nil
}

func (d *TraderDaemon) scratch(ctx context.Context) error {
	for {
		bonuses, err := d.api.ScratchBonus(ctx)
		if err != nil {
			var rejected *domain.ServerRejectedError
			if errors.As(err, &rejected) {
				d.log.Debug("scratch bonus | over")
				return nil
			}
			return err
		}
		if len(bonuses) == 0 {
			d.log.Debug("scratch bonus | over")
			return nil
		}
		for _, sb := range bonuses {
			d.log.Debugf("scratch bonus | got #%-5d amount=%d sell_price=%s", sb.CharacterID, sb.Amount, sb.SellPrice.StringFixed(2))
			name := fmt.Sprintf("grace character %d", sb.CharacterID)
			if err := d.breaker.Guard(name, d.trader.GraceTick(ctx, sb.CharacterID, sb.SellPrice)); err != nil {
				return err
			}
		}
	}
}

// 付费档每份平均能开出约 4000cc 的股，单价不高于这个期望值就值得继续刮
const gensokyoExpectedValue = 4000

func (d *TraderDaemon) scratchGensokyo(ctx context.Context) error {
	price, err := d.api.ScratchGensokyoPrice(ctx)
	if err != nil {
		return err
	}
	for price <= gensokyoExpectedValue {
		bonuses, err := d.api.ScratchGensokyo(ctx)
		if err != nil {
			var rejected *domain.ServerRejectedError
			if errors.As(err, &rejected) {
				d.log.Debug("scratch gensokyo | over")
				return nil
			}
			return err
		}
		for _, sb := range bonuses {
			d.log.Debugf("scratch gensokyo | got #%-5d amount=%d sell_price=%s", sb.CharacterID, sb.Amount, sb.SellPrice.StringFixed(2))
			name := fmt.Sprintf("grace character %d", sb.CharacterID)
			if err := d.breaker.Guard(name, d.trader.GraceTick(ctx, sb.CharacterID, sb.SellPrice)); err != nil {
				return err
			}
		}
		price, err = d.api.ScratchGensokyoPrice(ctx)
		if err != nil {
			return err
		}
	}
	d.log.Debugf("scratch gensokyo | %dcc per draw, too expensive", price)
	return nil
}

func (d *TraderDaemon) Finalize(ctx context.Context) error {
	return nil
}
