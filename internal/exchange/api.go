package exchange

import (
	"context"
	"fmt"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/model"
)

// 典型端点形如 chara/user/{cid}；挂单价格直接编码在 URL 路径里。

// CharacterInfo 拉取角色行情快照
func (c *Client) CharacterInfo(ctx context.Context, characterID int) (*model.CharacterSnapshot, error) {
	var resp rCharacter
	if err := c.getJSON(ctx, fmt.Sprintf("chara/%d", characterID), &resp); err != nil {
		return nil, err
	}
	v := resp.Value
	return &model.CharacterSnapshot{
		CharacterID: v.CharacterID,
		Name:        v.Name,
		Level:       v.Level,
		Current:     v.Current,
		Rate:        v.Rate,
		Price:       v.Price,
		Total:       v.Total,
		Sacrifices:  v.Sacrifices,
		LastOrder:   v.LastOrder.Time,
		LastDeal:    v.LastDeal.Time,
	}, nil
}

// UserCharacter 拉取本账号在该角色上的持仓
func (c *Client) UserCharacter(ctx context.Context, characterID int) (*model.Position, error) {
	var resp rUserCharacter
	if err := c.getJSON(ctx, fmt.Sprintf("chara/user/%d", characterID), &resp); err != nil {
		return nil, err
	}
	return &model.Position{
		Amount: resp.Value.Amount,
		Bids:   toOrders(resp.Value.Bids),
		Asks:   toOrders(resp.Value.Asks),
	}, nil
}

// Depth 拉取盘口深度
func (c *Client) Depth(ctx context.Context, characterID int) (*model.Depth, error) {
	var resp rDepth
	if err := c.getJSON(ctx, fmt.Sprintf("chara/depth/%d", characterID), &resp); err != nil {
		return nil, err
	}
	return &model.Depth{
		Asks: toOrders(resp.Value.Asks),
		Bids: toOrders(resp.Value.Bids),
	}, nil
}

// Charts 拉取自开盘以来的价格K线
func (c *Client) Charts(ctx context.Context, characterID int) ([]model.Chartum, error) {
	var resp rCharts
	if err := c.getJSON(ctx, fmt.Sprintf("chara/charts/%d/2019-08-08", characterID), &resp); err != nil {
		return nil, err
	}
	charts := make([]model.Chartum, 0, len(resp.Value))
	for _, ch := range resp.Value {
		charts = append(charts, model.Chartum{
			Time:   ch.Time,
			Begin:  ch.Begin,
			End:    ch.End,
			Low:    ch.Low,
			High:   ch.High,
			Amount: ch.Amount,
			Price:  ch.Price,
		})
	}
	return charts, nil
}

// CreateBid 挂买单
func (c *Client) CreateBid(ctx context.Context, characterID int, bid model.Order) error {
	url := fmt.Sprintf("chara/bid/%d/%s/%d", characterID, bid.Price.String(), bid.Amount)
	if bid.Visibility == model.OrderHidden {
		url += "/true"
	}
	return c.postJSON(ctx, url, nil, nil)
}

// CreateAsk 挂卖单
func (c *Client) CreateAsk(ctx context.Context, characterID int, ask model.Order) error {
	url := fmt.Sprintf("chara/ask/%d/%s/%d", characterID, ask.Price.String(), ask.Amount)
	if ask.Visibility == model.OrderHidden {
		url += "/true"
	}
	return c.postJSON(ctx, url, nil, nil)
}

// CancelBid 按服务端 ID 撤买单
func (c *Client) CancelBid(ctx context.Context, bidID int64) error {
	return c.postJSON(ctx, fmt.Sprintf("chara/bid/cancel/%d", bidID), nil, nil)
}

// CancelAsk 按服务端 ID 撤卖单
func (c *Client) CancelAsk(ctx context.Context, askID int64) error {
	return c.postJSON(ctx, fmt.Sprintf("chara/ask/cancel/%d", askID), nil, nil)
}

// HoldingCharacterIDs 当前持仓的角色列表
func (c *Client) HoldingCharacterIDs(ctx context.Context) ([]int, error) {
	return c.listCharacterIDs(ctx, "chara/user/chara/0/1/%d")
}

// BiddingCharacterIDs 当前有挂买单的角色列表
func (c *Client) BiddingCharacterIDs(ctx context.Context) ([]int, error) {
	return c.listCharacterIDs(ctx, "chara/bids/0/1/%d")
}

// AskingCharacterIDs 当前有挂卖单的角色列表
func (c *Client) AskingCharacterIDs(ctx context.Context) ([]int, error) {
	return c.listCharacterIDs(ctx, "chara/asks/0/1/%d")
}

// 列表端点先以 page size 1 探长度，再一页取全
func (c *Client) listCharacterIDs(ctx context.Context, pattern string) ([]int, error) {
	var probe rCharacterPage
	if err := c.getJSON(ctx, fmt.Sprintf(pattern, 1), &probe); err != nil {
		return nil, err
	}
	total := probe.Value.TotalItems
	if total == 0 {
		return nil, nil
	}
	var full rCharacterPage
	if err := c.getJSON(ctx, fmt.Sprintf(pattern, total), &full); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(full.Value.Items))
	for _, item := range full.Value.Items {
		id := item.CharacterID
		if id == 0 {
			id = item.ID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

const historyPageSize = 50

// History 返回 sinceID 之后的资金流水，按 ID 降序
func (c *Client) History(ctx context.Context, sinceID int64) ([]model.BalanceHistory, error) {
	var result []model.BalanceHistory
	for page := 1; ; page++ {
		var resp rHistoryPage
		if err := c.getJSON(ctx, fmt.Sprintf("chara/user/balance/%d/%d", page, historyPageSize), &resp); err != nil {
			return nil, err
		}
		items := resp.Value.Items
		if len(items) == 0 {
			return result, nil
		}
		for _, item := range items {
			if item.ID <= sinceID {
				return result, nil
			}
			result = append(result, model.BalanceHistory{ID: item.ID, CharacterID: item.CharacterID})
		}
		if items[len(items)-1].ID <= sinceID {
			return result, nil
		}
	}
}

// LatestHistoryID 只拉最新一条流水，用于启动时对齐游标
func (c *Client) LatestHistoryID(ctx context.Context) (int64, error) {
	var resp rHistoryPage
	if err := c.getJSON(ctx, "chara/user/balance/1/1", &resp); err != nil {
		return 0, err
	}
	if len(resp.Value.Items) == 0 {
		return 0, nil
	}
	return resp.Value.Items[0].ID, nil
}

// ClaimDailyBonus 领取每日登录奖励。已领取时服务端返回业务拒绝。
func (c *Client) ClaimDailyBonus(ctx context.Context) (string, error) {
	var resp rString
	if err := c.getJSON(ctx, "event/bangumi/bonus/daily", &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// ClaimWeeklyShare 领取每周分红
func (c *Client) ClaimWeeklyShare(ctx context.Context) (string, error) {
	var resp rString
	if err := c.getJSON(ctx, "event/share/bonus", &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// ScratchBonus 刮一次免费刮刮乐，返回获得的角色股份
func (c *Client) ScratchBonus(ctx context.Context) ([]model.ScratchBonus, error) {
	return c.scratch(ctx, "event/scratch/bonus2")
}

// ScratchGensokyo 刮一次付费档 (幻想乡)
func (c *Client) ScratchGensokyo(ctx context.Context) ([]model.ScratchBonus, error) {
	return c.scratch(ctx, "event/scratch/bonus2/true")
}

// ScratchGensokyoPrice 付费档当前单价: 2000cc 起，当日每刮一次翻倍
func (c *Client) ScratchGensokyoPrice(ctx context.Context) (int64, error) {
	var resp rInteger
	if err := c.getJSON(ctx, "event/daily/count/10", &resp); err != nil {
		return 0, err
	}
	return 2000 << resp.Value, nil
}

func (c *Client) scratch(ctx context.Context, target string) ([]model.ScratchBonus, error) {
	var resp rScratchList
	if err := c.getJSON(ctx, target, &resp); err != nil {
		return nil, err
	}
	wins := make([]model.ScratchBonus, 0, len(resp.Value))
	for _, sb := range resp.Value {
		cid := sb.CharacterID
		if cid == 0 {
			cid = sb.ID
		}
		wins = append(wins, model.ScratchBonus{
			CharacterID: cid,
			Name:        sb.Name,
			Amount:      sb.Amount,
			SellPrice:   sb.SellPrice,
		})
	}
	return wins, nil
}

var _ domain.ExchangeAPI = (*Client)(nil)
