package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CharacterSnapshot 角色行情快照，整体替换，从不部分更新
type CharacterSnapshot struct {
	CharacterID int
	Name        string
	Level       int

	// Current is the last traded price; Rate is the dividend rate used
	// for fundamental valuation; Price is the exchange's reference price.
	Current decimal.Decimal
	Rate    decimal.Decimal
	Price   decimal.Decimal

	// Total 全球流通量
	Total      int
	Sacrifices int

	LastOrder time.Time
	LastDeal  time.Time
}

// Position 某账号在某角色上的持仓视图
type Position struct {
	// Amount 持有且未挂卖的数量
	Amount int
	Bids   []Order
	Asks   []Order
}

// TotalHolding 总持有 = 现货 + 挂卖中的数量
func (p *Position) TotalHolding() int {
	return p.Amount + SumAmount(p.Asks)
}

// Depth 盘口深度 (全市场买卖单)
type Depth struct {
	Asks []Order
	Bids []Order
}

// HighestBid returns the best bid in the book, or false when the book is empty.
func (d *Depth) HighestBid() (Order, bool) {
	if len(d.Bids) == 0 {
		return Order{}, false
	}
	best := d.Bids[0]
	for _, b := range d.Bids[1:] {
		if best.Price.LessThan(b.Price) {
			best = b
		}
	}
	return best, true
}

// Chartum 单日价格K线
type Chartum struct {
	Time   string
	Begin  decimal.Decimal
	End    decimal.Decimal
	Low    decimal.Decimal
	High   decimal.Decimal
	Amount int
	Price  decimal.Decimal
}

// ScratchBonus 刮刮乐奖励: 获得某角色股份及其建议卖出价
type ScratchBonus struct {
	CharacterID int
	Name        string
	Amount      int
	SellPrice   decimal.Decimal
}

// BalanceHistory 资金流水条目，用于发现最近有变动的角色
type BalanceHistory struct {
	ID          int64
	CharacterID int // 0 when the entry is not tied to a character
}
