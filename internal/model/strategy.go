package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StrategyKind defines the supported per-character trading policies.
// 编号与历史数据保持一致，不要改动已有值。
type StrategyKind int

const (
	KindNone        StrategyKind = 0
	KindIgnore      StrategyKind = 1
	KindCloseOut    StrategyKind = 2
	KindBalance     StrategyKind = 3
	KindSelfService StrategyKind = 4
	KindBuyIn       StrategyKind = 5
	KindShowGrace   StrategyKind = 6
)

func (k StrategyKind) String() string {
	switch k {
	case KindIgnore:
		return "ignore"
	case KindCloseOut:
		return "close_out"
	case KindBalance:
		return "balance"
	case KindSelfService:
		return "self_service"
	case KindBuyIn:
		return "buy_in"
	case KindShowGrace:
		return "show_grace"
	default:
		return "none"
	}
}

// CharacterStrategy 每个 (账号, 角色) 至多一条在库策略记录
type CharacterStrategy struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CharacterID int    `gorm:"uniqueIndex:idx_account_character;not null" json:"character_id"`
	AccountName string `gorm:"uniqueIndex:idx_account_character;size:64;not null" json:"account_name"`

	Kind StrategyKind `gorm:"not null" json:"kind"`

	// Params 按 Kind 解释的参数对象 (例如 ShowGrace: {"sell_price": "12.50"})
	Params json.RawMessage `gorm:"type:jsonb" json:"params"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceParams Balance 策略参数
type BalanceParams struct {
	// BidAmount 常驻补货买单数量，0 表示默认值
	BidAmount int `json:"bid_amount,omitempty"`
}

// BuyInParams BuyIn 策略参数
type BuyInParams struct {
	BidAmount int `json:"bid_amount,omitempty"`
}

// ShowGraceParams ShowGrace 策略参数
type ShowGraceParams struct {
	SellPrice   decimal.Decimal `json:"sell_price"`
	EarnedValue decimal.Decimal `json:"earned_value,omitempty"`
}
