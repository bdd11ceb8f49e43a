package exchange

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"grailtrade.com/internal/model"
)

// 交易所的 JSON 字段为 PascalCase；时间为不带时区的本地时间串。

var errMissingValue = errors.New("missing Value field")

type apiTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

type tOrder struct {
	ID     int64           `json:"Id"`
	Price  decimal.Decimal `json:"Price"`
	Amount int             `json:"Amount"`
	Type   int             `json:"Type"`
}

func (o tOrder) toModel() model.Order {
	return model.Order{
		ID:         o.ID,
		Price:      o.Price,
		Amount:     o.Amount,
		Visibility: model.OrderVisibility(o.Type),
	}
}

func toOrders(wire []tOrder) []model.Order {
	orders := make([]model.Order, 0, len(wire))
	for _, o := range wire {
		orders = append(orders, o.toModel())
	}
	return orders
}

type tUserCharacter struct {
	Bids   []tOrder `json:"Bids"`
	Asks   []tOrder `json:"Asks"`
	Amount int      `json:"Amount"`
}

type rUserCharacter struct {
	Value *tUserCharacter `json:"Value"`
}

func (r *rUserCharacter) validate() error {
	if r.Value == nil {
		return errMissingValue
	}
	return nil
}

type tCharacter struct {
	ID          int             `json:"Id"`
	CharacterID int             `json:"CharacterId"`
	Name        string          `json:"Name"`
	Level       int             `json:"Level"`
	Price       decimal.Decimal `json:"Price"`
	Current     decimal.Decimal `json:"Current"`
	Rate        decimal.Decimal `json:"Rate"`
	Total       int             `json:"Total"`
	Sacrifices  int             `json:"Sacrifices"`
	LastOrder   apiTime         `json:"LastOrder"`
	LastDeal    apiTime         `json:"LastDeal"`
}

type rCharacter struct {
	Value *tCharacter `json:"Value"`
}

func (r *rCharacter) validate() error {
	if r.Value == nil {
		return errMissingValue
	}
	return nil
}

type tDepth struct {
	Asks []tOrder `json:"Asks"`
	Bids []tOrder `json:"Bids"`
}

type rDepth struct {
	Value *tDepth `json:"Value"`
}

func (r *rDepth) validate() error {
	if r.Value == nil {
		return errMissingValue
	}
	return nil
}

type tChartum struct {
	Time   string          `json:"Time"`
	Begin  decimal.Decimal `json:"Begin"`
	End    decimal.Decimal `json:"End"`
	Low    decimal.Decimal `json:"Low"`
	High   decimal.Decimal `json:"High"`
	Amount int             `json:"Amount"`
	Price  decimal.Decimal `json:"Price"`
}

type rCharts struct {
	Value []tChartum `json:"Value"`
}

// 列表端点 (持仓/挂单) 的分页信封
type tListedCharacter struct {
	ID          int    `json:"Id"`
	CharacterID int    `json:"CharacterId"`
	Name        string `json:"Name"`
	State       int    `json:"State"`
}

type tCharacterPage struct {
	TotalItems int                `json:"TotalItems"`
	Items      []tListedCharacter `json:"Items"`
}

type rCharacterPage struct {
	Value *tCharacterPage `json:"Value"`
}

func (r *rCharacterPage) validate() error {
	if r.Value == nil {
		return errMissingValue
	}
	return nil
}

type tHistoryItem struct {
	ID          int64 `json:"Id"`
	CharacterID int   `json:"CharacterId"`
}

type tHistoryPage struct {
	TotalItems int            `json:"TotalItems"`
	Items      []tHistoryItem `json:"Items"`
}

type rHistoryPage struct {
	Value *tHistoryPage `json:"Value"`
}

func (r *rHistoryPage) validate() error {
	if r.Value == nil {
		return errMissingValue
	}
	return nil
}

type rString struct {
	Value string `json:"Value"`
}

type tScratchBonus struct {
	ID          int             `json:"Id"`
	CharacterID int             `json:"CharacterId"`
	Name        string          `json:"Name"`
	Amount      int             `json:"Amount"`
	SellPrice   decimal.Decimal `json:"SellPrice"`
}

type rScratchList struct {
	Value []tScratchBonus `json:"Value"`
}

type rInteger struct {
	Value int64 `json:"Value"`
}
