package model

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// OrderVisibility 订单可见性: 0 明单, 1 暗单
type OrderVisibility int

const (
	OrderVisible OrderVisibility = 0
	OrderHidden  OrderVisibility = 1
)

// Order 是一个不可变的订单值对象 (买单或卖单)。
// 价值相等性只看 (Price, Amount)；撤单时的身份是服务端返回的 ID。
type Order struct {
	// ID is assigned by the exchange once the order is acknowledged.
	// Zero means the order has not been created remotely yet.
	ID         int64
	Price      decimal.Decimal
	Amount     int
	Visibility OrderVisibility
}

// NewOrder builds an order at price/amount with default visibility.
func NewOrder(price decimal.Decimal, amount int) Order {
	return Order{Price: price, Amount: amount, Visibility: OrderVisible}
}

// Equal 按价值相等判断: (Price, Amount) 相同即视为同一订单
func (o Order) Equal(other Order) bool {
	return o.Price.Equal(other.Price) && o.Amount == other.Amount
}

// Less 按 (Price, Amount) 升序的字典序
func (o Order) Less(other Order) bool {
	switch o.Price.Cmp(other.Price) {
	case -1:
		return true
	case 1:
		return false
	}
	return o.Amount < other.Amount
}

func (o Order) String() string {
	return fmt.Sprintf("%s x%d", o.Price.StringFixed(2), o.Amount)
}

// SortOrders sorts a copy of orders ascending by (price, amount).
func SortOrders(orders []Order) []Order {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return sorted
}

// SumAmount 合计订单数量
func SumAmount(orders []Order) int {
	total := 0
	for _, o := range orders {
		total += o.Amount
	}
	return total
}
