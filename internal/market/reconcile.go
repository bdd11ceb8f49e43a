package market

import (
	"context"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/model"
)

// sideOps 单侧 (买或卖) 的撤单/挂单操作
type sideOps struct {
	cancel func(ctx context.Context, order model.Order) error
	create func(ctx context.Context, order model.Order) error
	// deferCreates: 卖单需要先处理完全部撤单再挂新单，
	// 撤单释放出来的库存才够用于新挂单；买单则立即挂。
	deferCreates bool
	log          *logrus.Entry
}

// reconcile 把在场订单集收敛到目标订单集，调用次数为
// |current \ desired| + |desired \ current| (按价值相等)，不多不少。
// 双指针走两个按 (price, amount) 升序排序的序列。
func reconcile(ctx context.Context, current, desired []model.Order, ops sideOps) error {
	now := model.SortOrders(current)
	want := model.SortOrders(desired)

	var deferred []model.Order
	i, j := 0, 0
	for i < len(now) && j < len(want) {
		switch {
		case now[i].Less(want[j]):
			ops.log.Infof("Cancel: %s", now[i])
			if err := ops.cancel(ctx, now[i]); err != nil {
				return err
			}
			i++
		case want[j].Less(now[i]):
			if ops.deferCreates {
				deferred = append(deferred, want[j])
			} else {
				ops.log.Infof("Create: %s", want[j])
				if err := ops.create(ctx, want[j]); err != nil {
					return err
				}
			}
			j++
		default:
			ops.log.Debugf("Equals: %s", now[i])
			i++
			j++
		}
	}

	for ; i < len(now); i++ {
		ops.log.Infof("Cancel: %s", now[i])
		if err := ops.cancel(ctx, now[i]); err != nil {
			return err
		}
	}
	for _, o := range deferred {
		ops.log.Infof("Create: %s", o)
		if err := ops.create(ctx, o); err != nil {
			return err
		}
	}
	for ; j < len(want); j++ {
		ops.log.Infof("Create: %s", want[j])
		if err := ops.create(ctx, want[j]); err != nil {
			return err
		}
	}
	return nil
}
