package market

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grailtrade.com/internal/model"
)

type opRecorder struct {
	cancels []model.Order
	creates []model.Order
	// sequence 记录调用顺序, "cancel"/"create"
	sequence []string
}

func (r *opRecorder) ops(deferCreates bool) sideOps {
	return sideOps{
		cancel: func(ctx context.Context, o model.Order) error {
			r.cancels = append(r.cancels, o)
			r.sequence = append(r.sequence, "cancel")
			return nil
		},
		create: func(ctx context.Context, o model.Order) error {
			r.creates = append(r.creates, o)
			r.sequence = append(r.sequence, "create")
			return nil
		},
		deferCreates: deferCreates,
		log:          logrus.NewEntry(logrus.New()),
	}
}

func order(t *testing.T, price string, amount int) model.Order {
	t.Helper()
	d, err := decimal.NewFromString(price)
	require.NoError(t, err)
	return model.Order{Price: d, Amount: amount}
}

func orderWithID(t *testing.T, id int64, price string, amount int) model.Order {
	o := order(t, price, amount)
	o.ID = id
	return o
}

func TestReconcileCreateMissing(t *testing.T) {
	current := []model.Order{orderWithID(t, 1, "10.00", 50)}
	desired := []model.Order{order(t, "10.00", 50), order(t, "12.00", 20)}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(false)))

	assert.Empty(t, rec.cancels)
	require.Len(t, rec.creates, 1)
	assert.True(t, rec.creates[0].Equal(order(t, "12.00", 20)))
}

func TestReconcileCancelSurplus(t *testing.T) {
	current := []model.Order{
		orderWithID(t, 1, "10.00", 50),
		orderWithID(t, 2, "9.00", 30),
	}
	desired := []model.Order{order(t, "10.00", 50)}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(false)))

	assert.Empty(t, rec.creates)
	require.Len(t, rec.cancels, 1)
	assert.True(t, rec.cancels[0].Equal(order(t, "9.00", 30)))
}

func TestReconcileMinimality(t *testing.T) {
	// 调用数 = |current \ desired| + |desired \ current|
	current := []model.Order{
		orderWithID(t, 1, "8.00", 100),
		orderWithID(t, 2, "9.00", 10),
		orderWithID(t, 3, "10.00", 5),
	}
	desired := []model.Order{
		order(t, "9.00", 10),
		order(t, "10.00", 7),
		order(t, "11.00", 1),
	}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(false)))

	assert.Len(t, rec.cancels, 2) // (8.00,100), (10.00,5)
	assert.Len(t, rec.creates, 2) // (10.00,7), (11.00,1)
}

func TestReconcileNoOpWhenEqual(t *testing.T) {
	current := []model.Order{
		orderWithID(t, 1, "8.00", 100),
		orderWithID(t, 2, "9.00", 10),
	}
	desired := []model.Order{
		order(t, "9.00", 10),
		order(t, "8.00", 100),
	}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(false)))

	assert.Empty(t, rec.cancels)
	assert.Empty(t, rec.creates)
}

func TestReconcileClearAll(t *testing.T) {
	current := []model.Order{
		orderWithID(t, 1, "8.00", 100),
		orderWithID(t, 2, "9.00", 10),
	}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, nil, rec.ops(false)))

	assert.Len(t, rec.cancels, 2)
	assert.Empty(t, rec.creates)
}

func TestReconcileAsksDeferCreates(t *testing.T) {
	// 卖单: 先撤后挂，撤单释放的库存才能支撑新单
	current := []model.Order{
		orderWithID(t, 1, "9.50", 80),
		orderWithID(t, 2, "12.00", 20),
	}
	desired := []model.Order{
		order(t, "10.00", 100),
	}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(true)))

	assert.Equal(t, []string{"cancel", "cancel", "create"}, rec.sequence)
}

func TestReconcileBidsCreateImmediately(t *testing.T) {
	current := []model.Order{orderWithID(t, 1, "12.00", 20)}
	desired := []model.Order{order(t, "10.00", 100)}

	rec := &opRecorder{}
	require.NoError(t, reconcile(context.Background(), current, desired, rec.ops(false)))

	// (10.00,100) 排在 (12.00,20) 之前，买单立即挂
	assert.Equal(t, []string{"create", "cancel"}, rec.sequence)
}
