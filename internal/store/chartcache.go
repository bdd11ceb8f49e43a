package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/config"
	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/model"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

const chartTTL = 24 * time.Hour

// ChartCache K线的 redis 缓存。K线按天更新，缓存跨进程重启复用，
// 省掉每次启动对全部持仓角色的一轮 charts 拉取。
type ChartCache struct {
	rdb *redis.Client
}

func NewChartCache(rdb *redis.Client) *ChartCache {
	return &ChartCache{rdb: rdb}
}

var _ domain.ChartCache = (*ChartCache)(nil)

func chartKey(characterID int) string {
	return fmt.Sprintf("grail:charts:%d", characterID)
}

func (c *ChartCache) Get(ctx context.Context, characterID int) ([]model.Chartum, bool, error) {
	raw, err := c.rdb.Get(ctx, chartKey(characterID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chart cache get: %w", err)
	}
	var charts []model.Chartum
	if err := json.Unmarshal(raw, &charts); err != nil {
		// 缓存坏了当 miss 处理，顺手清掉
		logrus.Warnf("chart cache corrupted for character %d: %v", characterID, err)
		c.rdb.Del(ctx, chartKey(characterID))
		return nil, false, nil
	}
	return charts, true, nil
}

func (c *ChartCache) Set(ctx context.Context, characterID int, charts []model.Chartum) error {
	raw, err := json.Marshal(charts)
	if err != nil {
		return fmt.Errorf("chart cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, chartKey(characterID), raw, chartTTL).Err(); err != nil {
		return fmt.Errorf("chart cache set: %w", err)
	}
	return nil
}
