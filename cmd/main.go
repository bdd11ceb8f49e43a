package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/bgm"
	"grailtrade.com/internal/config"
	"grailtrade.com/internal/daemon"
	"grailtrade.com/internal/exchange"
	"grailtrade.com/internal/market"
	"grailtrade.com/internal/store"
	"grailtrade.com/internal/strategy"
	"grailtrade.com/internal/trader"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化基础设施
	// Postgres
	pg, err := store.NewPostgresClient(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis
	rdb := store.NewRedisClient(cfg.Redis)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 取账号凭证
	accounts := store.NewAccountStore(pg.DB)
	account, err := accounts.Retrieve(ctx, cfg.Account.Name)
	if err != nil {
		logrus.Fatalf("Failed to retrieve account: %v", err)
	}

	// 4. 交易所客户端，身份轮换随时落库
	client := exchange.NewClient(cfg.Exchange, account.Identity)
	client.OnIdentityRefresh(func(identity string) {
		if err := accounts.UpdateIdentity(context.Background(), account.FriendlyName, identity); err != nil {
			logrus.Errorf("Failed to persist rotated identity: %v", err)
		}
	})

	// 5. 组装交易栈
	charts := store.NewChartCache(rdb)
	internalRate := decimal.NewFromFloat(cfg.Trading.InternalRate)
	facades := market.NewFacadeCache(64, func(cid int) *market.Facade {
		return market.NewFacade(client, charts, cid, internalRate)
	})

	settings := strategy.DefaultSettings()
	if cfg.Trading.BidAmount > 0 {
		settings.BidAmount = cfg.Trading.BidAmount
	}
	if cfg.Trading.FastSellerLow > 0 {
		settings.FastSellerLow = decimal.NewFromFloat(cfg.Trading.FastSellerLow)
	}
	if cfg.Trading.FastSellerHigh > 0 {
		settings.FastSellerHigh = decimal.NewFromFloat(cfg.Trading.FastSellerHigh)
	}

	strategies := store.NewStrategyStore(pg.DB)
	tr := trader.New(account.FriendlyName, strategies, facades, settings)

	bgmClient := bgm.NewClient(cfg.Bgm.BaseURL, time.Duration(cfg.Exchange.TimeoutSeconds)*time.Second, account)
	syncer := bgm.NewSyncer(client, bgmClient)

	// 6. 守护进程
	breaker := daemon.NewBreaker(cfg.Daemon.ErrorToleranceCount,
		time.Duration(cfg.Daemon.ErrorTolerancePeriodMinutes)*time.Minute)
	runner := daemon.NewTraderDaemon(client, tr, syncer, breaker, cfg.Daemon.SlowSampleSize)
	d := daemon.New(runner, breaker, time.Duration(cfg.Daemon.TickSeconds)*time.Second)

	logrus.Infof("Trader daemon starting for account %s", account.FriendlyName)
	if err := d.RunForever(ctx); err != nil {
		logrus.Fatalf("Daemon stopped: %v", err)
	}
	logrus.Info("Daemon stopped")
}
