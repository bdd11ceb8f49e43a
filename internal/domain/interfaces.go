package domain

import (
	"context"
	"encoding/json"

	"grailtrade.com/internal/model"
)

// ===========================
// 行情/交易 API 接口
// ===========================

// MarketAPI 定义单角色视角需要的远端行情与交易操作。
// 除 Create/Cancel 外均为读幂等。
type MarketAPI interface {
	// 角色行情快照
	CharacterInfo(ctx context.Context, characterID int) (*model.CharacterSnapshot, error)
	// 本账号在该角色上的持仓 (买单/卖单/现货)
	UserCharacter(ctx context.Context, characterID int) (*model.Position, error)
	// 盘口深度
	Depth(ctx context.Context, characterID int) (*model.Depth, error)
	// 价格K线 (首日 Begin 即发行价)
	Charts(ctx context.Context, characterID int) ([]model.Chartum, error)
	// 挂买单
	CreateBid(ctx context.Context, characterID int, bid model.Order) error
	// 挂卖单
	CreateAsk(ctx context.Context, characterID int, ask model.Order) error
	// 撤买单 (按服务端 ID)
	CancelBid(ctx context.Context, bidID int64) error
	// 撤卖单
	CancelAsk(ctx context.Context, askID int64) error
}

// ExchangeAPI 是调度器还需要的账号级远端操作
type ExchangeAPI interface {
	MarketAPI
	// 当前持仓的角色 ID 列表
	HoldingCharacterIDs(ctx context.Context) ([]int, error)
	// 当前有挂买单的角色 ID 列表
	BiddingCharacterIDs(ctx context.Context) ([]int, error)
	// 当前有挂卖单的角色 ID 列表
	AskingCharacterIDs(ctx context.Context) ([]int, error)
	// 资金流水，只取 sinceID 之后的条目
	History(ctx context.Context, sinceID int64) ([]model.BalanceHistory, error)
	// 最新一条流水的 ID，用于启动时对齐游标
	LatestHistoryID(ctx context.Context) (int64, error)
	// 每日登录奖励
	ClaimDailyBonus(ctx context.Context) (string, error)
	// 每周分红
	ClaimWeeklyShare(ctx context.Context) (string, error)
	// 刮刮乐，一次抽取
	ScratchBonus(ctx context.Context) ([]model.ScratchBonus, error)
	// 付费档刮刮乐，一次抽取
	ScratchGensokyo(ctx context.Context) ([]model.ScratchBonus, error)
	// 付费档当前单价 (当日逐次翻倍)
	ScratchGensokyoPrice(ctx context.Context) (int64, error)
}

// ===========================
// 持久化接口
// ===========================

// StrategyStore 策略记录的持久化 (每 (账号, 角色) 一条)
type StrategyStore interface {
	Load(ctx context.Context, accountName string) (map[int]model.CharacterStrategy, error)
	Get(ctx context.Context, characterID int, accountName string) (*model.CharacterStrategy, error)
	Upsert(ctx context.Context, characterID int, accountName string, kind model.StrategyKind, params json.RawMessage) error
	Delete(ctx context.Context, characterID int, accountName string) error
}

// AccountStore 账号凭证的持久化
type AccountStore interface {
	Retrieve(ctx context.Context, friendlyName string) (*model.Account, error)
	UpdateIdentity(ctx context.Context, friendlyName, identity string) error
}

// ChartCache K线的跨进程缓存 (K线按天刷新，重启后无须重新拉取)
type ChartCache interface {
	Get(ctx context.Context, characterID int) ([]model.Chartum, bool, error)
	Set(ctx context.Context, characterID int, charts []model.Chartum) error
}

// ===========================
// 外部协作方
// ===========================

// FavoritesSyncer 收藏列表同步协作方，调度器每轮不透明地调用一次
type FavoritesSyncer interface {
	Sync(ctx context.Context) error
}
