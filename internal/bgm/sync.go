package bgm

import (
	"context"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/domain"
)

// AskLister 给出当前有挂卖单的角色集合
type AskLister interface {
	AskingCharacterIDs(ctx context.Context) ([]int, error)
}

// Syncer 把收藏列表对齐到当前有挂卖单的角色集合：
// 在卖的收藏上，不卖了的取消收藏。
// 单个收藏操作失败只记日志，不影响其余角色。
type Syncer struct {
	api    AskLister
	client *Client
	log    *logrus.Entry
}

func NewSyncer(api AskLister, client *Client) *Syncer {
	return &Syncer{
		api:    api,
		client: client,
		log:    logrus.WithField("component", "bgm"),
	}
}

var _ domain.FavoritesSyncer = (*Syncer)(nil)

func (s *Syncer) Sync(ctx context.Context) error {
	asking, err := s.api.AskingCharacterIDs(ctx)
	if err != nil {
		return err
	}
	favorites, err := s.client.FavoriteCharacterIDs(ctx)
	if err != nil {
		return err
	}

	askSet := make(map[int]bool, len(asking))
	for _, cid := range asking {
		askSet[cid] = true
	}
	favSet := make(map[int]bool, len(favorites))
	for _, cid := range favorites {
		favSet[cid] = true
	}

	for _, cid := range asking {
		if !favSet[cid] {
			if err := s.client.Collect(ctx, cid); err != nil {
				s.log.Warnf("collect character %d: %v", cid, err)
			}
		}
	}
	for _, cid := range favorites {
		if !askSet[cid] {
			if err := s.client.EraseCollect(ctx, cid); err != nil {
				s.log.Warnf("erase collect character %d: %v", cid, err)
			}
		}
	}
	return nil
}
