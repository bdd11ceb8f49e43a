package strategy

import (
	"context"
	"encoding/json"

	"grailtrade.com/internal/model"
)

// SelfService 人工接管：不碰该角色的任何挂单。终态。
type SelfService struct {
	base
}

func newSelfService(m Market, cfg Settings, params json.RawMessage) (Strategy, error) {
	return &SelfService{base: newBase(m, cfg)}, nil
}

func (s *SelfService) Kind() model.StrategyKind { return model.KindSelfService }

func (s *SelfService) Params() (json.RawMessage, error) { return nil, nil }

func (s *SelfService) Transition(ctx context.Context) (Strategy, error) {
	return s, nil
}

func (s *SelfService) Output(ctx context.Context) error {
	return nil
}
