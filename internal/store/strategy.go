package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/model"
)

// StrategyStore 策略记录表访问。每 (账号, 角色) 至多一条。
type StrategyStore struct {
	db *gorm.DB
}

func NewStrategyStore(db *gorm.DB) *StrategyStore {
	return &StrategyStore{db: db}
}

var _ domain.StrategyStore = (*StrategyStore)(nil)

func (s *StrategyStore) Load(ctx context.Context, accountName string) (map[int]model.CharacterStrategy, error) {
	var rows []model.CharacterStrategy
	if err := s.db.WithContext(ctx).
		Where("account_name = ?", accountName).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	out := make(map[int]model.CharacterStrategy, len(rows))
	for _, row := range rows {
		out[row.CharacterID] = row
	}
	return out, nil
}

func (s *StrategyStore) Get(ctx context.Context, characterID int, accountName string) (*model.CharacterStrategy, error) {
	var row model.CharacterStrategy
	err := s.db.WithContext(ctx).
		Where("character_id = ? AND account_name = ?", characterID, accountName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("strategy for character %d: %w", characterID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	return &row, nil
}

func (s *StrategyStore) Upsert(ctx context.Context, characterID int, accountName string, kind model.StrategyKind, params json.RawMessage) error {
	row := model.CharacterStrategy{
		CharacterID: characterID,
		AccountName: accountName,
		Kind:        kind,
		Params:      params,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "character_id"}, {Name: "account_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "params", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert strategy: %w", err)
	}
	return nil
}

func (s *StrategyStore) Delete(ctx context.Context, characterID int, accountName string) error {
	err := s.db.WithContext(ctx).
		Where("character_id = ? AND account_name = ?", characterID, accountName).
		Delete(&model.CharacterStrategy{}).Error
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	return nil
}
