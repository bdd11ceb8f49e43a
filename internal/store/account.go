package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"grailtrade.com/internal/domain"
	"grailtrade.com/internal/model"
)

// AccountStore 账号凭证表访问
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

var _ domain.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Retrieve(ctx context.Context, friendlyName string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).
		Where("friendly_name = ?", friendlyName).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %q: %w", friendlyName, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve account: %w", err)
	}
	return &account, nil
}

func (s *AccountStore) UpdateIdentity(ctx context.Context, friendlyName, identity string) error {
	result := s.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("friendly_name = ?", friendlyName).
		Update("identity", identity)
	if result.Error != nil {
		return fmt.Errorf("update identity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %q: %w", friendlyName, domain.ErrNotFound)
	}
	return nil
}
