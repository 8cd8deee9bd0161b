package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"verge/internal/session"
	"verge/internal/store"
	storemodel "verge/internal/store/model"
)

type strategyRepo struct {
	db *gorm.DB
}

func newStrategyRepo(db *gorm.DB) *strategyRepo { return &strategyRepo{db: db} }

func (r *strategyRepo) Create(ctx context.Context, st *session.Strategy) error {
	if st == nil {
		return errors.New("strategy cannot be nil")
	}
	now := time.Now().UnixMilli()
	st.Version = 1
	m := newStrategyModel(st)
	m.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *strategyRepo) ActiveByOwner(ctx context.Context, ownerID string) (*session.Strategy, error) {
	var m storemodel.StrategyModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND active = ?", ownerID, true).
		Order("created_at DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return strategyModelToDomain(m), nil
}

func (r *strategyRepo) ListAutoMode(ctx context.Context) ([]*session.Strategy, error) {
	var rows []storemodel.StrategyModel
	if err := r.db.WithContext(ctx).
		Where("active = ? AND auto_mode = ?", true, true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*session.Strategy, 0, len(rows))
	for _, m := range rows {
		out = append(out, strategyModelToDomain(m))
	}
	return out, nil
}

func (r *strategyRepo) Update(ctx context.Context, st *session.Strategy) error {
	if st == nil {
		return errors.New("strategy cannot be nil")
	}
	m := newStrategyModel(st)
	m.Version = st.Version + 1
	m.UpdatedAtUnix = time.Now().UnixMilli()
	res := r.db.WithContext(ctx).
		Model(&storemodel.StrategyModel{}).
		Where("id = ? AND version = ?", st.ID, st.Version).
		Select("*").Omit("id", "created_at").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&storemodel.StrategyModel{}).Where("id = ?", st.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return store.ErrConflict
	}
	st.Version = m.Version
	return nil
}

func (r *strategyRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&storemodel.StrategyModel{}).Error
}
