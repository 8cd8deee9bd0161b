package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"verge/internal/session"
	"verge/internal/store"
	storemodel "verge/internal/store/model"
	"verge/internal/types"
)

type sessionRepo struct {
	db *gorm.DB
}

func newSessionRepo(db *gorm.DB) *sessionRepo { return &sessionRepo{db: db} }

func (r *sessionRepo) Create(ctx context.Context, s *session.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	now := time.Now().UnixMilli()
	s.Version = 1
	m := newSessionModel(s)
	m.CreatedAtUnix, m.UpdatedAtUnix = now, now
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	var m storemodel.SessionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sessionModelToDomain(m), nil
}

func (r *sessionRepo) ActiveByOwner(ctx context.Context, ownerID string) (*session.Session, error) {
	var m storemodel.SessionModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND active = ?", ownerID, true).
		Order("start_time DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sessionModelToDomain(m), nil
}

func (r *sessionRepo) ListMonitorable(ctx context.Context) ([]*session.Session, error) {
	var rows []storemodel.SessionModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND stage < ?", true, int(types.StageSellActive)).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*session.Session, 0, len(rows))
	for _, m := range rows {
		out = append(out, sessionModelToDomain(m))
	}
	return out, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *session.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m := newSessionModel(s)
	m.Version = s.Version + 1
	m.UpdatedAtUnix = time.Now().UnixMilli()
	res := r.db.WithContext(ctx).
		Model(&storemodel.SessionModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Select("*").Omit("id", "created_at").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, s.ID)
	}
	s.Version = m.Version
	return nil
}

func (r *sessionRepo) DeactivateByOwner(ctx context.Context, ownerID string) (int64, error) {
	now := time.Now().UnixMilli()
	res := r.db.WithContext(ctx).
		Model(&storemodel.SessionModel{}).
		Where("owner_id = ? AND active = ?", ownerID, true).
		Updates(map[string]any{
			"active":     false,
			"end_time":   now,
			"updated_at": now,
			"version":    gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&storemodel.SessionModel{}).Error
}

func (r *sessionRepo) missingOrConflict(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&storemodel.SessionModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return store.ErrConflict
}
