package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"civbuilders/internal/adapter/repo/gorm/model"
	"civbuilders/internal/domain/progression"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepo {
	return EventRepo{db: db}
}

func (r EventRepo) Append(ctx context.Context, userID string, events []progression.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.GameEvent, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", e.Type, err)
		}
		rows = append(rows, model.GameEvent{
			UserID:     userID,
			Type:       e.Type,
			OccurredAt: e.OccurredAt,
			Payload:    b,
		})
	}
	return getDBFromCtx(ctx, r.db).WithContext(ctx).Create(&rows).Error
}

func (r EventRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]progression.DomainEvent, error) {
	rows := []model.GameEvent{}
	query := getDBFromCtx(ctx, r.db).WithContext(ctx).
		Where(&model.GameEvent{UserID: userID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "occurred_at"}, Desc: true},
				{Column: clause.Column{Name: "id"}, Desc: true},
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]progression.DomainEvent, 0, len(rows))
	for _, row := range rows {
		var payload map[string]any
		if len(row.Payload) > 0 {
			_ = json.Unmarshal(row.Payload, &payload)
		}
		out = append(out, progression.DomainEvent{
			Type:       row.Type,
			OccurredAt: row.OccurredAt.UTC(),
			Payload:    payload,
		})
	}
	return out, nil
}
