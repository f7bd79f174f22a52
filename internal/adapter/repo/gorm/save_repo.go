package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civbuilders/internal/adapter/repo/gorm/model"
	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/progression"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultDocument = "current_game"

// SaveRepo stores one document per (user, document name). Writes are
// whole-document upserts.
type SaveRepo struct {
	db       *gorm.DB
	document string
}

func NewSaveRepo(db *gorm.DB, document string) SaveRepo {
	if document == "" {
		document = DefaultDocument
	}
	return SaveRepo{db: db, document: document}
}

func (r SaveRepo) Get(ctx context.Context, userID string) (progression.Record, error) {
	var m model.GameSave
	err := getDBFromCtx(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND document = ?", userID, r.document).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return progression.Record{}, ports.ErrNotFound
		}
		return progression.Record{}, err
	}

	played, err := decodeIDs(m.PlayedContributions)
	if err != nil {
		return progression.Record{}, fmt.Errorf("decode played_contributions: %w", err)
	}
	debunked, err := decodeIDs(m.DebunkedMyths)
	if err != nil {
		return progression.Record{}, fmt.Errorf("decode debunked_myths: %w", err)
	}
	return progression.Record{
		SelectedOrderID:     m.SelectedOrderID,
		Faith:               int(m.Faith),
		Reason:              int(m.Reason),
		CivilizationPoints:  int(m.CivilizationPoints),
		PlayedContributions: played,
		DebunkedMyths:       debunked,
		Timestamp:           m.SavedAt.UTC(),
	}, nil
}

func (r SaveRepo) Put(ctx context.Context, userID string, record progression.Record) error {
	played, err := encodeIDs(record.PlayedContributions)
	if err != nil {
		return err
	}
	debunked, err := encodeIDs(record.DebunkedMyths)
	if err != nil {
		return err
	}
	row := model.GameSave{
		UserID:              userID,
		Document:            r.document,
		SelectedOrderID:     record.SelectedOrderID,
		Faith:               int32(record.Faith),
		Reason:              int32(record.Reason),
		CivilizationPoints:  int32(record.CivilizationPoints),
		PlayedContributions: played,
		DebunkedMyths:       debunked,
		SavedAt:             record.Timestamp,
		UpdatedAt:           time.Now().UTC(),
	}
	return getDBFromCtx(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "document"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_order_id", "faith", "reason", "civilization_points",
				"played_contributions", "debunked_myths", "saved_at", "updated_at",
			}),
		}).
		Create(&row).Error
}

func (r SaveRepo) Delete(ctx context.Context, userID string) error {
	res := getDBFromCtx(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND document = ?", userID, r.document).
		Delete(&model.GameSave{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func decodeIDs(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
