package model

import "time"

const TableNameGameSave = "game_saves"

// GameSave mapped from table <game_saves>
type GameSave struct {
	UserID              string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	Document            string    `gorm:"column:document;primaryKey" json:"document"`
	SelectedOrderID     string    `gorm:"column:selected_order_id;not null" json:"selected_order_id"`
	Faith               int32     `gorm:"column:faith;not null" json:"faith"`
	Reason              int32     `gorm:"column:reason;not null" json:"reason"`
	CivilizationPoints  int32     `gorm:"column:civilization_points;not null" json:"civilization_points"`
	PlayedContributions []byte    `gorm:"column:played_contributions;type:jsonb;not null" json:"played_contributions"`
	DebunkedMyths       []byte    `gorm:"column:debunked_myths;type:jsonb;not null" json:"debunked_myths"`
	SavedAt             time.Time `gorm:"column:saved_at;not null" json:"saved_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (*GameSave) TableName() string {
	return TableNameGameSave
}
