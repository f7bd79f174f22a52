package model

import "time"

const TableNameGameEvent = "game_events"

// GameEvent mapped from table <game_events>
type GameEvent struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	UserID     string    `gorm:"column:user_id;not null" json:"user_id"`
	Type       string    `gorm:"column:type;not null" json:"type"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
	Payload    []byte    `gorm:"column:payload;type:jsonb;not null" json:"payload"`
}

func (*GameEvent) TableName() string {
	return TableNameGameEvent
}
