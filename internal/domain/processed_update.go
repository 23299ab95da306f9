package domain

import "time"

// ProcessedUpdate records an inbound transport update that has already been
// handled, keyed by the transport's monotonically increasing update id. It
// lets the bot skip updates redelivered after a restart without re-applying
// their side effects. Rows expire after a configured TTL.
type ProcessedUpdate struct {
	UpdateID  int       `gorm:"primaryKey;autoIncrement:false"`
	ChatID    int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
