package domain

import (
	"testing"
	"time"
)

func TestProcessedUpdate_PrimaryKeyRejectsReplay(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ProcessedUpdate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	first := ProcessedUpdate{UpdateID: 100, ChatID: 1, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := ProcessedUpdate{UpdateID: 100, ChatID: 1, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected primary key violation for replayed update id")
	}
	if !db.Migrator().HasIndex(&ProcessedUpdate{}, "idx_processed_updates_expires_at") {
		t.Fatalf("expected index on expires_at")
	}
}
