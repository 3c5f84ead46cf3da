package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeengine/src/model"
)

func newSQLiteDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestActivityRepositoryEvictsOldestBeyondCap(t *testing.T) {
	db := newSQLiteDB(t, &model.ActivityRecord{})
	repo := NewActivityRepository().WithDB(db).WithCap(5)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		record := &model.ActivityRecord{
			ID:          uuid.NewString(),
			UserID:      "user-1",
			Category:    "trading",
			Action:      "trade_placed",
			Description: fmt.Sprintf("entry %d", i),
			Amount:      decimal.NewFromInt(int64(i)),
			Status:      model.ActivityStatusCompleted,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), record); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	records, err := repo.FindLatest(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("find latest failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 surviving records, got %d", len(records))
	}

	// Newest first; the oldest three were evicted.
	if records[0].Description != "entry 7" {
		t.Fatalf("expected entry 7 first, got %q", records[0].Description)
	}
	if records[len(records)-1].Description != "entry 3" {
		t.Fatalf("expected entry 3 last, got %q", records[len(records)-1].Description)
	}
}

func TestActivityRepositoryCapIsPerUser(t *testing.T) {
	db := newSQLiteDB(t, &model.ActivityRecord{})
	repo := NewActivityRepository().WithDB(db).WithCap(2)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for _, user := range []string{"user-1", "user-2"} {
		for i := 0; i < 3; i++ {
			record := &model.ActivityRecord{
				ID:        uuid.NewString(),
				UserID:    user,
				Category:  "trading",
				Action:    "trade_placed",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := repo.Create(context.Background(), record); err != nil {
				t.Fatalf("create for %s failed: %v", user, err)
			}
		}
	}

	for _, user := range []string{"user-1", "user-2"} {
		records, err := repo.FindLatest(context.Background(), user, 100)
		if err != nil {
			t.Fatalf("find latest for %s failed: %v", user, err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records for %s, got %d", user, len(records))
		}
	}
}

func TestActivityRepositoryFindByID(t *testing.T) {
	db := newSQLiteDB(t, &model.ActivityRecord{})
	repo := NewActivityRepository().WithDB(db)

	record := &model.ActivityRecord{
		ID:       uuid.NewString(),
		UserID:   "user-1",
		Category: "trading",
		Action:   "settlement",
		Meta:     map[string]any{"position_id": "pos-1"},
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := repo.FindByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil || found.Action != "settlement" {
		t.Fatalf("unexpected record: %+v", found)
	}
	if found.Meta["position_id"] != "pos-1" {
		t.Fatalf("meta not round-tripped: %+v", found.Meta)
	}

	missing, err := repo.FindByID(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}
