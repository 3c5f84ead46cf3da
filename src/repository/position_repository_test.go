package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradeengine/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func positionRows(positions ...model.Position) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "instrument_type", "symbol", "status", "created_at"})
	for _, position := range positions {
		rows.AddRow(position.ID, position.InstrumentType, position.Symbol, position.Status, position.CreatedAt)
	}
	return rows
}

func TestPositionRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	createdAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	positions := []model.Position{
		{ID: "a", InstrumentType: model.InstrumentSpot, Symbol: "BTCUSDT", Status: model.PositionStatusWon, CreatedAt: createdAt.Add(2 * time.Hour)},
		{ID: "b", InstrumentType: model.InstrumentBinary, Symbol: "ETHUSDT", Status: model.PositionStatusLost, CreatedAt: createdAt.Add(time.Hour)},
	}

	t.Run("filters by instrument type", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE instrument_type = $1 ORDER BY created_at DESC, id DESC`)).
			WithArgs(model.InstrumentSpot).
			WillReturnRows(positionRows(positions[0]))

		results, err := repo.Search(context.Background(), PositionSearchOptions{InstrumentType: model.InstrumentSpot})
		if err != nil {
			t.Fatalf("unexpected error searching positions: %v", err)
		}
		if len(results) != 1 || results[0].ID != "a" {
			t.Fatalf("unexpected results: %+v", results)
		}
	})

	t.Run("combines filters with pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE status = $1 AND symbol = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
			WithArgs(model.PositionStatusLost, "ETHUSDT", 1, 1).
			WillReturnRows(positionRows(positions[1]))

		results, err := repo.Search(context.Background(), PositionSearchOptions{
			Status: model.PositionStatusLost,
			Symbol: "ETHUSDT",
			Limit:  1,
			Offset: 1,
		})
		if err != nil {
			t.Fatalf("unexpected error searching positions: %v", err)
		}
		if len(results) != 1 || results[0].ID != "b" {
			t.Fatalf("unexpected results: %+v", results)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryFindNonTerminal(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE status IN ($1,$2,$3) ORDER BY opened_at ASC`)).
		WithArgs(model.PositionStatusPendingOrder, model.PositionStatusOpen, model.PositionStatusSettling).
		WillReturnRows(positionRows(model.Position{ID: "a", Status: model.PositionStatusOpen}))

	results, err := repo.FindNonTerminal(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("unexpected results: %+v", results)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryFindByIDNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE id = $1`)).
		WillReturnRows(positionRows())

	position, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if position != nil {
		t.Fatalf("expected nil position, got %+v", position)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryClaim(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	claimSQL := regexp.QuoteMeta(`UPDATE "positions" SET "status"=$1,"updated_at"=$2 WHERE id = $3 AND status = $4`)

	t.Run("wins the compare-and-set on an open position", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(claimSQL).
			WithArgs(model.PositionStatusSettling, sqlmock.AnyArg(), "pos-1", model.PositionStatusOpen).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		claimed, err := repo.Claim(context.Background(), "pos-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !claimed {
			t.Fatal("expected the claim to succeed")
		}
	})

	t.Run("loses when the position is no longer open", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(claimSQL).
			WithArgs(model.PositionStatusSettling, sqlmock.AnyArg(), "pos-1", model.PositionStatusOpen).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		claimed, err := repo.Claim(context.Background(), "pos-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claimed {
			t.Fatal("a non-open position must not be claimable")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryMarkTerminal(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	terminalSQL := regexp.QuoteMeta(`UPDATE "positions" SET "exit_price"=$1,"exit_reason"=$2,"payout"=$3,"settled_at"=$4,"status"=$5,"updated_at"=$6 WHERE id = $7 AND status = $8`)

	update := TerminalUpdate{
		Status:     model.PositionStatusWon,
		ExitPrice:  decimal.NullDecimal{Decimal: decimal.NewFromInt(50500), Valid: true},
		Payout:     decimal.NullDecimal{Decimal: decimal.RequireFromString("107.5"), Valid: true},
		ExitReason: model.ExitReasonTimer,
		SettledAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("commits a claimed position", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(terminalSQL).
			WithArgs(sqlmock.AnyArg(), model.ExitReasonTimer, sqlmock.AnyArg(), sqlmock.AnyArg(),
				model.PositionStatusWon, sqlmock.AnyArg(), "pos-1", model.PositionStatusSettling).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		committed, err := repo.MarkTerminal(context.Background(), "pos-1", update)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !committed {
			t.Fatal("expected the commit to succeed")
		}
	})

	t.Run("refuses a position that was not claimed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(terminalSQL).
			WithArgs(sqlmock.AnyArg(), model.ExitReasonTimer, sqlmock.AnyArg(), sqlmock.AnyArg(),
				model.PositionStatusWon, sqlmock.AnyArg(), "pos-1", model.PositionStatusSettling).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		committed, err := repo.MarkTerminal(context.Background(), "pos-1", update)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if committed {
			t.Fatal("an unclaimed position must not commit")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryPruneTerminalBefore(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "positions" WHERE status IN ($1,$2,$3,$4) AND settled_at < $5`)).
		WithArgs(model.PositionStatusWon, model.PositionStatusLost, model.PositionStatusCancelled,
			model.PositionStatusAdminOverridden, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	pruned, err := repo.PruneTerminalBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pruned != 3 {
		t.Fatalf("expected 3 pruned rows, got %d", pruned)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
