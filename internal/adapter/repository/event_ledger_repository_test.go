package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meshpay/payment-service/internal/domain/event"
	domainRepo "github.com/meshpay/payment-service/internal/domain/repository"
)

func newMockLedger(t *testing.T) (domainRepo.EventLedger, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewEventLedgerRepository(db, zap.NewNop()), mock
}

func TestEventLedgerRepository_MarkCompleted_FinalizesPendingEntry(t *testing.T) {
	ledger, mock := newMockLedger(t)

	// The update must exclude already-completed rows from its match.
	mock.ExpectExec(`UPDATE "processed_events" SET .+ WHERE provider = \$\d+ AND provider_event_id = \$\d+ AND processing_status <> \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ledger.MarkCompleted(context.Background(), event.ProviderStripe, "evt_1", "applied:succeeded")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLedgerRepository_MarkCompleted_DoesNotOverwriteFinalizedEntry(t *testing.T) {
	ledger, mock := newMockLedger(t)

	// A concurrent twin finalized the row first: the conditional update
	// matches nothing and the earlier outcome stands.
	mock.ExpectExec(`UPDATE "processed_events" SET .+ AND processing_status <> \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "processed_events" WHERE provider = \$\d+ AND provider_event_id = \$\d+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "provider_event_id", "processing_status", "result_status"}).
			AddRow(1, "stripe", "evt_1", "completed", "applied:succeeded"))

	err := ledger.MarkCompleted(context.Background(), event.ProviderStripe, "evt_1", "noop")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLedgerRepository_MarkCompleted_MissingEntry(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectExec(`UPDATE "processed_events" SET .+ AND processing_status <> \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "processed_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := ledger.MarkCompleted(context.Background(), event.ProviderStripe, "evt_missing", "applied:succeeded")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEventLedgerRepository_MarkFailed_SingleAtomicUpdate(t *testing.T) {
	ledger, mock := newMockLedger(t)

	// One statement, with the increment and the backoff both computed in
	// SQL; no read precedes it, so concurrent failures cannot lose an
	// attempt count.
	mock.ExpectExec(`UPDATE "processed_events" SET "attempts"=attempts \+ 1,.+"next_retry_at"=now\(\) \+ least\(5 \* power\(2, attempts \+ 1\), 1440\) \* interval '1 minute'.+ WHERE provider = \$\d+ AND provider_event_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ledger.MarkFailed(context.Background(), event.ProviderToss, "txn-1", errors.New("connection reset"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLedgerRepository_MarkFailed_StoreError(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectExec(`UPDATE "processed_events"`).
		WillReturnError(errors.New("connection refused"))

	err := ledger.MarkFailed(context.Background(), event.ProviderToss, "txn-1", errors.New("apply failed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark webhook event failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
