package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/model"
	"github.com/meshpay/payment-service/internal/usecase"
	apperrors "github.com/meshpay/payment-service/pkg/errors"
)

// MockEventLedger is a mock implementation of EventLedger
type MockEventLedger struct {
	mock.Mock
}

func (m *MockEventLedger) RecordIfNew(ctx context.Context, evt *event.PaymentEvent) (bool, *model.ProcessedEvent, error) {
	args := m.Called(ctx, evt)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}
	return args.Bool(0), args.Get(1).(*model.ProcessedEvent), args.Error(2)
}

func (m *MockEventLedger) MarkCompleted(ctx context.Context, provider event.Provider, providerEventID string, resultStatus string) error {
	args := m.Called(ctx, provider, providerEventID, resultStatus)
	return args.Error(0)
}

func (m *MockEventLedger) MarkFailed(ctx context.Context, provider event.Provider, providerEventID string, cause error) error {
	args := m.Called(ctx, provider, providerEventID, cause)
	return args.Error(0)
}

func (m *MockEventLedger) GetEvent(ctx context.Context, provider event.Provider, providerEventID string) (*model.ProcessedEvent, error) {
	args := m.Called(ctx, provider, providerEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessedEvent), args.Error(1)
}

// MockAnomalyRepository is a mock implementation of AnomalyRepository
type MockAnomalyRepository struct {
	mock.Mock
}

func (m *MockAnomalyRepository) Create(ctx context.Context, anomaly *model.Anomaly) error {
	args := m.Called(ctx, anomaly)
	return args.Error(0)
}

func (m *MockAnomalyRepository) List(ctx context.Context, limit int) ([]*model.Anomaly, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.Anomaly), args.Error(1)
}

func (m *MockAnomalyRepository) ListByTransactionRef(ctx context.Context, ref string) ([]*model.Anomaly, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).([]*model.Anomaly), args.Error(1)
}

type processorFixture struct {
	ledger       *MockEventLedger
	anomalies    *MockAnomalyRepository
	transactions *MockTransactionRepository
	processor    *usecase.WebhookProcessor
}

func newProcessorFixture() *processorFixture {
	ledger := new(MockEventLedger)
	anomalies := new(MockAnomalyRepository)
	transactions := new(MockTransactionRepository)
	reconciler := usecase.NewReconciler(transactions, zap.NewNop())

	return &processorFixture{
		ledger:       ledger,
		anomalies:    anomalies,
		transactions: transactions,
		processor:    usecase.NewWebhookProcessor(ledger, anomalies, reconciler, zap.NewNop()),
	}
}

func claimedEntry(status model.ProcessingStatus) *model.ProcessedEvent {
	return &model.ProcessedEvent{
		ID:               1,
		Provider:         "stripe",
		ProviderEventID:  "evt_1",
		ProcessingStatus: status,
	}
}

func TestWebhookProcessor_Process_NewEventApplied(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(pendingTransaction(), nil)
	f.transactions.On("UpdateStatusConditional", ctx, "order-1", int64(3), model.TransactionStatusSucceeded, mock.Anything, mock.Anything).Return(true, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "applied:succeeded").Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionApplied, res.Disposition)
	assert.Equal(t, usecase.OutcomeApplied, res.Apply.Outcome)

	f.ledger.AssertExpectations(t)
	f.transactions.AssertExpectations(t)
}

func TestWebhookProcessor_Process_CompletedDuplicateShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	result := "applied:succeeded"
	entry := claimedEntry(model.ProcessingStatusCompleted)
	entry.ResultStatus = &result

	f.ledger.On("RecordIfNew", ctx, evt).Return(false, entry, nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionDuplicate, res.Disposition)

	// Duplicates never reach the state machine
	f.transactions.AssertNotCalled(t, "GetByRef", mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookProcessor_Process_ReprocessesUnfinishedEntry(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	entry := claimedEntry(model.ProcessingStatusFailed)
	entry.Attempts = 2

	f.ledger.On("RecordIfNew", ctx, evt).Return(false, entry, nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(pendingTransaction(), nil)
	f.transactions.On("UpdateStatusConditional", ctx, "order-1", int64(3), model.TransactionStatusSucceeded, mock.Anything, mock.Anything).Return(true, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "applied:succeeded").Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionApplied, res.Disposition)
}

func TestWebhookProcessor_Process_UnhandledEventAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()

	evt := succeededEvent()
	evt.Kind = event.KindUnhandled
	evt.TransactionRef = ""

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "ignored").Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionIgnored, res.Disposition)
	f.transactions.AssertNotCalled(t, "GetByRef", mock.Anything, mock.Anything)
}

func TestWebhookProcessor_Process_RejectionRecordsAnomaly(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(nil, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "rejected:unknown_transaction").Return(nil)
	f.anomalies.On("Create", ctx, mock.MatchedBy(func(a *model.Anomaly) bool {
		return a.Reason == "unknown_transaction" && a.ProviderEventID == "evt_1"
	})).Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionRejected, res.Disposition)
	assert.Equal(t, usecase.RejectUnknownTransaction, res.Apply.Reason)

	f.anomalies.AssertExpectations(t)
}

func TestWebhookProcessor_Process_AnomalyWriteFailureStillAcknowledges(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(nil, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "rejected:unknown_transaction").Return(nil)
	f.anomalies.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionRejected, res.Disposition)
}

func TestWebhookProcessor_Process_StoreFailureMarksLedgerFailed(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(nil, errors.New("connection refused"))
	f.ledger.On("MarkFailed", ctx, event.ProviderStripe, "evt_1", mock.Anything).Return(nil)

	res, err := f.processor.Process(ctx, evt)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStoreUnavailable, apperrors.CodeOf(err))

	// Failure must not finalize the entry as completed
	f.ledger.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertExpectations(t)
}

func TestWebhookProcessor_Process_TransientLedgerFailureRetried(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(false, nil, errors.New("transient: connection reset")).Once()
	f.ledger.On("RecordIfNew", ctx, evt).Return(true, claimedEntry(model.ProcessingStatusPending), nil).Once()
	f.transactions.On("GetByRef", ctx, "order-1").Return(pendingTransaction(), nil)
	f.transactions.On("UpdateStatusConditional", ctx, "order-1", int64(3), model.TransactionStatusSucceeded, mock.Anything, mock.Anything).Return(true, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_1", "applied:succeeded").Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionApplied, res.Disposition)
	f.ledger.AssertExpectations(t)
}

func TestWebhookProcessor_Process_LedgerUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()
	evt := succeededEvent()

	f.ledger.On("RecordIfNew", ctx, evt).Return(false, nil, errors.New("connection refused"))

	res, err := f.processor.Process(ctx, evt)
	assert.Nil(t, res)
	assert.Equal(t, apperrors.ErrStoreUnavailable, apperrors.CodeOf(err))
	f.transactions.AssertNotCalled(t, "GetByRef", mock.Anything, mock.Anything)
}

func TestWebhookProcessor_Process_NoOpOnRepeatStatus(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture()

	evt := succeededEvent()
	evt.ProviderEventID = "evt_2"
	evt.Amount = decimal.NewFromInt(2500)

	tx := pendingTransaction()
	tx.Status = model.TransactionStatusSucceeded

	entry := claimedEntry(model.ProcessingStatusPending)
	entry.ProviderEventID = "evt_2"

	f.ledger.On("RecordIfNew", ctx, evt).Return(true, entry, nil)
	f.transactions.On("GetByRef", ctx, "order-1").Return(tx, nil)
	f.ledger.On("MarkCompleted", ctx, event.ProviderStripe, "evt_2", "noop").Return(nil)

	res, err := f.processor.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispositionNoOp, res.Disposition)
}
