package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	statuses := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusSucceeded,
		TransactionStatusFailed,
		TransactionStatusRefunded,
		TransactionStatusExpired,
	}

	legal := map[TransactionStatus][]TransactionStatus{
		TransactionStatusPending:   {TransactionStatusSucceeded, TransactionStatusFailed, TransactionStatusExpired},
		TransactionStatusSucceeded: {TransactionStatusRefunded},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			expected := false
			for _, allowed := range legal[from] {
				if to == allowed {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to),
				"%s -> %s", from, to)
		}
	}
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, TransactionStatusPending.IsTerminal())
	assert.True(t, TransactionStatusSucceeded.IsTerminal())
	assert.True(t, TransactionStatusFailed.IsTerminal())
	assert.True(t, TransactionStatusRefunded.IsTerminal())
	assert.True(t, TransactionStatusExpired.IsTerminal())
}
